package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"school-quiz-service/internal/domain"
)

// Store is the Postgres system of record. Documents are kept as JSONB rows
// (one row per aggregate), matching the document shape the domain works
// with. Member mutations run read-modify-write under a row lock, which
// gives the single-document atomicity the app layer relies on; nothing
// spans more than one aggregate except question create/delete, which also
// touches the owning quiz row inside the same transaction.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) ListTeams(ctx context.Context) ([]domain.Team, error) {
	rows, err := s.pool.Query(ctx, `SELECT data, password_hash FROM teams ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var raw []byte
		var hash string
		if err := rows.Scan(&raw, &hash); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		team, err := decodeTeam(raw, hash)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

func (s *Store) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	return s.teamBy(ctx, `SELECT data, password_hash FROM teams WHERE id=$1`, id)
}

func (s *Store) FindTeamByName(ctx context.Context, teamName string) (domain.Team, error) {
	return s.teamBy(ctx, `SELECT data, password_hash FROM teams WHERE team_name=$1`, teamName)
}

func (s *Store) FindTeamByStudent(ctx context.Context, studentID string) (domain.Team, domain.Member, error) {
	team, err := s.teamBy(ctx,
		`SELECT data, password_hash FROM teams
		 WHERE data->'members' @> jsonb_build_array(jsonb_build_object('studentId', $1::text))`,
		studentID)
	if errors.Is(err, domain.ErrTeamNotFound) {
		return domain.Team{}, domain.Member{}, domain.ErrMemberNotFound
	}
	if err != nil {
		return domain.Team{}, domain.Member{}, err
	}
	for _, m := range team.Members {
		if m.StudentID == studentID {
			return team, m, nil
		}
	}
	return domain.Team{}, domain.Member{}, domain.ErrMemberNotFound
}

func (s *Store) teamBy(ctx context.Context, query string, arg interface{}) (domain.Team, error) {
	var raw []byte
	var hash string
	err := s.pool.QueryRow(ctx, query, arg).Scan(&raw, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if err != nil {
		return domain.Team{}, fmt.Errorf("load team: %w", err)
	}
	return decodeTeam(raw, hash)
}

func (s *Store) CreateTeam(ctx context.Context, team domain.Team) error {
	raw, err := encodeTeam(team)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO teams (id, team_name, password_hash, data) VALUES ($1, $2, $3, $4)`,
		team.ID, team.TeamName, team.PasswordHash, raw)
	if err != nil {
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

func (s *Store) UpdateTeam(ctx context.Context, team domain.Team) error {
	raw, err := encodeTeam(team)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE teams SET team_name=$2, data=$3 WHERE id=$1`,
		team.ID, team.TeamName, raw)
	if err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM teams WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

func (s *Store) OverwriteMemberMarks(ctx context.Context, teamID, studentID string, score float64, submittedAt time.Time) error {
	return s.mutateMember(ctx, teamID, studentID, func(m *domain.Member) {
		m.Marks = score
		m.SubmissionHistory = append(m.SubmissionHistory, domain.SubmissionRecord{
			Score:       score,
			SubmittedAt: submittedAt,
		})
	})
}

func (s *Store) AddFinalRoundScore(ctx context.Context, teamID, studentID string, delta int) (int, error) {
	var total int
	err := s.mutateMember(ctx, teamID, studentID, func(m *domain.Member) {
		if m.FinalRoundScore == nil {
			initial := delta
			m.FinalRoundScore = &initial
		} else {
			*m.FinalRoundScore += delta
		}
		total = *m.FinalRoundScore
	})
	return total, err
}

func (s *Store) SetMemberSession(ctx context.Context, teamID, studentID string, loggedIn bool, authToken string) error {
	return s.mutateMember(ctx, teamID, studentID, func(m *domain.Member) {
		m.IsLoggedIn = loggedIn
		m.AuthToken = authToken
	})
}

func (s *Store) MarkQuizEnded(ctx context.Context, teamID, studentID string) error {
	return s.mutateMember(ctx, teamID, studentID, func(m *domain.Member) {
		m.HasEndedQuiz = true
	})
}

// mutateMember applies a member mutation under a row lock so concurrent
// score writes against the same team serialize at the document level.
func (s *Store) mutateMember(ctx context.Context, teamID, studentID string, mutate func(*domain.Member)) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	var hash string
	err = tx.QueryRow(ctx, `SELECT data, password_hash FROM teams WHERE id=$1 FOR UPDATE`, teamID).Scan(&raw, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrTeamNotFound
	}
	if err != nil {
		return fmt.Errorf("lock team: %w", err)
	}

	team, err := decodeTeam(raw, hash)
	if err != nil {
		return err
	}

	found := false
	for i := range team.Members {
		if team.Members[i].StudentID == studentID {
			mutate(&team.Members[i])
			found = true
			break
		}
	}
	if !found {
		return domain.ErrMemberNotFound
	}

	updated, err := encodeTeam(team)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE teams SET data=$2 WHERE id=$1`, teamID, updated); err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM questions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM questions WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question: %w", err)
	}
	return q, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE quizzes
		 SET data = jsonb_set(data, '{questionIds}', COALESCE(data->'questionIds', '[]'::jsonb) || to_jsonb($2::text))
		 WHERE quiz_id=$1`,
		q.QuizID, q.ID)
	if err != nil {
		return fmt.Errorf("append question to quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO questions (id, quiz_id, data) VALUES ($1, $2, $3)`,
		q.ID, q.QuizID, raw); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal question: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE questions SET data=$2 WHERE id=$1`, q.ID, raw)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var quizID int
	err = tx.QueryRow(ctx, `DELETE FROM questions WHERE id=$1 RETURNING quiz_id`, id).Scan(&quizID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrQuestionNotFound
	}
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE quizzes
		 SET data = jsonb_set(data, '{questionIds}', (data->'questionIds') - $2)
		 WHERE quiz_id=$1`,
		quizID, id); err != nil {
		return fmt.Errorf("detach question from quiz: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM quizzes ORDER BY quiz_id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *Store) GetQuiz(ctx context.Context, quizID int) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE quiz_id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) GetQuizQuestions(ctx context.Context, quizID int) ([]domain.Question, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.QuestionIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT id, data FROM questions WHERE id = ANY($1)`, quiz.QuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("load quiz questions: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Question, len(quiz.QuestionIDs))
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		byID[id] = q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve the quiz's question order; it defines the answer-key indices.
	questions := make([]domain.Question, 0, len(quiz.QuestionIDs))
	for _, id := range quiz.QuestionIDs {
		if q, ok := byID[id]; ok {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

func (s *Store) SetPublishedAll(ctx context.Context, published bool) ([]int, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE quizzes
		 SET data = jsonb_set(data, '{isPublished}', to_jsonb($1::boolean))
		 RETURNING quiz_id`,
		published)
	if err != nil {
		return nil, fmt.Errorf("toggle publish state: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan quiz id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) AnyPublished(ctx context.Context) (bool, error) {
	var published bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quizzes WHERE (data->>'isPublished')::boolean)`).Scan(&published)
	if err != nil {
		return false, fmt.Errorf("check publish state: %w", err)
	}
	return published, nil
}

func (s *Store) RecordViolation(ctx context.Context, v domain.Violation) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO violations (id, team_id, member_name, violation_type, created_at) VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.TeamID, v.MemberName, v.ViolationType, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert violation: %w", err)
	}
	return nil
}

func (s *Store) ListViolations(ctx context.Context) ([]domain.Violation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, team_id, member_name, violation_type, created_at FROM violations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()

	var violations []domain.Violation
	for rows.Next() {
		var v domain.Violation
		if err := rows.Scan(&v.ID, &v.TeamID, &v.MemberName, &v.ViolationType, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// teamDoc is the persisted shape of a team. The password hash lives in its
// own column, never inside the JSON document.
type teamDoc struct {
	ID              string          `json:"id"`
	TeamName        string          `json:"teamName"`
	SchoolName      string          `json:"schoolName"`
	EducationalZone string          `json:"educationalZone,omitempty"`
	TotalMarks      float64         `json:"totalMarks"`
	Members         []domain.Member `json:"members"`
}

func encodeTeam(team domain.Team) ([]byte, error) {
	raw, err := json.Marshal(teamDoc{
		ID:              team.ID,
		TeamName:        team.TeamName,
		SchoolName:      team.SchoolName,
		EducationalZone: team.EducationalZone,
		TotalMarks:      team.TotalMarks,
		Members:         team.Members,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal team: %w", err)
	}
	return raw, nil
}

func decodeTeam(raw []byte, passwordHash string) (domain.Team, error) {
	var doc teamDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Team{}, fmt.Errorf("unmarshal team: %w", err)
	}
	return domain.Team{
		ID:              doc.ID,
		TeamName:        doc.TeamName,
		SchoolName:      doc.SchoolName,
		EducationalZone: doc.EducationalZone,
		PasswordHash:    passwordHash,
		TotalMarks:      doc.TotalMarks,
		Members:         doc.Members,
	}, nil
}
