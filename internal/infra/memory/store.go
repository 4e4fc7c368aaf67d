package memory

import (
	"context"
	"sync"
	"time"

	"school-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.Store, used by tests and as
// the fallback when no Postgres URL is configured. Reads return copies so
// callers can never mutate the record behind the store's back.
type Store struct {
	mu sync.RWMutex

	teams     map[string]*domain.Team
	teamOrder []string

	questions     map[string]*domain.Question
	questionOrder []string

	quizzes   map[int]*domain.Quiz
	quizOrder []int

	violations []domain.Violation
}

func NewStore() *Store {
	return &Store{
		teams:     make(map[string]*domain.Team),
		questions: make(map[string]*domain.Question),
		quizzes:   make(map[int]*domain.Quiz),
	}
}

// SeedQuizzes registers empty unpublished quizzes for the given ids,
// skipping ids already present.
func (s *Store) SeedQuizzes(quizIDs ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range quizIDs {
		if _, ok := s.quizzes[id]; ok {
			continue
		}
		s.quizzes[id] = &domain.Quiz{QuizID: id}
		s.quizOrder = append(s.quizOrder, id)
	}
}

func (s *Store) ListTeams(_ context.Context) ([]domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	teams := make([]domain.Team, 0, len(s.teamOrder))
	for _, id := range s.teamOrder {
		teams = append(teams, copyTeam(s.teams[id]))
	}
	return teams, nil
}

func (s *Store) GetTeam(_ context.Context, id string) (domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[id]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return copyTeam(team), nil
}

func (s *Store) FindTeamByName(_ context.Context, teamName string) (domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.teamOrder {
		if s.teams[id].TeamName == teamName {
			return copyTeam(s.teams[id]), nil
		}
	}
	return domain.Team{}, domain.ErrTeamNotFound
}

func (s *Store) FindTeamByStudent(_ context.Context, studentID string) (domain.Team, domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.teamOrder {
		for i := range s.teams[id].Members {
			if s.teams[id].Members[i].StudentID == studentID {
				return copyTeam(s.teams[id]), copyMember(&s.teams[id].Members[i]), nil
			}
		}
	}
	return domain.Team{}, domain.Member{}, domain.ErrMemberNotFound
}

func (s *Store) CreateTeam(_ context.Context, team domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyTeam(&team)
	s.teams[team.ID] = &stored
	s.teamOrder = append(s.teamOrder, team.ID)
	return nil
}

func (s *Store) UpdateTeam(_ context.Context, team domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.ID]; !ok {
		return domain.ErrTeamNotFound
	}
	stored := copyTeam(&team)
	s.teams[team.ID] = &stored
	return nil
}

func (s *Store) DeleteTeam(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return domain.ErrTeamNotFound
	}
	delete(s.teams, id)
	for i, existing := range s.teamOrder {
		if existing == id {
			s.teamOrder = append(s.teamOrder[:i], s.teamOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) OverwriteMemberMarks(_ context.Context, teamID, studentID string, score float64, submittedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, err := s.memberLocked(teamID, studentID)
	if err != nil {
		return err
	}
	member.Marks = score
	member.SubmissionHistory = append(member.SubmissionHistory, domain.SubmissionRecord{
		Score:       score,
		SubmittedAt: submittedAt,
	})
	return nil
}

func (s *Store) AddFinalRoundScore(_ context.Context, teamID, studentID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, err := s.memberLocked(teamID, studentID)
	if err != nil {
		return 0, err
	}
	if member.FinalRoundScore == nil {
		initial := delta
		member.FinalRoundScore = &initial
	} else {
		*member.FinalRoundScore += delta
	}
	return *member.FinalRoundScore, nil
}

func (s *Store) SetMemberSession(_ context.Context, teamID, studentID string, loggedIn bool, authToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, err := s.memberLocked(teamID, studentID)
	if err != nil {
		return err
	}
	member.IsLoggedIn = loggedIn
	member.AuthToken = authToken
	return nil
}

func (s *Store) MarkQuizEnded(_ context.Context, teamID, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, err := s.memberLocked(teamID, studentID)
	if err != nil {
		return err
	}
	member.HasEndedQuiz = true
	return nil
}

func (s *Store) ListQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := make([]domain.Question, 0, len(s.questionOrder))
	for _, id := range s.questionOrder {
		questions = append(questions, copyQuestion(s.questions[id]))
	}
	return questions, nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return copyQuestion(q), nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[q.QuizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	stored := copyQuestion(&q)
	s.questions[q.ID] = &stored
	s.questionOrder = append(s.questionOrder, q.ID)
	quiz.QuestionIDs = append(quiz.QuestionIDs, q.ID)
	return nil
}

func (s *Store) UpdateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	stored := copyQuestion(&q)
	s.questions[q.ID] = &stored
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if quiz, ok := s.quizzes[q.QuizID]; ok {
		for i, ref := range quiz.QuestionIDs {
			if ref == id {
				quiz.QuestionIDs = append(quiz.QuestionIDs[:i], quiz.QuestionIDs[i+1:]...)
				break
			}
		}
	}
	delete(s.questions, id)
	for i, existing := range s.questionOrder {
		if existing == id {
			s.questionOrder = append(s.questionOrder[:i], s.questionOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0, len(s.quizOrder))
	for _, id := range s.quizOrder {
		quizzes = append(quizzes, copyQuiz(s.quizzes[id]))
	}
	return quizzes, nil
}

func (s *Store) GetQuiz(_ context.Context, quizID int) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return copyQuiz(quiz), nil
}

func (s *Store) GetQuizQuestions(_ context.Context, quizID int) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	questions := make([]domain.Question, 0, len(quiz.QuestionIDs))
	for _, id := range quiz.QuestionIDs {
		if q, ok := s.questions[id]; ok {
			questions = append(questions, copyQuestion(q))
		}
	}
	return questions, nil
}

func (s *Store) SetPublishedAll(_ context.Context, published bool) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.quizOrder))
	for _, id := range s.quizOrder {
		s.quizzes[id].IsPublished = published
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) AnyPublished(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, quiz := range s.quizzes {
		if quiz.IsPublished {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) RecordViolation(_ context.Context, v domain.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = append(s.violations, v)
	return nil
}

func (s *Store) ListViolations(_ context.Context) ([]domain.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Violation, len(s.violations))
	copy(out, s.violations)
	return out, nil
}

func (s *Store) memberLocked(teamID, studentID string) (*domain.Member, error) {
	team, ok := s.teams[teamID]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	for i := range team.Members {
		if team.Members[i].StudentID == studentID {
			return &team.Members[i], nil
		}
	}
	return nil, domain.ErrMemberNotFound
}

func copyTeam(t *domain.Team) domain.Team {
	out := *t
	out.Members = make([]domain.Member, len(t.Members))
	for i := range t.Members {
		out.Members[i] = copyMember(&t.Members[i])
	}
	return out
}

func copyMember(m *domain.Member) domain.Member {
	out := *m
	if m.FinalRoundScore != nil {
		score := *m.FinalRoundScore
		out.FinalRoundScore = &score
	}
	out.SubmissionHistory = make([]domain.SubmissionRecord, len(m.SubmissionHistory))
	copy(out.SubmissionHistory, m.SubmissionHistory)
	return out
}

func copyQuestion(q *domain.Question) domain.Question {
	out := *q
	out.Options = make([]domain.Option, len(q.Options))
	copy(out.Options, q.Options)
	return out
}

func copyQuiz(q *domain.Quiz) domain.Quiz {
	out := *q
	out.QuestionIDs = make([]string, len(q.QuestionIDs))
	copy(out.QuestionIDs, q.QuestionIDs)
	return out
}
