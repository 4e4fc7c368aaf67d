package app

import (
	"context"
	"time"

	"school-quiz-service/internal/domain"
)

// Store is the system of record. Implementations must make the member
// score primitives single-document atomic: each call targets one team row
// and either fully applies or fully fails. There is no transaction spanning
// a score write and the cache invalidation that follows it; the crash
// window in between is bounded by the cache TTL.
type Store interface {
	TeamStore
	QuestionStore
	QuizStore
	ViolationStore
}

// TeamStore owns team documents and their embedded members.
type TeamStore interface {
	ListTeams(ctx context.Context) ([]domain.Team, error)
	GetTeam(ctx context.Context, id string) (domain.Team, error)
	FindTeamByName(ctx context.Context, teamName string) (domain.Team, error)
	// FindTeamByStudent locates the team owning the globally unique student id.
	FindTeamByStudent(ctx context.Context, studentID string) (domain.Team, domain.Member, error)
	CreateTeam(ctx context.Context, team domain.Team) error
	UpdateTeam(ctx context.Context, team domain.Team) error
	DeleteTeam(ctx context.Context, id string) error

	// OverwriteMemberMarks sets the member's marks to score and appends a
	// record to the submission history.
	OverwriteMemberMarks(ctx context.Context, teamID, studentID string, score float64, submittedAt time.Time) error
	// AddFinalRoundScore adds delta to the member's running live-round
	// score, initializing it on first use, and returns the new total.
	AddFinalRoundScore(ctx context.Context, teamID, studentID string, delta int) (int, error)
	SetMemberSession(ctx context.Context, teamID, studentID string, loggedIn bool, authToken string) error
	MarkQuizEnded(ctx context.Context, teamID, studentID string) error
}

// QuestionStore owns question documents. Deleting a question also removes
// its reference from the owning quiz.
type QuestionStore interface {
	ListQuestions(ctx context.Context) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

// QuizStore owns the seeded quiz documents and their publish state.
type QuizStore interface {
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID int) (domain.Quiz, error)
	// GetQuizQuestions resolves the quiz's question references in order.
	GetQuizQuestions(ctx context.Context, quizID int) ([]domain.Question, error)
	// SetPublishedAll toggles every quiz and returns the affected quiz ids.
	SetPublishedAll(ctx context.Context, published bool) ([]int, error)
	AnyPublished(ctx context.Context) (bool, error)
}

// ViolationStore appends and lists anti-cheating telemetry.
type ViolationStore interface {
	RecordViolation(ctx context.Context, v domain.Violation) error
	ListViolations(ctx context.Context) ([]domain.Violation, error)
}
