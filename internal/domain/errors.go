package domain

import "errors"

var (
	// ErrTeamNotFound is returned when no team matches the given id or name.
	ErrTeamNotFound = errors.New("team not found")
	// ErrMemberNotFound is returned when a student id is absent from a team roster.
	ErrMemberNotFound = errors.New("member not found")
	// ErrQuizNotFound indicates the quiz id is outside the seeded set.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question id is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrEmptySubmission rejects a set-quiz submission with zero answers.
	ErrEmptySubmission = errors.New("submission contains no answers")
	// ErrQuizEnded blocks scored submissions from a member who already ended the quiz.
	ErrQuizEnded = errors.New("member has already ended the quiz")
	// ErrQuizFull blocks adding questions past the per-quiz cap.
	ErrQuizFull = errors.New("quiz already has the maximum number of questions")
	// ErrInvalidOptions rejects a question whose option set is malformed.
	ErrInvalidOptions = errors.New("question must carry exactly four options tagged A-D, each with text or an image")
	// ErrNotPublished blocks student access while quizzes are unpublished.
	ErrNotPublished = errors.New("quizzes are not published")
	// ErrBadCredentials is returned on a failed login attempt.
	ErrBadCredentials = errors.New("invalid team credentials")
	// ErrDuplicateTeam rejects registration under an already-taken team name.
	ErrDuplicateTeam = errors.New("team name already registered")
)
