package domain

import "time"

// OptionTag identifies one of the four answer options of a question.
type OptionTag string

const (
	OptionA OptionTag = "A"
	OptionB OptionTag = "B"
	OptionC OptionTag = "C"
	OptionD OptionTag = "D"
)

// OptionTags enumerates the valid option tags in display order.
var OptionTags = []OptionTag{OptionA, OptionB, OptionC, OptionD}

// MaxQuestionsPerQuiz caps how many questions an admin can attach to one quiz.
const MaxQuestionsPerQuiz = 20

// SubmissionRecord is one entry of a member's append-only audit trail.
type SubmissionRecord struct {
	Score       float64   `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Member is a student embedded in a Team. It is not an independent root;
// all mutations go through the owning team document.
type Member struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Number    string `json:"number"`

	// Marks holds the score of the most recent accepted set-quiz
	// submission. Overwritten on every submit, never summed.
	Marks float64 `json:"marks"`

	// FinalRoundScore accumulates points across live broadcast questions.
	// Nil until the first accepted live answer.
	FinalRoundScore *int `json:"finalRoundScore,omitempty"`

	IsLoggedIn   bool   `json:"isLoggedIn"`
	AuthToken    string `json:"authToken,omitempty"`
	HasEndedQuiz bool   `json:"hasEndedQuiz"`

	SubmissionHistory []SubmissionRecord `json:"submissionHistory,omitempty"`
}

// Team is the aggregate root for a school's roster.
type Team struct {
	ID              string   `json:"id"`
	TeamName        string   `json:"teamName"`
	SchoolName      string   `json:"schoolName"`
	EducationalZone string   `json:"educationalZone,omitempty"`
	PasswordHash    string   `json:"-"`
	TotalMarks      float64  `json:"totalMarks"` // legacy aggregate, superseded by the computed leaderboard
	Members         []Member `json:"members"`
}

// Option is one possible answer. Either text or an image reference must be set.
type Option struct {
	Tag     OptionTag `json:"tag"`
	Text    string    `json:"text,omitempty"`
	ImageID string    `json:"imageId,omitempty"`
}

// Question is a four-option MCQ belonging to exactly one quiz.
type Question struct {
	ID            string    `json:"id"`
	QuizID        int       `json:"quizId"`
	Prompt        string    `json:"prompt"`
	ImageID       string    `json:"imageId,omitempty"`
	Options       []Option  `json:"options"`
	CorrectOption OptionTag `json:"correctOption"`
}

// Quiz is an ordered set of question references gated by a publish flag.
type Quiz struct {
	QuizID      int      `json:"quizId"`
	QuestionIDs []string `json:"questionIds"`
	IsPublished bool     `json:"isPublished"`
}

// Violation is an immutable anti-cheating telemetry record.
type Violation struct {
	ID            string    `json:"id"`
	TeamID        string    `json:"teamId"`
	MemberName    string    `json:"memberName"`
	ViolationType string    `json:"violationType"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AnswerSubmission is one answer of a set-quiz submission. QuestionIndex is
// the position of the question within the quiz's ordered question list.
type AnswerSubmission struct {
	QuestionIndex int    `json:"questionId"`
	Answer        string `json:"answer"`
}

// LiveAnswer is a single submission against a broadcast question.
type LiveAnswer struct {
	QuestionID string  `json:"questionId"`
	Answer     string  `json:"answer"`
	TimeSpent  float64 `json:"timeSpent"`
}

// MemberScore is the per-member breakdown inside a leaderboard row.
type MemberScore struct {
	StudentName     string  `json:"studentName"`
	Marks           float64 `json:"marks"`
	FinalRoundScore int     `json:"finalRoundScore"`
}

// LeaderboardEntry is one school's row of the computed leaderboard.
type LeaderboardEntry struct {
	SchoolName string        `json:"schoolName"`
	TotalScore float64       `json:"totalScore"`
	Rank       int           `json:"rank"`
	Members    []MemberScore `json:"members"`
}

// Leaderboard is the derived, never-persisted ranking of schools.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// QuizSetResult reports the outcome of a set-quiz submission.
type QuizSetResult struct {
	StudentID    string  `json:"studentId"`
	Score        float64 `json:"score"`
	CorrectCount int     `json:"correctCount"`
	Submitted    int     `json:"submitted"`
}

// LiveAnswerResult reports the outcome of a single live answer.
type LiveAnswerResult struct {
	StudentID       string `json:"studentId"`
	Correct         bool   `json:"correct"`
	Awarded         int    `json:"awarded"`
	FinalRoundScore int    `json:"finalRoundScore"`
}
