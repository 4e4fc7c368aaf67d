// Package scoring holds the two scoring rules of the platform as pure
// functions. They perform no I/O and never touch the store; orchestration
// and persistence live in internal/app.
//
// The two rules are deliberately separate: set-quiz scores overwrite a
// member's marks, live scores accumulate into finalRoundScore. They must
// never be merged into one generic scorer.
package scoring

import (
	"math"
	"strings"

	"school-quiz-service/internal/domain"
)

// Live scoring curve: a correct answer at t=0 earns LiveMaxScore, decaying
// linearly to LiveMinScore at LiveMaxTime seconds.
const (
	LiveMaxScore = 10
	LiveMinScore = 3
	LiveMaxTime  = 120.0
)

// BuildAnswerKey enumerates a quiz's questions in array order and returns
// the correct option per positional index. Set-quiz submissions reference
// questions by this index, not by their persisted ids.
func BuildAnswerKey(questions []domain.Question) []domain.OptionTag {
	key := make([]domain.OptionTag, len(questions))
	for i, q := range questions {
		key[i] = q.CorrectOption
	}
	return key
}

// ScoreQuizSet computes the percentage score of a set-quiz submission:
// 100 * correct / submitted. Answers are compared lower-cased against the
// key entry at the answer's question index; an index outside the key is
// simply wrong, not an error. An empty submission is rejected so that a
// zero score always means "answered and scored zero", never "nothing to
// score".
func ScoreQuizSet(answers []domain.AnswerSubmission, key []domain.OptionTag) (score float64, correct int, err error) {
	if len(answers) == 0 {
		return 0, 0, domain.ErrEmptySubmission
	}
	for _, a := range answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(key) {
			continue
		}
		if strings.ToLower(a.Answer) == strings.ToLower(string(key[a.QuestionIndex])) {
			correct++
		}
	}
	return float64(correct) / float64(len(answers)) * 100, correct, nil
}

// ScoreLiveAnswer computes the points for a single broadcast question.
// Correctness is a raw string comparison against the stored option tag.
// A correct answer earns round(max - (max-min) * t/maxTime) with t clamped
// to [0, maxTime]; a wrong answer earns 0 regardless of time.
func ScoreLiveAnswer(answer string, correctOption domain.OptionTag, timeSpent float64) int {
	if answer != string(correctOption) {
		return 0
	}
	t := timeSpent
	if t < 0 {
		t = 0
	}
	if t > LiveMaxTime {
		t = LiveMaxTime
	}
	return int(math.Round(LiveMaxScore - (LiveMaxScore-LiveMinScore)*(t/LiveMaxTime)))
}
