package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"school-quiz-service/internal/cache"
	"school-quiz-service/internal/domain"
	"school-quiz-service/internal/scoring"
)

// SubmissionService orchestrates the two scoring flows. The flows never
// share a score field: set-quiz submissions overwrite marks, live answers
// accumulate into finalRoundScore.
type SubmissionService struct {
	store       Store
	invalidator *cache.Invalidator
	logger      *zap.Logger
	clock       func() time.Time
}

func NewSubmissionService(store Store, inv *cache.Invalidator, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{store: store, invalidator: inv, logger: logger, clock: time.Now}
}

// WithClock is test-only for deterministic submission timestamps.
func (s *SubmissionService) WithClock(clock func() time.Time) *SubmissionService {
	s.clock = clock
	return s
}

// SubmitQuizSet scores a full set-quiz submission for a member and
// overwrites the member's marks with the result. A second submission is
// accepted and overwrites again; a member who ended the quiz is rejected.
//
// The score write is never retried: the store call either applied or it
// did not, and retrying a failed overwrite buys nothing while retrying an
// ambiguous one risks double history entries.
func (s *SubmissionService) SubmitQuizSet(ctx context.Context, studentID string, quizID int, answers []domain.AnswerSubmission) (domain.QuizSetResult, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizSetResult{}, err
	}
	if !quiz.IsPublished {
		return domain.QuizSetResult{}, domain.ErrNotPublished
	}

	questions, err := s.store.GetQuizQuestions(ctx, quizID)
	if err != nil {
		return domain.QuizSetResult{}, err
	}

	team, member, err := s.store.FindTeamByStudent(ctx, studentID)
	if err != nil {
		return domain.QuizSetResult{}, err
	}
	if member.HasEndedQuiz {
		return domain.QuizSetResult{}, domain.ErrQuizEnded
	}

	score, correct, err := scoring.ScoreQuizSet(answers, scoring.BuildAnswerKey(questions))
	if err != nil {
		return domain.QuizSetResult{}, err
	}

	submittedAt := s.clock()
	if err := s.store.OverwriteMemberMarks(ctx, team.ID, studentID, score, submittedAt); err != nil {
		return domain.QuizSetResult{}, fmt.Errorf("persist quiz score: %w", err)
	}

	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventQuizSubmitted, TeamID: team.ID})

	s.logger.Info("set-quiz submission scored",
		zap.String("studentId", studentID),
		zap.Int("quizId", quizID),
		zap.Float64("score", score))

	return domain.QuizSetResult{
		StudentID:    studentID,
		Score:        score,
		CorrectCount: correct,
		Submitted:    len(answers),
	}, nil
}

// SubmitLiveAnswer scores a single broadcast question on the time-decay
// curve and adds the points to the member's running live-round score. The
// flow is repeatable per broadcast question and has no terminal state.
func (s *SubmissionService) SubmitLiveAnswer(ctx context.Context, studentID string, answer domain.LiveAnswer) (domain.LiveAnswerResult, error) {
	question, err := s.store.GetQuestion(ctx, answer.QuestionID)
	if err != nil {
		return domain.LiveAnswerResult{}, err
	}

	team, _, err := s.store.FindTeamByStudent(ctx, studentID)
	if err != nil {
		return domain.LiveAnswerResult{}, err
	}

	awarded := scoring.ScoreLiveAnswer(answer.Answer, question.CorrectOption, answer.TimeSpent)

	total, err := s.store.AddFinalRoundScore(ctx, team.ID, studentID, awarded)
	if err != nil {
		return domain.LiveAnswerResult{}, fmt.Errorf("persist live score: %w", err)
	}

	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventLiveAnswerSubmitted, TeamID: team.ID})

	s.logger.Info("live answer scored",
		zap.String("studentId", studentID),
		zap.String("questionId", answer.QuestionID),
		zap.Int("awarded", awarded))

	return domain.LiveAnswerResult{
		StudentID:       studentID,
		Correct:         awarded > 0,
		Awarded:         awarded,
		FinalRoundScore: total,
	}, nil
}

// invalidate runs the dependency table after a successful score write. The
// write stands regardless: stale cache until TTL beats failing a submission
// whose score is already durable.
func (s *SubmissionService) invalidate(ctx context.Context, event cache.WriteEvent) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.OnEvent(ctx, event); err != nil {
		s.logger.Error("score persisted but cache invalidation failed", zap.Error(err))
	}
}
