package app

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"school-quiz-service/internal/cache"
	"school-quiz-service/internal/domain"
)

// ContentService covers admin authoring: question CRUD and the global
// publish switch. Image bytes live in the external asset store; questions
// only carry opaque image ids.
type ContentService struct {
	store       Store
	invalidator *cache.Invalidator
	logger      *zap.Logger
}

func NewContentService(store Store, inv *cache.Invalidator, logger *zap.Logger) *ContentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{store: store, invalidator: inv, logger: logger}
}

// CreateQuestion validates the option set, enforces the per-quiz cap and
// appends the question to its quiz.
func (s *ContentService) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if err := validateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	quiz, err := s.store.GetQuiz(ctx, q.QuizID)
	if err != nil {
		return domain.Question{}, err
	}
	if len(quiz.QuestionIDs) >= domain.MaxQuestionsPerQuiz {
		return domain.Question{}, domain.ErrQuizFull
	}

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventQuestionWritten, QuestionID: q.ID, QuizID: q.QuizID})
	return q, nil
}

func (s *ContentService) UpdateQuestion(ctx context.Context, q domain.Question) error {
	if err := validateQuestion(q); err != nil {
		return err
	}
	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		return err
	}
	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventQuestionWritten, QuestionID: q.ID, QuizID: q.QuizID})
	return nil
}

// DeleteQuestion removes the question; the store cascades the removal of
// its reference from the owning quiz.
func (s *ContentService) DeleteQuestion(ctx context.Context, id string) error {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventQuestionWritten, QuestionID: id, QuizID: q.QuizID})
	return nil
}

func (s *ContentService) Question(ctx context.Context, id string) (domain.Question, error) {
	return s.store.GetQuestion(ctx, id)
}

func (s *ContentService) Questions(ctx context.Context) ([]domain.Question, error) {
	return s.store.ListQuestions(ctx)
}

// QuizWithQuestions resolves a quiz and its question documents in order.
func (s *ContentService) QuizWithQuestions(ctx context.Context, quizID int) (domain.Quiz, []domain.Question, error) {
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	questions, err := s.store.GetQuizQuestions(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	return quiz, questions, nil
}

// SetPublishedAll toggles every quiz's publish flag globally.
func (s *ContentService) SetPublishedAll(ctx context.Context, published bool) error {
	quizIDs, err := s.store.SetPublishedAll(ctx, published)
	if err != nil {
		return err
	}
	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventPublishToggled, QuizIDs: quizIDs})
	s.logger.Info("publish state toggled", zap.Bool("published", published), zap.Ints("quizIds", quizIDs))
	return nil
}

func (s *ContentService) PublishedStatus(ctx context.Context) (bool, error) {
	return s.store.AnyPublished(ctx)
}

func (s *ContentService) invalidate(ctx context.Context, event cache.WriteEvent) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.OnEvent(ctx, event); err != nil {
		s.logger.Error("content write persisted but cache invalidation failed", zap.Error(err))
	}
}

// validateQuestion enforces the option invariants: exactly four options
// tagged A-D in order, each carrying text and/or an image reference, and a
// correct tag drawn from the same set.
func validateQuestion(q domain.Question) error {
	if len(q.Options) != len(domain.OptionTags) {
		return domain.ErrInvalidOptions
	}
	for i, opt := range q.Options {
		if opt.Tag != domain.OptionTags[i] {
			return domain.ErrInvalidOptions
		}
		if opt.Text == "" && opt.ImageID == "" {
			return domain.ErrInvalidOptions
		}
	}
	for _, tag := range domain.OptionTags {
		if q.CorrectOption == tag {
			return nil
		}
	}
	return domain.ErrInvalidOptions
}
