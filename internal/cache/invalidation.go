package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"school-quiz-service/internal/metrics"
)

// EventKind tags a write path that mutates cached state.
type EventKind int

const (
	// EventQuizSubmitted fires after a set-quiz submission overwrote a member's marks.
	EventQuizSubmitted EventKind = iota
	// EventLiveAnswerSubmitted fires after a live answer incremented a member's running score.
	EventLiveAnswerSubmitted
	// EventQuestionWritten fires on question create/update/delete.
	EventQuestionWritten
	// EventTeamWritten fires on team create/update/delete and member mutations.
	EventTeamWritten
	// EventPublishToggled fires when quizzes are published or unpublished.
	EventPublishToggled
	// EventLogout fires on member logout and flushes the whole cache.
	EventLogout
)

// WriteEvent describes a completed mutation and the documents it touched.
type WriteEvent struct {
	Kind       EventKind
	TeamID     string
	QuestionID string
	QuizID     int
	QuizIDs    []int
}

// Keys returns every cache key whose derivation depends on the event's
// mutation. This table is the single place new write paths must register;
// a key missing here is served stale for up to a TTL window.
func (e WriteEvent) Keys() []string {
	switch e.Kind {
	case EventQuizSubmitted, EventLiveAnswerSubmitted:
		// The member's team document changed and so did the aggregate.
		return []string{KeyLeaderboard, KeyTeamsAll, KeyTeam(e.TeamID)}
	case EventQuestionWritten:
		return []string{KeyQuestionsAll, KeyQuestion(e.QuestionID), KeyQuizQuestions(e.QuizID)}
	case EventTeamWritten:
		return []string{KeyTeamsAll, KeyTeam(e.TeamID), KeyLeaderboard}
	case EventPublishToggled:
		keys := []string{KeyPublishedStatus}
		for _, id := range e.QuizIDs {
			keys = append(keys, KeyQuizQuestions(id))
		}
		return keys
	default:
		return nil
	}
}

// Invalidator evaluates the write-event table against a cache. Keeping the
// evaluation central (instead of ad hoc deletes per route) makes missing
// invalidations auditable.
type Invalidator struct {
	cache  Cache
	logger *zap.Logger
}

func NewInvalidator(c Cache, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{cache: c, logger: logger}
}

// OnEvent removes every dependent key for the event. Logout flushes the
// whole cache: overly broad but safe, and logout is infrequent.
//
// The caller's write has already succeeded when this runs; an invalidation
// failure is reported so the gateway can surface the stale-serve risk, but
// it must never be treated as a failure of the write itself.
func (inv *Invalidator) OnEvent(ctx context.Context, event WriteEvent) error {
	if event.Kind == EventLogout {
		if err := inv.cache.FlushAll(ctx); err != nil {
			inv.logger.Warn("cache flush failed after logout", zap.Error(err))
			return fmt.Errorf("flush cache: %w", err)
		}
		return nil
	}

	keys := event.Keys()
	if len(keys) == 0 {
		return nil
	}
	if err := inv.cache.Delete(ctx, keys...); err != nil {
		inv.logger.Warn("cache invalidation failed, stale reads possible until TTL",
			zap.Int("event", int(event.Kind)),
			zap.Strings("keys", keys),
			zap.Error(err))
		return fmt.Errorf("invalidate %v: %w", keys, err)
	}
	metrics.CacheInvalidations.Add(float64(len(keys)))
	return nil
}
