// Package cache defines the read-through cache contract and the key
// namespace shared by all backends. The cache is never the source of
// truth: every value is reconstructible from the store, and a lost or
// expired entry only costs a refill.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a process-wide key/value store with per-entry TTL. Values are
// opaque serialized payloads; callers own the encoding.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	FlushAll(ctx context.Context) error
}

// Cache key namespace. Keys are enumerable: a handful of global aggregates
// plus one key per quiz, question, and team.
const (
	KeyLeaderboard     = "leaderboard:all"
	KeyPublishedStatus = "quiz:published:status"
	KeyQuestionsAll    = "questions:all"
	KeyTeamsAll        = "school-teams:all"
)

// KeyQuestion returns the cache key for a single question document.
func KeyQuestion(id string) string { return "question:" + id }

// KeyTeam returns the cache key for a single team document.
func KeyTeam(id string) string { return "school-team:" + id }

// KeyQuizQuestions returns the cache key for a quiz with its questions resolved.
func KeyQuizQuestions(quizID int) string { return "quiz:" + strconv.Itoa(quizID) + ":questions" }
