package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"school-quiz-service/internal/cache"
	"school-quiz-service/internal/domain"
)

func TestRegisterTeamHashesSecretAndRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	team, err := env.roster.RegisterTeam(ctx, domain.Team{
		TeamName:   "falcons",
		SchoolName: "School A",
		Members:    []domain.Member{{StudentID: "s1", Name: "Asha"}},
	}, "hunter2")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if team.ID == "" {
		t.Fatalf("expected generated team id")
	}
	if team.PasswordHash == "" || team.PasswordHash == "hunter2" {
		t.Fatalf("secret must be stored hashed")
	}

	_, err = env.roster.RegisterTeam(ctx, domain.Team{TeamName: "falcons", SchoolName: "School B"}, "x")
	if !errors.Is(err, domain.ErrDuplicateTeam) {
		t.Fatalf("expected ErrDuplicateTeam, got %v", err)
	}
}

func TestLoginIssuesTokenAndRejectsBadSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.roster.RegisterTeam(ctx, domain.Team{
		TeamName:   "falcons",
		SchoolName: "School A",
		Members:    []domain.Member{{StudentID: "s1", Name: "Asha"}},
	}, "hunter2"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := env.roster.Login(ctx, "falcons", "s1", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatalf("expected session token")
	}

	_, member, err := env.store.FindTeamByStudent(ctx, "s1")
	if err != nil {
		t.Fatalf("find member: %v", err)
	}
	if !member.IsLoggedIn || member.AuthToken != token {
		t.Fatalf("session not recorded: %+v", member)
	}

	if _, err := env.roster.Login(ctx, "falcons", "s1", "wrong"); !errors.Is(err, domain.ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

func TestLogoutClearsSessionAndFlushesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.roster.RegisterTeam(ctx, domain.Team{
		TeamName:   "falcons",
		SchoolName: "School A",
		Members:    []domain.Member{{StudentID: "s1", Name: "Asha"}},
	}, "hunter2"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := env.roster.Login(ctx, "falcons", "s1", "hunter2"); err != nil {
		t.Fatalf("login: %v", err)
	}

	for _, key := range []string{cache.KeyLeaderboard, cache.KeyQuestionsAll, cache.KeyQuizQuestions(3)} {
		if err := env.cache.Set(ctx, key, []byte(`{}`), time.Minute); err != nil {
			t.Fatalf("warm %s: %v", key, err)
		}
	}

	if err := env.roster.Logout(ctx, "s1"); err != nil {
		t.Fatalf("logout: %v", err)
	}

	_, member, err := env.store.FindTeamByStudent(ctx, "s1")
	if err != nil {
		t.Fatalf("find member: %v", err)
	}
	if member.IsLoggedIn || member.AuthToken != "" {
		t.Fatalf("session not cleared: %+v", member)
	}

	for _, key := range []string{cache.KeyLeaderboard, cache.KeyQuestionsAll, cache.KeyQuizQuestions(3)} {
		if _, err := env.cache.Get(ctx, key); !errors.Is(err, cache.ErrMiss) {
			t.Fatalf("expected full flush, %s still cached", key)
		}
	}
}

func TestRecordViolationAppends(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1, err := env.roster.RecordViolation(ctx, "team-1", "Asha", "tab-switch")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	v2, err := env.roster.RecordViolation(ctx, "team-1", "Asha", "fullscreen-exit")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if v1.ID == v2.ID {
		t.Fatalf("violations must get distinct ids")
	}

	violations, err := env.roster.Violations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(violations))
	}
	if violations[0].ViolationType != "tab-switch" || violations[1].ViolationType != "fullscreen-exit" {
		t.Fatalf("violations out of order: %+v", violations)
	}
}
