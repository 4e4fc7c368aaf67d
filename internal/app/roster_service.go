package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"school-quiz-service/internal/cache"
	"school-quiz-service/internal/domain"
)

// RosterService covers team lifecycle, member sessions and violation
// telemetry. Identity issuance proper is delegated to the external
// provider; this service only stores and clears the opaque token.
type RosterService struct {
	store       Store
	invalidator *cache.Invalidator
	logger      *zap.Logger
	clock       func() time.Time
}

func NewRosterService(store Store, inv *cache.Invalidator, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{store: store, invalidator: inv, logger: logger, clock: time.Now}
}

// RegisterTeam creates a team with a hashed secret. Team names are unique.
func (s *RosterService) RegisterTeam(ctx context.Context, team domain.Team, secret string) (domain.Team, error) {
	if _, err := s.store.FindTeamByName(ctx, team.TeamName); err == nil {
		return domain.Team{}, domain.ErrDuplicateTeam
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return domain.Team{}, fmt.Errorf("hash team secret: %w", err)
	}
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	team.PasswordHash = string(hash)

	if err := s.store.CreateTeam(ctx, team); err != nil {
		return domain.Team{}, err
	}
	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventTeamWritten, TeamID: team.ID})
	return team, nil
}

// UpdateTeam replaces a team document (admin roster edits).
func (s *RosterService) UpdateTeam(ctx context.Context, team domain.Team) error {
	if err := s.store.UpdateTeam(ctx, team); err != nil {
		return err
	}
	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventTeamWritten, TeamID: team.ID})
	return nil
}

// DeleteTeam removes a team administratively. Teams are never deleted
// during a live event.
func (s *RosterService) DeleteTeam(ctx context.Context, id string) error {
	if err := s.store.DeleteTeam(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventTeamWritten, TeamID: id})
	return nil
}

// Login verifies the team secret and opens a member session with a fresh
// token. The mutation touches the team document, so team keys are dropped.
func (s *RosterService) Login(ctx context.Context, teamName, studentID, secret string) (string, error) {
	team, err := s.store.FindTeamByName(ctx, teamName)
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(team.PasswordHash), []byte(secret)) != nil {
		return "", domain.ErrBadCredentials
	}

	token := uuid.NewString()
	if err := s.store.SetMemberSession(ctx, team.ID, studentID, true, token); err != nil {
		return "", err
	}
	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventTeamWritten, TeamID: team.ID})
	s.logger.Info("member logged in", zap.String("studentId", studentID), zap.String("team", teamName))
	return token, nil
}

// Logout closes the member session and flushes the whole cache. The flush
// is broader than strictly needed, but logout is infrequent and the blanket
// invalidation is guaranteed safe.
func (s *RosterService) Logout(ctx context.Context, studentID string) error {
	team, _, err := s.store.FindTeamByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if err := s.store.SetMemberSession(ctx, team.ID, studentID, false, ""); err != nil {
		return err
	}
	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventLogout})
	s.logger.Info("member logged out", zap.String("studentId", studentID))
	return nil
}

// EndQuiz marks the member terminal for the set-quiz flow. Further set-quiz
// submissions from this member are rejected, not silently accepted.
func (s *RosterService) EndQuiz(ctx context.Context, studentID string) error {
	team, _, err := s.store.FindTeamByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if err := s.store.MarkQuizEnded(ctx, team.ID, studentID); err != nil {
		return err
	}
	s.invalidate(ctx, cache.WriteEvent{Kind: cache.EventTeamWritten, TeamID: team.ID})
	return nil
}

// RecordViolation appends one telemetry record. Violations are immutable
// and never cached, so no invalidation fires.
func (s *RosterService) RecordViolation(ctx context.Context, teamID, memberName, violationType string) (domain.Violation, error) {
	v := domain.Violation{
		ID:            uuid.NewString(),
		TeamID:        teamID,
		MemberName:    memberName,
		ViolationType: violationType,
		CreatedAt:     s.clock(),
	}
	if err := s.store.RecordViolation(ctx, v); err != nil {
		return domain.Violation{}, err
	}
	return v, nil
}

func (s *RosterService) Violations(ctx context.Context) ([]domain.Violation, error) {
	return s.store.ListViolations(ctx)
}

func (s *RosterService) invalidate(ctx context.Context, event cache.WriteEvent) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.OnEvent(ctx, event); err != nil {
		s.logger.Error("roster write persisted but cache invalidation failed", zap.Error(err))
	}
}
