package http

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"school-quiz-service/internal/app"
	"school-quiz-service/internal/cache"
	"school-quiz-service/internal/domain"
	"school-quiz-service/internal/scoring"
)

// TTLs controls how long each class of cached read stays valid. The
// leaderboard and publish-status windows are shorter than the default
// because their underlying data changes mid-event.
type TTLs struct {
	Default       time.Duration
	Leaderboard   time.Duration
	PublishStatus time.Duration
}

// Handler wires the REST surface: cache-aside reads through the Gateway,
// writes through the services (which run the invalidation table).
type Handler struct {
	submissions *app.SubmissionService
	roster      *app.RosterService
	content     *app.ContentService
	store       app.Store
	gateway     *Gateway
	hub         *LeaderboardHub
	logger      *zap.Logger
	ttls        TTLs
	clock       func() time.Time
}

func NewHandler(
	submissions *app.SubmissionService,
	roster *app.RosterService,
	content *app.ContentService,
	store app.Store,
	gateway *Gateway,
	hub *LeaderboardHub,
	logger *zap.Logger,
	ttls TTLs,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		submissions: submissions,
		roster:      roster,
		content:     content,
		store:       store,
		gateway:     gateway,
		hub:         hub,
		logger:      logger,
		ttls:        ttls,
		clock:       time.Now,
	}
}

func (h *Handler) loadLeaderboard(ctx context.Context) (domain.Leaderboard, error) {
	teams, err := h.store.ListTeams(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return scoring.BuildLeaderboard(teams, h.clock()), nil
}

// LeaderboardSnapshot serves the stream's initial frame through the same
// cache-aside path as the REST read.
func (h *Handler) LeaderboardSnapshot(ctx context.Context) (domain.Leaderboard, error) {
	return readThrough(ctx, h.gateway, cache.KeyLeaderboard, h.ttls.Leaderboard, h.loadLeaderboard)
}

// refreshLeaderboard recomputes the board after a score write (the cache
// entry was just invalidated, so this also re-warms it) and fans it out to
// websocket subscribers.
func (h *Handler) refreshLeaderboard(ctx context.Context) {
	lb, err := readThrough(ctx, h.gateway, cache.KeyLeaderboard, h.ttls.Leaderboard, h.loadLeaderboard)
	if err != nil {
		h.logger.Warn("leaderboard refresh failed", zap.Error(err))
		return
	}
	if h.hub != nil {
		h.hub.Publish(lb)
	}
}

type submitQuizRequest struct {
	StudentID string                    `json:"studentId" binding:"required"`
	QuizID    int                       `json:"quizId" binding:"required"`
	Answers   []domain.AnswerSubmission `json:"submittedAnswers"`
}

func (h *Handler) SubmitQuiz(c *gin.Context) {
	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid submission payload")
		return
	}

	result, err := h.submissions.SubmitQuizSet(c.Request.Context(), req.StudentID, req.QuizID, req.Answers)
	if err != nil {
		failFromError(c, err)
		return
	}
	h.refreshLeaderboard(c.Request.Context())
	ok(c, result)
}

type submitAnswerRequest struct {
	StudentID  string  `json:"studentId" binding:"required"`
	QuestionID string  `json:"questionId" binding:"required"`
	Answer     string  `json:"answer" binding:"required"`
	TimeSpent  float64 `json:"timeSpent"`
}

func (h *Handler) SubmitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid answer payload")
		return
	}

	result, err := h.submissions.SubmitLiveAnswer(c.Request.Context(), req.StudentID, domain.LiveAnswer{
		QuestionID: req.QuestionID,
		Answer:     req.Answer,
		TimeSpent:  req.TimeSpent,
	})
	if err != nil {
		failFromError(c, err)
		return
	}
	h.refreshLeaderboard(c.Request.Context())
	ok(c, result)
}

func (h *Handler) GetLeaderboard(c *gin.Context) {
	lb, err := readThrough(c.Request.Context(), h.gateway, cache.KeyLeaderboard, h.ttls.Leaderboard, h.loadLeaderboard)
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, lb)
}

func (h *Handler) CheckPublishedStatus(c *gin.Context) {
	published, err := readThrough(c.Request.Context(), h.gateway, cache.KeyPublishedStatus, h.ttls.PublishStatus,
		func(ctx context.Context) (bool, error) {
			return h.content.PublishedStatus(ctx)
		})
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, gin.H{"isPublished": published})
}

func (h *Handler) PublishAll(c *gin.Context) {
	h.setPublished(c, true)
}

func (h *Handler) UnpublishAll(c *gin.Context) {
	h.setPublished(c, false)
}

func (h *Handler) setPublished(c *gin.Context, published bool) {
	if err := h.content.SetPublishedAll(c.Request.Context(), published); err != nil {
		failFromError(c, err)
		return
	}
	ok(c, gin.H{"isPublished": published})
}

type quizView struct {
	domain.Quiz
	Questions []domain.Question `json:"questions"`
}

func (h *Handler) GetQuizWithQuestions(c *gin.Context) {
	quizID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, "quiz id must be numeric")
		return
	}

	view, err := readThrough(c.Request.Context(), h.gateway, cache.KeyQuizQuestions(quizID), h.ttls.Default,
		func(ctx context.Context) (quizView, error) {
			quiz, questions, err := h.content.QuizWithQuestions(ctx, quizID)
			if err != nil {
				return quizView{}, err
			}
			return quizView{Quiz: quiz, Questions: questions}, nil
		})
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, view)
}

func (h *Handler) ListQuestions(c *gin.Context) {
	questions, err := readThrough(c.Request.Context(), h.gateway, cache.KeyQuestionsAll, h.ttls.Default,
		func(ctx context.Context) ([]domain.Question, error) {
			return h.content.Questions(ctx)
		})
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, questions)
}

func (h *Handler) GetQuestion(c *gin.Context) {
	id := c.Param("id")
	question, err := readThrough(c.Request.Context(), h.gateway, cache.KeyQuestion(id), h.ttls.Default,
		func(ctx context.Context) (domain.Question, error) {
			return h.content.Question(ctx, id)
		})
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, question)
}

func (h *Handler) CreateQuestion(c *gin.Context) {
	var q domain.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, "invalid question payload")
		return
	}
	createdQ, err := h.content.CreateQuestion(c.Request.Context(), q)
	if err != nil {
		failFromError(c, err)
		return
	}
	created(c, createdQ)
}

func (h *Handler) UpdateQuestion(c *gin.Context) {
	var q domain.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		badRequest(c, "invalid question payload")
		return
	}
	q.ID = c.Param("id")
	if err := h.content.UpdateQuestion(c.Request.Context(), q); err != nil {
		failFromError(c, err)
		return
	}
	ok(c, q)
}

func (h *Handler) DeleteQuestion(c *gin.Context) {
	if err := h.content.DeleteQuestion(c.Request.Context(), c.Param("id")); err != nil {
		failFromError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) ListTeams(c *gin.Context) {
	teams, err := readThrough(c.Request.Context(), h.gateway, cache.KeyTeamsAll, h.ttls.Default,
		func(ctx context.Context) ([]domain.Team, error) {
			return h.store.ListTeams(ctx)
		})
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, teams)
}

func (h *Handler) GetTeam(c *gin.Context) {
	id := c.Param("id")
	team, err := readThrough(c.Request.Context(), h.gateway, cache.KeyTeam(id), h.ttls.Default,
		func(ctx context.Context) (domain.Team, error) {
			return h.store.GetTeam(ctx, id)
		})
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, team)
}

type registerTeamRequest struct {
	TeamName        string          `json:"teamName" binding:"required"`
	SchoolName      string          `json:"schoolName" binding:"required"`
	EducationalZone string          `json:"educationalZone"`
	Password        string          `json:"password" binding:"required"`
	Members         []domain.Member `json:"members"`
}

func (h *Handler) CreateTeam(c *gin.Context) {
	var req registerTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid team payload")
		return
	}

	team, err := h.roster.RegisterTeam(c.Request.Context(), domain.Team{
		TeamName:        req.TeamName,
		SchoolName:      req.SchoolName,
		EducationalZone: req.EducationalZone,
		Members:         req.Members,
	}, req.Password)
	if err != nil {
		failFromError(c, err)
		return
	}
	created(c, team)
}

func (h *Handler) UpdateTeam(c *gin.Context) {
	var team domain.Team
	if err := c.ShouldBindJSON(&team); err != nil {
		badRequest(c, "invalid team payload")
		return
	}
	team.ID = c.Param("id")
	if err := h.roster.UpdateTeam(c.Request.Context(), team); err != nil {
		failFromError(c, err)
		return
	}
	ok(c, team)
}

func (h *Handler) DeleteTeam(c *gin.Context) {
	if err := h.roster.DeleteTeam(c.Request.Context(), c.Param("id")); err != nil {
		failFromError(c, err)
		return
	}
	ok(c, nil)
}

type loginRequest struct {
	TeamName  string `json:"teamName" binding:"required"`
	StudentID string `json:"studentId" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid login payload")
		return
	}
	token, err := h.roster.Login(c.Request.Context(), req.TeamName, req.StudentID, req.Password)
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, gin.H{"authToken": token})
}

type studentRequest struct {
	StudentID string `json:"studentId" binding:"required"`
}

func (h *Handler) Logout(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid logout payload")
		return
	}
	if err := h.roster.Logout(c.Request.Context(), req.StudentID); err != nil {
		failFromError(c, err)
		return
	}
	ok(c, nil)
}

func (h *Handler) EndQuiz(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if err := h.roster.EndQuiz(c.Request.Context(), req.StudentID); err != nil {
		failFromError(c, err)
		return
	}
	ok(c, nil)
}

type violationRequest struct {
	TeamID        string `json:"teamId" binding:"required"`
	MemberName    string `json:"memberName" binding:"required"`
	ViolationType string `json:"violationType" binding:"required"`
}

func (h *Handler) RecordViolation(c *gin.Context) {
	var req violationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid violation payload")
		return
	}
	v, err := h.roster.RecordViolation(c.Request.Context(), req.TeamID, req.MemberName, req.ViolationType)
	if err != nil {
		failFromError(c, err)
		return
	}
	created(c, v)
}

func (h *Handler) ListViolations(c *gin.Context) {
	violations, err := h.roster.Violations(c.Request.Context())
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, violations)
}
