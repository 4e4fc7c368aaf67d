package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine with the full REST surface, the
// leaderboard stream and the operational endpoints.
func NewRouter(h *Handler, ws *WSHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	quizzes := router.Group("/quizzes")
	{
		quizzes.POST("/submit-quiz", h.SubmitQuiz)
		quizzes.GET("/get-leaderboard", h.GetLeaderboard)
		quizzes.GET("/check-quiz-published-status", h.CheckPublishedStatus)
		quizzes.POST("/publish-all-quizzes", h.PublishAll)
		quizzes.GET("/publish-all-quizzes", h.PublishAll)
		quizzes.POST("/unpublish-all-quizzes", h.UnpublishAll)
		quizzes.GET("/unpublish-all-quizzes", h.UnpublishAll)
		quizzes.GET("/:id", h.GetQuizWithQuestions)
	}

	questions := router.Group("/questions")
	{
		questions.POST("/submit", h.SubmitAnswer)
		questions.GET("", h.ListQuestions)
		questions.POST("", h.CreateQuestion)
		questions.GET("/:id", h.GetQuestion)
		questions.PUT("/:id", h.UpdateQuestion)
		questions.DELETE("/:id", h.DeleteQuestion)
	}

	teams := router.Group("/school-teams")
	{
		teams.GET("", h.ListTeams)
		teams.POST("", h.CreateTeam)
		teams.POST("/login", h.Login)
		teams.POST("/logout", h.Logout)
		teams.POST("/end-quiz", h.EndQuiz)
		teams.GET("/:id", h.GetTeam)
		teams.PUT("/:id", h.UpdateTeam)
		teams.DELETE("/:id", h.DeleteTeam)
	}

	router.POST("/violations", h.RecordViolation)
	router.GET("/violations", h.ListViolations)

	if ws != nil {
		router.GET("/ws/leaderboard", ws.Serve)
	}

	return router
}
