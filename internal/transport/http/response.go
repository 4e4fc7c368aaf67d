package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"school-quiz-service/internal/domain"
)

// Response is the JSON envelope every client sees. A scoring failure is
// always an explicit success=false, never an ambiguous zero score.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Message: message})
}

func badRequest(c *gin.Context, message string) {
	fail(c, http.StatusBadRequest, message)
}

// failFromError maps domain errors onto the HTTP taxonomy: absent documents
// are 404, malformed input 400, ended-quiz and duplicate-name conflicts 409,
// bad credentials 401, everything else an upstream failure.
func failFromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrTeamNotFound),
		errors.Is(err, domain.ErrMemberNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmptySubmission),
		errors.Is(err, domain.ErrInvalidOptions),
		errors.Is(err, domain.ErrQuizFull),
		errors.Is(err, domain.ErrNotPublished):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrQuizEnded),
		errors.Is(err, domain.ErrDuplicateTeam):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrBadCredentials):
		fail(c, http.StatusUnauthorized, err.Error())
	default:
		fail(c, http.StatusBadGateway, "upstream failure")
	}
}
