package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"arena/internal/handlers/response"
	"arena/internal/judge"
	"arena/internal/logger"
	"arena/internal/middlewares"
	"arena/internal/models"
	"arena/internal/repositories"
	"arena/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProblemHandler struct {
	problemRepo repositories.ProblemRepository
	submissions *services.SubmissionService
}

func NewProblemHandler(problemRepo repositories.ProblemRepository, submissions *services.SubmissionService) *ProblemHandler {
	return &ProblemHandler{
		problemRepo: problemRepo,
		submissions: submissions,
	}
}

// GetProblem returns the statement with visible test cases only. Hidden test
// cases stay hidden here but are judged like any other on submit.
func (h *ProblemHandler) GetProblem(c *gin.Context) {
	problemID, err := strconv.Atoi(c.Param("problemId"))
	if err != nil || problemID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeProblemNotFound)
		return
	}

	detail, err := h.problemRepo.GetProblemDetail(context.Background(), problemID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeProblemNotFound)
			return
		}
		logger.Log.Error("Failed to get problem",
			zap.Int("problem_id", problemID),
			zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	response.OK(c, http.StatusOK, detail)
}

func (h *ProblemHandler) SubmitCode(c *gin.Context) {
	problemID, err := strconv.Atoi(c.Param("problemId"))
	if err != nil || problemID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeProblemNotFound)
		return
	}

	var req models.SubmitCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}

	userID := middlewares.CallerID(c)
	submission, err := h.submissions.Submit(context.Background(), userID, problemID, req.Code, req.Language)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsupportedLanguage):
			response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		case errors.Is(err, repositories.ErrNotFound):
			response.Error(c, http.StatusNotFound, response.CodeProblemNotFound)
		case errors.Is(err, services.ErrContestNotActive):
			response.Error(c, http.StatusBadRequest, response.CodeContestNotActive)
		case errors.Is(err, services.ErrSubmissionInFlight):
			response.Error(c, http.StatusConflict, response.CodeAlreadySubmitted)
		case errors.Is(err, judge.ErrDispatchFailed):
			logger.Log.Error("Judge dispatch failed",
				zap.Int("problem_id", problemID),
				zap.Error(err))
			response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		default:
			logger.Log.Error("Failed to submit code",
				zap.Int("problem_id", problemID),
				zap.Error(err))
			response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		}
		return
	}

	response.OK(c, http.StatusCreated, gin.H{
		"submissionId": submission.ID,
		"status":       submission.Status,
	})
}

func (h *ProblemHandler) GetSubmission(c *gin.Context) {
	submissionID, err := strconv.Atoi(c.Param("submissionId"))
	if err != nil || submissionID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeSubmissionNotFound)
		return
	}

	userID := middlewares.CallerID(c)
	status, err := h.submissions.Status(context.Background(), userID, submissionID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSubmissionNotFound)
		case errors.Is(err, services.ErrForbidden):
			response.Error(c, http.StatusForbidden, response.CodeForbidden)
		default:
			// Poll failure is transient: the submission stays processing and
			// the client is expected to query again.
			logger.Log.Error("Failed to resolve submission status",
				zap.Int("submission_id", submissionID),
				zap.Error(err))
			response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		}
		return
	}

	response.OK(c, http.StatusOK, status)
}

func (h *ProblemHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	problemGroup := router.Group("/api/problems", auth)
	{
		problemGroup.GET("/:problemId", h.GetProblem)
		problemGroup.POST("/:problemId/submit", h.SubmitCode)
		problemGroup.GET("/submission/:submissionId", h.GetSubmission)
	}
}
