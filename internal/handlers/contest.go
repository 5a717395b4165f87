package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"arena/internal/handlers/response"
	"arena/internal/logger"
	"arena/internal/middlewares"
	"arena/internal/models"
	"arena/internal/repositories"
	"arena/internal/scoreboard"
	"arena/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const leaderboardLimit = 50

type ContestHandler struct {
	contestRepo  repositories.ContestRepository
	questionRepo repositories.QuestionRepository
	problemRepo  repositories.ProblemRepository
	userRepo     repositories.UserRepository
	scores       services.ScorePublisher
	rdb          *redis.Client
}

func NewContestHandler(
	contestRepo repositories.ContestRepository,
	questionRepo repositories.QuestionRepository,
	problemRepo repositories.ProblemRepository,
	userRepo repositories.UserRepository,
	scores services.ScorePublisher,
	rdb *redis.Client,
) *ContestHandler {
	return &ContestHandler{
		contestRepo:  contestRepo,
		questionRepo: questionRepo,
		problemRepo:  problemRepo,
		userRepo:     userRepo,
		scores:       scores,
		rdb:          rdb,
	}
}

func (h *ContestHandler) ListContests(c *gin.Context) {
	contests, err := h.contestRepo.ListContests(context.Background())
	if err != nil {
		logger.Log.Error("Failed to list contests", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}
	response.OK(c, http.StatusOK, contests)
}

func (h *ContestHandler) ListMyContests(c *gin.Context) {
	contests, err := h.contestRepo.ListContestsByCreator(context.Background(), middlewares.CallerID(c))
	if err != nil {
		logger.Log.Error("Failed to list caller contests", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}
	response.OK(c, http.StatusOK, contests)
}

func (h *ContestHandler) CreateContest(c *gin.Context) {
	if middlewares.CallerRole(c) != models.RoleCreator {
		response.Error(c, http.StatusForbidden, response.CodeForbidden)
		return
	}

	var req models.CreateContestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}

	contest := &models.Contest{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   middlewares.CallerID(c),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}
	if err := h.contestRepo.CreateContest(context.Background(), contest); err != nil {
		logger.Log.Error("Failed to create contest", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	response.OK(c, http.StatusCreated, contest)
}

func (h *ContestHandler) GetContest(c *gin.Context) {
	contestID, err := strconv.Atoi(c.Param("contestId"))
	if err != nil || contestID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
		return
	}
	userID := middlewares.CallerID(c)
	ctx := context.Background()

	contest, err := h.contestRepo.GetContest(ctx, contestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
			return
		}
		logger.Log.Error("Failed to get contest", zap.Int("contest_id", contestID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	mcqs, err := h.contestRepo.GetMcqsByContest(ctx, contestID)
	if err != nil {
		logger.Log.Error("Failed to get contest questions", zap.Int("contest_id", contestID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}
	problems, err := h.contestRepo.GetDsaProblemsByContest(ctx, contestID)
	if err != nil {
		logger.Log.Error("Failed to get contest problems", zap.Int("contest_id", contestID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	mcqSubs, err := h.contestRepo.GetUserMcqSubmissions(ctx, userID, contestID)
	if err != nil {
		logger.Log.Error("Failed to get caller mcq submissions", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}
	dsaSubs, err := h.contestRepo.GetUserDsaSubmissions(ctx, userID, contestID)
	if err != nil {
		logger.Log.Error("Failed to get caller dsa submissions", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	detail := models.ContestDetail{
		Contest:     *contest,
		Mcqs:        make([]models.McqQuestionView, len(mcqs)),
		DsaProblems: make([]models.DsaProblemView, len(problems)),
	}
	for i, q := range mcqs {
		view := models.McqQuestionView{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			Options:      q.Options,
			Points:       q.Points,
		}
		if sub, ok := mcqSubs[q.ID]; ok {
			view.UserSubmission = &sub
		}
		detail.Mcqs[i] = view
	}
	for i, p := range problems {
		view := models.DsaProblemView{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Tags:        p.Tags,
			Points:      p.Points,
			TimeLimit:   p.TimeLimit,
			MemoryLimit: p.MemoryLimit,
		}
		if sub, ok := dsaSubs[p.ID]; ok {
			view.UserSubmission = &sub
		}
		detail.DsaProblems[i] = view
	}

	response.OK(c, http.StatusOK, detail)
}

func (h *ContestHandler) GetLeaderboard(c *gin.Context) {
	contestID, err := strconv.Atoi(c.Param("contestId"))
	if err != nil || contestID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
		return
	}
	ctx := context.Background()

	if _, err := h.contestRepo.GetContest(ctx, contestID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
			return
		}
		logger.Log.Error("Failed to get contest", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	entries, err := scoreboard.Top(ctx, h.rdb, contestID, leaderboardLimit)
	if err != nil {
		logger.Log.Error("Failed to read leaderboard", zap.Int("contest_id", contestID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	userIDs := make([]int, len(entries))
	for i, e := range entries {
		userIDs[i] = e.UserID
	}
	names, err := h.userRepo.GetUsernames(ctx, userIDs)
	if err != nil {
		logger.Log.Error("Failed to resolve leaderboard usernames", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}
	for i := range entries {
		entries[i].Username = names[entries[i].UserID]
	}

	response.OK(c, http.StatusOK, entries)
}

func (h *ContestHandler) CreateMcq(c *gin.Context) {
	if middlewares.CallerRole(c) != models.RoleCreator {
		response.Error(c, http.StatusForbidden, response.CodeForbidden)
		return
	}

	contestID, err := strconv.Atoi(c.Param("contestId"))
	if err != nil || contestID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
		return
	}

	var req models.CreateMcqRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}

	ctx := context.Background()
	if _, err := h.contestRepo.GetContest(ctx, contestID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
			return
		}
		logger.Log.Error("Failed to get contest", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	question := &models.McqQuestion{
		ContestID:          contestID,
		QuestionText:       req.QuestionText,
		Options:            req.Options,
		CorrectOptionIndex: req.CorrectOptionIndex,
		Points:             req.Points,
	}
	if err := h.questionRepo.CreateMcq(ctx, question); err != nil {
		logger.Log.Error("Failed to create mcq question", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{
		"id":        question.ID,
		"contestId": question.ContestID,
	})
}

func (h *ContestHandler) SubmitMcq(c *gin.Context) {
	contestID, err := strconv.Atoi(c.Param("contestId"))
	if err != nil || contestID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
		return
	}
	questionID, err := strconv.Atoi(c.Param("questionId"))
	if err != nil || questionID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeQuestionNotFound)
		return
	}

	var req models.SubmitMcqRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}

	userID := middlewares.CallerID(c)
	ctx := context.Background()

	contest, err := h.contestRepo.GetContest(ctx, contestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
			return
		}
		logger.Log.Error("Failed to get contest", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	// Same window policy as code submissions: creators bypass it.
	isCreator := contest.CreatorID == userID
	if !isCreator && !contest.IsActive(time.Now()) {
		response.Error(c, http.StatusBadRequest, response.CodeContestNotActive)
		return
	}

	question, err := h.questionRepo.GetMcq(ctx, questionID, contestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeQuestionNotFound)
			return
		}
		logger.Log.Error("Failed to get question", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	selected := *req.SelectedOptionIndex
	if selected >= len(question.Options) {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}

	isCorrect := selected == question.CorrectOptionIndex
	pointsEarned := 0
	if isCorrect {
		pointsEarned = question.Points
	}

	submission := &models.McqSubmission{
		UserID:              userID,
		QuestionID:          questionID,
		SelectedOptionIndex: selected,
		IsCorrect:           isCorrect,
		PointsEarned:        pointsEarned,
	}
	if err := h.questionRepo.CreateMcqSubmission(ctx, submission); err != nil {
		if errors.Is(err, repositories.ErrAlreadySubmitted) {
			response.Error(c, http.StatusBadRequest, response.CodeAlreadySubmitted)
			return
		}
		logger.Log.Error("Failed to create mcq submission", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	if pointsEarned > 0 {
		if err := h.scores.PublishScore(ctx, contestID, userID, pointsEarned); err != nil {
			logger.Log.Warn("Failed to publish score event", zap.Error(err))
		}
	}

	response.OK(c, http.StatusCreated, gin.H{
		"isCorrect":    isCorrect,
		"pointsEarned": pointsEarned,
	})
}

func (h *ContestHandler) DeleteMcq(c *gin.Context) {
	contestID, err := strconv.Atoi(c.Param("contestId"))
	if err != nil || contestID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
		return
	}
	questionID, err := strconv.Atoi(c.Param("questionId"))
	if err != nil || questionID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeQuestionNotFound)
		return
	}

	ctx := context.Background()
	if !h.requireContestOwner(c, ctx, contestID) {
		return
	}

	if _, err := h.questionRepo.GetMcq(ctx, questionID, contestID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeQuestionNotFound)
			return
		}
		logger.Log.Error("Failed to get question", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	if err := h.questionRepo.DeleteMcq(ctx, questionID); err != nil {
		logger.Log.Error("Failed to delete question", zap.Int("question_id", questionID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *ContestHandler) CreateDsaProblem(c *gin.Context) {
	if middlewares.CallerRole(c) != models.RoleCreator {
		response.Error(c, http.StatusForbidden, response.CodeForbidden)
		return
	}

	contestID, err := strconv.Atoi(c.Param("contestId"))
	if err != nil || contestID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
		return
	}

	var req models.CreateDsaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest)
		return
	}

	ctx := context.Background()
	if _, err := h.contestRepo.GetContest(ctx, contestID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
			return
		}
		logger.Log.Error("Failed to get contest", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	problem := &models.DsaProblem{
		ContestID:   contestID,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Points:      req.Points,
		TimeLimit:   req.TimeLimit,
		MemoryLimit: req.MemoryLimit,
	}
	if err := h.problemRepo.CreateProblem(ctx, problem, req.TestCases); err != nil {
		logger.Log.Error("Failed to create problem", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	response.OK(c, http.StatusCreated, gin.H{
		"id":        problem.ID,
		"contestId": problem.ContestID,
	})
}

func (h *ContestHandler) DeleteDsaProblem(c *gin.Context) {
	contestID, err := strconv.Atoi(c.Param("contestId"))
	if err != nil || contestID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
		return
	}
	problemID, err := strconv.Atoi(c.Param("problemId"))
	if err != nil || problemID <= 0 {
		response.Error(c, http.StatusNotFound, response.CodeProblemNotFound)
		return
	}

	ctx := context.Background()
	if !h.requireContestOwner(c, ctx, contestID) {
		return
	}

	if err := h.problemRepo.DeleteProblem(ctx, problemID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeProblemNotFound)
			return
		}
		logger.Log.Error("Failed to delete problem", zap.Int("problem_id", problemID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return
	}

	response.OK(c, http.StatusOK, gin.H{"deleted": true})
}

// requireContestOwner writes the error response itself and returns false when
// the caller does not own the contest.
func (h *ContestHandler) requireContestOwner(c *gin.Context, ctx context.Context, contestID int) bool {
	contest, err := h.contestRepo.GetContest(ctx, contestID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			response.Error(c, http.StatusNotFound, response.CodeContestNotFound)
			return false
		}
		logger.Log.Error("Failed to get contest", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
		return false
	}
	if contest.CreatorID != middlewares.CallerID(c) {
		response.Error(c, http.StatusForbidden, response.CodeForbidden)
		return false
	}
	return true
}

func (h *ContestHandler) RegisterRoutes(router *gin.Engine, auth gin.HandlerFunc) {
	contestGroup := router.Group("/api/contests", auth)
	{
		contestGroup.GET("", h.ListContests)
		contestGroup.GET("/my", h.ListMyContests)
		contestGroup.POST("", h.CreateContest)
		contestGroup.GET("/:contestId", h.GetContest)
		contestGroup.GET("/:contestId/leaderboard", h.GetLeaderboard)
		contestGroup.POST("/:contestId/mcq", h.CreateMcq)
		contestGroup.POST("/:contestId/mcq/:questionId/submit", h.SubmitMcq)
		contestGroup.DELETE("/:contestId/mcq/:questionId", h.DeleteMcq)
		contestGroup.POST("/:contestId/dsa", h.CreateDsaProblem)
		contestGroup.DELETE("/:contestId/dsa/:problemId", h.DeleteDsaProblem)
	}
}
