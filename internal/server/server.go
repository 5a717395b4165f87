package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"arena/configs"
	"arena/internal/cache"
	"arena/internal/dbs"
	"arena/internal/handlers"
	"arena/internal/judge"
	"arena/internal/logger"
	"arena/internal/middlewares"
	"arena/internal/repositories"
	"arena/internal/scoreboard"
	"arena/internal/services"

	"github.com/gin-gonic/gin"
)

const submitLockTTL = 30 * time.Second

func StartGinServer() {
	logger.InitLogger()
	defer logger.SyncLogger()

	config := configs.LoadConfig()

	db, err := dbs.Init(config)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	rdb, err := dbs.InitRedis(ctx, config)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer rdb.Close()

	sharedCache := cache.NewRedisCache(rdb)
	tokenService := services.NewTokenService(config.JWTSecret)

	userRepo := repositories.NewUserRepository(db, sharedCache)
	contestRepo := repositories.NewContestRepository(db)
	questionRepo := repositories.NewQuestionRepository(db)
	problemRepo := repositories.NewProblemRepository(db, sharedCache)
	submissionRepo := repositories.NewSubmissionRepository(db)

	judgeClient := judge.NewClient(config.JudgeBaseURL, config.JudgeTimeout)
	dispatcher := judge.NewDispatcher(judgeClient, config.JudgeBatchSize)
	aggregator := judge.NewAggregator(judgeClient, config.JudgeBatchSize)

	scores := scoreboard.NewPublisher(rdb)
	pool := scoreboard.NewPool(config.ScoreboardWorkers, rdb)
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("Failed to start scoreboard workers: %v", err)
	}
	defer pool.Stop()

	submitLock := services.NewSubmitLock(rdb, submitLockTTL)
	submissionService := services.NewSubmissionService(
		problemRepo, submissionRepo, dispatcher, aggregator, submitLock, scores)

	router := gin.New()
	router.Use(middlewares.ErrorHandlerMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	auth := middlewares.AuthMiddleware(tokenService)

	handlers.NewAuthHandler(userRepo, tokenService).RegisterRoutes(router)
	handlers.NewContestHandler(contestRepo, questionRepo, problemRepo, userRepo, scores, rdb).
		RegisterRoutes(router, auth)
	handlers.NewProblemHandler(problemRepo, submissionService).RegisterRoutes(router, auth)

	port := ":" + config.ServerPort
	log.Printf("Starting server on port %s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
