package scoreboard

import (
	"context"
	"strconv"
	"time"

	"arena/internal/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Worker consumes score events from the stream and applies them to the
// per-contest sorted set.
type Worker struct {
	id   string
	quit chan bool
	rdb  *redis.Client
}

func NewWorker(id string, rdb *redis.Client) *Worker {
	return &Worker{
		id:   id,
		quit: make(chan bool),
		rdb:  rdb,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-w.quit:
				return
			default:
				entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
					Group:    ConsumerGroup,
					Consumer: w.id,
					Streams:  []string{Stream, ">"},
					Count:    1,
					Block:    5 * time.Second,
				}).Result()

				if err != nil {
					if err != redis.Nil {
						logger.Log.Error("Redis operation failed",
							zap.String("worker_id", w.id),
							zap.Error(err))
					}
					continue
				}

				for _, stream := range entries {
					for _, msg := range stream.Messages {
						w.processEvent(ctx, msg)
					}
				}
			}
		}
	}()
}

func (w *Worker) Stop() {
	logger.Log.Info("Closing scoreboard worker",
		zap.String("worker_id", w.id))
	w.quit <- true
	close(w.quit)
}

func (w *Worker) processEvent(ctx context.Context, msg redis.XMessage) {
	if err := w.rdb.XAck(ctx, Stream, ConsumerGroup, msg.ID).Err(); err != nil {
		logger.Log.Error("Failed to acknowledge score event",
			zap.String("worker_id", w.id),
			zap.Error(err))
	}

	contestID, ok1 := intValue(msg, "contest_id")
	userID, ok2 := intValue(msg, "user_id")
	points, ok3 := intValue(msg, "points")
	if !ok1 || !ok2 || !ok3 {
		logger.Log.Error("Malformed score event",
			zap.String("worker_id", w.id),
			zap.Any("values", msg.Values))
		return
	}

	err := w.rdb.ZIncrBy(ctx, scoreboardKey(contestID), float64(points), strconv.Itoa(userID)).Err()
	if err != nil {
		logger.Log.Error("Failed to apply score event",
			zap.String("worker_id", w.id),
			zap.Int("contest_id", contestID),
			zap.Int("user_id", userID),
			zap.Error(err))
		return
	}

	logger.Log.Info("Score event applied",
		zap.String("worker_id", w.id),
		zap.Int("contest_id", contestID),
		zap.Int("user_id", userID),
		zap.Int("points", points))
}

func intValue(msg redis.XMessage, key string) (int, bool) {
	raw, ok := msg.Values[key].(string)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
