package scoreboard

import (
	"context"
	"fmt"
	"strconv"

	"arena/internal/logger"
	"arena/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pool runs the scoreboard consumer group.
type Pool struct {
	workers    []*Worker
	numWorkers int
	rdb        *redis.Client
}

func NewPool(numWorkers int, rdb *redis.Client) *Pool {
	return &Pool{
		workers:    make([]*Worker, numWorkers),
		numWorkers: numWorkers,
		rdb:        rdb,
	}
}

func (p *Pool) Start(ctx context.Context) error {
	_, err := p.rdb.XGroupCreateMkStream(ctx, Stream, ConsumerGroup, "$").Result()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for i := 0; i < p.numWorkers; i++ {
		worker := NewWorker(fmt.Sprintf("ScoreWorker-%d", i+1), p.rdb)
		worker.Start(ctx)
		p.workers[i] = worker

		logger.Log.Info("Starting scoreboard worker",
			zap.String("worker_id", worker.id))
	}

	logger.Log.Info("Scoreboard worker pool started",
		zap.Int("num_workers", p.numWorkers))

	return nil
}

func (p *Pool) Stop() {
	for _, worker := range p.workers {
		worker.Stop()
	}
}

// Top reads the highest-scoring entries for a contest. Usernames are resolved
// by the caller; entries come back in descending point order.
func Top(ctx context.Context, rdb *redis.Client, contestID, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := rdb.ZRevRangeWithScores(ctx, scoreboardKey(contestID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read scoreboard: %w", err)
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		member, ok := row.Member.(string)
		if !ok {
			continue
		}
		userID, err := strconv.Atoi(member)
		if err != nil {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			UserID: userID,
			Points: int(row.Score),
		})
	}
	return entries, nil
}
