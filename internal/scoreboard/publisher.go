package scoreboard

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	Stream        = "score_events"
	ConsumerGroup = "scoreboard_updaters"
)

func scoreboardKey(contestID int) string {
	return fmt.Sprintf("contest:%d:scoreboard", contestID)
}

// Publisher appends scoring events (an accepted MCQ answer, a finalized code
// submission) to the redis stream consumed by the worker pool.
type Publisher struct {
	rdb *redis.Client
}

func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

func (p *Publisher) PublishScore(ctx context.Context, contestID, userID, points int) error {
	err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		ID:     "*",
		Values: map[string]interface{}{
			"contest_id": contestID,
			"user_id":    userID,
			"points":     points,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish score event: %w", err)
	}
	return nil
}
