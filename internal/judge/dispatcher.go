package judge

import (
	"context"
	"errors"
	"fmt"

	"arena/internal/logger"
	"arena/internal/models"

	"go.uber.org/zap"
)

// ErrDispatchFailed marks a dispatch that must not result in a persisted
// submission. Chunks sent before the failure are not rolled back; the judge
// may still execute them.
var ErrDispatchFailed = errors.New("judge dispatch failed")

// Dispatcher converts submitted code plus a problem's test cases into judge
// tokens, one per test case, respecting the judge's batch size limit.
type Dispatcher struct {
	client    *Client
	batchSize int
}

func NewDispatcher(client *Client, batchSize int) *Dispatcher {
	return &Dispatcher{client: client, batchSize: batchSize}
}

// Dispatch sends one execution per test case in size-bounded chunks and
// returns the tokens in test-case order: token[i] belongs to testCases[i].
func (d *Dispatcher) Dispatch(ctx context.Context, code string, languageID int, testCases []models.TestCase) ([]string, error) {
	items := make([]BatchItem, len(testCases))
	for i, tc := range testCases {
		items[i] = BatchItem{
			LanguageID:     languageID,
			SourceCode:     code,
			Stdin:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
		}
	}

	tokens := make([]string, 0, len(items))
	for start := 0; start < len(items); start += d.batchSize {
		end := start + d.batchSize
		if end > len(items) {
			end = len(items)
		}

		chunkTokens, err := d.client.SubmitBatch(ctx, items[start:end])
		if err != nil {
			logger.Log.Error("Judge batch dispatch failed",
				zap.Int("chunk_start", start),
				zap.Int("chunk_size", end-start),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
		}
		tokens = append(tokens, chunkTokens...)
	}

	return tokens, nil
}
