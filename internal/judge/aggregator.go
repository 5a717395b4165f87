package judge

import (
	"context"
	"fmt"

	"arena/internal/models"
)

// Outcome is the aggregated state of one submission's tokens. Done is false
// while any test case is still queued or running; the remaining fields are
// only meaningful once Done is true.
type Outcome struct {
	Done            bool
	Status          string
	TestCasesPassed int
	TotalTestCases  int
	PointsEarned    int
}

// Aggregator polls the judge for a submission's tokens and reduces the
// per-test-case results to a final verdict and score.
type Aggregator struct {
	client    *Client
	batchSize int
}

func NewAggregator(client *Client, batchSize int) *Aggregator {
	return &Aggregator{client: client, batchSize: batchSize}
}

// Poll fetches results for all tokens in size-bounded chunks. Errors are
// transient: the caller leaves the submission as processing and the client
// retries by polling again. The aggregator never retries internally.
//
// Callers guarantee len(tokens) > 0; problems without test cases are rejected
// at creation.
func (a *Aggregator) Poll(ctx context.Context, tokens []string, problemPoints int) (Outcome, error) {
	results := make([]Result, 0, len(tokens))
	for start := 0; start < len(tokens); start += a.batchSize {
		end := start + a.batchSize
		if end > len(tokens) {
			end = len(tokens)
		}

		chunk, err := a.client.PollBatch(ctx, tokens[start:end])
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to poll judge results: %w", err)
		}
		results = append(results, chunk...)
	}

	for _, r := range results {
		if !r.Terminal() {
			return Outcome{Done: false}, nil
		}
	}

	total := len(results)
	passed := 0
	sawRuntimeError := false
	sawTimeLimit := false
	for _, r := range results {
		switch r.Status.ID {
		case StatusAccepted:
			passed++
		case StatusRuntimeError:
			sawRuntimeError = true
		case StatusTimeLimitExceeded:
			sawTimeLimit = true
		}
	}

	// Fixed verdict priority, first match wins.
	status := models.StatusWrongAnswer
	switch {
	case sawRuntimeError:
		status = models.StatusRuntimeError
	case sawTimeLimit:
		status = models.StatusTimeLimitExceeded
	case passed == total:
		status = models.StatusAccepted
	}

	return Outcome{
		Done:            true,
		Status:          status,
		TestCasesPassed: passed,
		TotalTestCases:  total,
		PointsEarned:    passed * problemPoints / total,
	}, nil
}
