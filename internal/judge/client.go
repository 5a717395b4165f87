package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Status ids used by the judge for one executed test case.
const (
	StatusInQueue           = 1
	StatusRunning           = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusRuntimeError      = 6
)

// BatchItem is one test-case execution request.
type BatchItem struct {
	LanguageID     int    `json:"language_id"`
	SourceCode     string `json:"source_code"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output,omitempty"`
}

type StatusInfo struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is the judge's outcome for one token.
type Result struct {
	Token  string     `json:"token"`
	Stdout *string    `json:"stdout"`
	Stderr *string    `json:"stderr"`
	Status StatusInfo `json:"status"`
}

// Terminal reports whether this result will not change on a later poll.
func (r Result) Terminal() bool {
	return r.Status.ID != StatusInQueue && r.Status.ID != StatusRunning
}

// Client talks to the external batch execution service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SubmitBatch sends up to one batch worth of executions asynchronously
// (wait=false) and returns the judge's tokens in request order.
func (c *Client) SubmitBatch(ctx context.Context, items []BatchItem) ([]string, error) {
	payload, err := json.Marshal(map[string][]BatchItem{"submissions": items})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	url := c.baseURL + "/submissions/batch?base64_encoded=false&wait=false"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read dispatch response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("judge returned status %d: %s", resp.StatusCode, body)
	}

	var entries []struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("judge returned unexpected dispatch format: %w", err)
	}
	if len(entries) != len(items) {
		return nil, fmt.Errorf("judge returned %d tokens for %d submissions", len(entries), len(items))
	}

	tokens := make([]string, len(entries))
	for i, e := range entries {
		if e.Token == "" {
			return nil, fmt.Errorf("judge returned an empty token at position %d", i)
		}
		tokens[i] = e.Token
	}
	return tokens, nil
}

// PollBatch fetches the current outcomes for up to one batch worth of tokens,
// in token order.
func (c *Client) PollBatch(ctx context.Context, tokens []string) ([]Result, error) {
	url := fmt.Sprintf("%s/submissions/batch?tokens=%s&base64_encoded=false",
		c.baseURL, strings.Join(tokens, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build poll request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read poll response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("judge returned status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Submissions []Result `json:"submissions"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("judge returned unexpected poll format: %w", err)
	}
	if len(payload.Submissions) != len(tokens) {
		return nil, fmt.Errorf("judge returned %d results for %d tokens", len(payload.Submissions), len(tokens))
	}
	return payload.Submissions, nil
}
