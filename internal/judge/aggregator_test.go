package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arena/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pollServer serves results keyed by token from a fixed map of status ids.
func pollServer(t *testing.T, statusByToken map[string]int, polledChunks *[][]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		tokens := strings.Split(r.URL.Query().Get("tokens"), ",")
		if polledChunks != nil {
			*polledChunks = append(*polledChunks, tokens)
		}

		results := make([]Result, len(tokens))
		for i, token := range tokens {
			id, ok := statusByToken[token]
			require.True(t, ok, "unknown token %q", token)
			results[i] = Result{Token: token, Status: StatusInfo{ID: id}}
		}
		json.NewEncoder(w).Encode(map[string][]Result{"submissions": results})
	}))
}

func pollOnce(t *testing.T, statusByToken map[string]int, tokens []string, points int) Outcome {
	t.Helper()
	server := pollServer(t, statusByToken, nil)
	defer server.Close()

	a := NewAggregator(NewClient(server.URL, time.Second), 20)
	outcome, err := a.Poll(context.Background(), tokens, points)
	require.NoError(t, err)
	return outcome
}

func TestPollStillRunning(t *testing.T) {
	for _, pending := range []int{StatusInQueue, StatusRunning} {
		outcome := pollOnce(t, map[string]int{
			"a": StatusAccepted,
			"b": pending,
			"c": StatusAccepted,
		}, []string{"a", "b", "c"}, 100)
		assert.False(t, outcome.Done, "status id %d should keep the submission processing", pending)
	}
}

func TestPollVerdictPriority(t *testing.T) {
	// runtime_error beats time_limit_exceeded beats wrong_answer; accepted
	// only when everything passed.
	outcome := pollOnce(t, map[string]int{
		"a": StatusAccepted,
		"b": StatusRuntimeError,
		"c": StatusTimeLimitExceeded,
	}, []string{"a", "b", "c"}, 30)
	require.True(t, outcome.Done)
	assert.Equal(t, models.StatusRuntimeError, outcome.Status)

	outcome = pollOnce(t, map[string]int{
		"a": StatusAccepted,
		"b": StatusTimeLimitExceeded,
		"c": StatusWrongAnswer,
	}, []string{"a", "b", "c"}, 30)
	require.True(t, outcome.Done)
	assert.Equal(t, models.StatusTimeLimitExceeded, outcome.Status)
}

func TestPollScoreIsFloored(t *testing.T) {
	outcome := pollOnce(t, map[string]int{
		"a": StatusAccepted,
		"b": StatusAccepted,
		"c": StatusWrongAnswer,
	}, []string{"a", "b", "c"}, 10)

	require.True(t, outcome.Done)
	assert.Equal(t, models.StatusWrongAnswer, outcome.Status)
	assert.Equal(t, 2, outcome.TestCasesPassed)
	assert.Equal(t, 3, outcome.TotalTestCases)
	assert.Equal(t, 6, outcome.PointsEarned) // floor(2/3 * 10)
}

func TestPollAllPassed(t *testing.T) {
	outcome := pollOnce(t, map[string]int{
		"a": StatusAccepted,
		"b": StatusAccepted,
		"c": StatusAccepted,
		"d": StatusAccepted,
	}, []string{"a", "b", "c", "d"}, 40)

	require.True(t, outcome.Done)
	assert.Equal(t, models.StatusAccepted, outcome.Status)
	assert.Equal(t, 4, outcome.TestCasesPassed)
	assert.Equal(t, 40, outcome.PointsEarned)
}

func TestPollHalfPassedScenario(t *testing.T) {
	// One visible case passes, one hidden case fails: half credit, verdict
	// wrong_answer.
	outcome := pollOnce(t, map[string]int{
		"visible": StatusAccepted,
		"hidden":  StatusWrongAnswer,
	}, []string{"visible", "hidden"}, 100)

	require.True(t, outcome.Done)
	assert.Equal(t, models.StatusWrongAnswer, outcome.Status)
	assert.Equal(t, 1, outcome.TestCasesPassed)
	assert.Equal(t, 2, outcome.TotalTestCases)
	assert.Equal(t, 50, outcome.PointsEarned)
}

func TestPollChunksTokens(t *testing.T) {
	statusByToken := make(map[string]int, 45)
	tokens := make([]string, 45)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%d", i)
		statusByToken[tokens[i]] = StatusAccepted
	}

	var polledChunks [][]string
	server := pollServer(t, statusByToken, &polledChunks)
	defer server.Close()

	a := NewAggregator(NewClient(server.URL, time.Second), 20)
	outcome, err := a.Poll(context.Background(), tokens, 45)
	require.NoError(t, err)

	require.Len(t, polledChunks, 3)
	assert.Len(t, polledChunks[0], 20)
	assert.Len(t, polledChunks[1], 20)
	assert.Len(t, polledChunks[2], 5)

	require.True(t, outcome.Done)
	assert.Equal(t, 45, outcome.TestCasesPassed)
	assert.Equal(t, 45, outcome.PointsEarned)
}

func TestPollFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "judge down", http.StatusBadGateway)
	}))
	defer server.Close()

	a := NewAggregator(NewClient(server.URL, time.Second), 20)
	_, err := a.Poll(context.Background(), []string{"a"}, 10)
	require.Error(t, err)
}

func TestPollRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string][]Result{"submissions": {}})
	}))
	defer server.Close()

	a := NewAggregator(NewClient(server.URL, time.Second), 20)
	_, err := a.Poll(context.Background(), []string{"a", "b"}, 10)
	require.Error(t, err)
}
