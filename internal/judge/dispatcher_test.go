package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"arena/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestCases(n int) []models.TestCase {
	testCases := make([]models.TestCase, n)
	for i := range testCases {
		testCases[i] = models.TestCase{
			ID:             i + 1,
			Position:       i,
			Input:          fmt.Sprintf("input-%d", i),
			ExpectedOutput: fmt.Sprintf("output-%d", i),
		}
	}
	return testCases
}

// fakeJudge answers batch submits with sequential tokens derived from each
// item's stdin, so tests can verify token order against test-case order.
func fakeJudge(t *testing.T, chunkSizes *[]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "false", r.URL.Query().Get("wait"))
		require.Equal(t, "false", r.URL.Query().Get("base64_encoded"))

		var payload struct {
			Submissions []BatchItem `json:"submissions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		*chunkSizes = append(*chunkSizes, len(payload.Submissions))

		tokens := make([]map[string]string, len(payload.Submissions))
		for i, item := range payload.Submissions {
			tokens[i] = map[string]string{"token": "tok-" + item.Stdin}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokens)
	}))
}

func TestDispatchChunking(t *testing.T) {
	tests := []struct {
		name       string
		cases      int
		wantChunks []int
	}{
		{"below batch limit", 5, []int{5}},
		{"exactly batch limit", 20, []int{20}},
		{"above batch limit", 45, []int{20, 20, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var chunkSizes []int
			server := fakeJudge(t, &chunkSizes)
			defer server.Close()

			d := NewDispatcher(NewClient(server.URL, time.Second), 20)
			testCases := makeTestCases(tt.cases)

			tokens, err := d.Dispatch(context.Background(), "print(1)", 71, testCases)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChunks, chunkSizes)

			// One token per test case, in test-case order across chunks.
			require.Len(t, tokens, tt.cases)
			for i, tc := range testCases {
				assert.Equal(t, "tok-"+tc.Input, tokens[i])
			}
		})
	}
}

func TestDispatchFailedChunkAborts(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "queue full", http.StatusServiceUnavailable)
			return
		}
		var payload struct {
			Submissions []BatchItem `json:"submissions"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		tokens := make([]map[string]string, len(payload.Submissions))
		for i := range tokens {
			tokens[i] = map[string]string{"token": fmt.Sprintf("tok-%d", i)}
		}
		json.NewEncoder(w).Encode(tokens)
	}))
	defer server.Close()

	d := NewDispatcher(NewClient(server.URL, time.Second), 20)
	tokens, err := d.Dispatch(context.Background(), "code", 71, makeTestCases(45))

	require.ErrorIs(t, err, ErrDispatchFailed)
	assert.Nil(t, tokens)
	// The third chunk is never sent once the second fails.
	assert.Equal(t, 2, calls)
}

func TestDispatchRejectsUnexpectedShape(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "oops"},
		{"object instead of list", `{"token":"a"}`},
		{"wrong count", `[{"token":"a"}]`},
		{"empty token", `[{"token":"a"},{"token":""},{"token":"c"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			d := NewDispatcher(NewClient(server.URL, time.Second), 20)
			_, err := d.Dispatch(context.Background(), "code", 71, makeTestCases(3))
			require.ErrorIs(t, err, ErrDispatchFailed)
		})
	}
}
