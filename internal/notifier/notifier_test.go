package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/otaviosalomao/FundValidation/internal/model"
	"github.com/otaviosalomao/FundValidation/internal/recorder"
)

func newTestNotifier(t *testing.T, url string) *TelegramNotifier {
	t.Helper()
	n := NewTelegramNotifier("TOKEN", "42", "", zaptest.NewLogger(t))
	n.APIBase = url
	n.RetryBase = time.Millisecond
	n.PollBackoff = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(t, srv.URL).Send(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(t, srv.URL).SendWithRetry(context.Background(), "hi", 3))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := newTestNotifier(t, srv.URL).SendWithRetry(context.Background(), "hi", 2)
	assert.ErrorContains(t, err, "all 3 retries exhausted")
	assert.Equal(t, int32(3), calls.Load())
}

func TestStartPolling_DispatchesCommands(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		polls   atomic.Int32
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if polls.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /status "}},{"update_id":8}]}`))
				return
			}
			assert.Equal(t, "9", r.URL.Query().Get("offset"))
			cancel()
			_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
		}
	}))
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		newTestNotifier(t, srv.URL).StartPolling(ctx, func(cmd string) string {
			return "got " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"got /status"}, replies)
}

func TestFormatRunSummary(t *testing.T) {
	start := time.Date(2025, 8, 19, 7, 0, 0, 0, time.UTC)
	run := &recorder.RunRecord{
		ID: "abc", StartedAt: start, FinishedAt: start.Add(90 * time.Second), Outcome: "completed",
		FeedRecords: 40, BankRecords: 38, MissingAnchors: 1,
		Total: 41, OK: 39, Errors: 2,
		ByKind:     map[model.MatchKind]int{model.MatchExactDate: 38, model.MatchFeedOnly: 3},
		ReportPath: "output/report.csv",
	}

	msg := FormatRunSummary(run)
	assert.Contains(t, msg, "⚠️")
	assert.Contains(t, msg, "Outcome: completed")
	assert.Contains(t, msg, "Elapsed: 1m30s")
	assert.Contains(t, msg, "OK: 39 | ERROR: 2 | total: 41")
	assert.Contains(t, msg, "ExactDateMatch: 38")
	assert.Contains(t, msg, "FeedOnly: 3")
	assert.NotContains(t, msg, "BankOnly")
	assert.Contains(t, msg, "Series without anchor: 1")
}

func TestFormatRunSummary_Failed(t *testing.T) {
	msg := FormatRunSummary(&recorder.RunRecord{ID: "x", Outcome: "failed", Error: "open <file>: denied"})
	assert.Contains(t, msg, "❌")
	assert.Contains(t, msg, "open &lt;file&gt;: denied")
	assert.NotContains(t, msg, "Reconciliation")
}
