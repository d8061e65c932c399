package alert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingChannel struct {
	calls int32
}

func (f *failingChannel) Name() string { return "failing" }

func (f *failingChannel) Send(context.Context, Intent) error {
	atomic.AddInt32(&f.calls, 1)
	return errors.New("transport down")
}

func TestSlackChannelPostsWebhook(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	}))
	defer server.Close()

	channel := NewSlackChannel(server.URL, "#perf-alerts")
	err := channel.Send(context.Background(), Intent{
		Type:     TypeSlack,
		Severity: "critical",
		Message:  "duration regression in suite::login",
	})
	require.NoError(t, err)
	assert.Equal(t, "[critical] duration regression in suite::login", received["text"])
	assert.Equal(t, "#perf-alerts", received["channel"])
}

func TestWebhookChannelPostsRawIntent(t *testing.T) {
	var received Intent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
	}))
	defer server.Close()

	intent := Intent{Type: TypeWebhook, Severity: "high", Message: "memory regression"}
	require.NoError(t, NewWebhookChannel(server.URL).Send(context.Background(), intent))
	assert.Equal(t, intent, received)
}

func TestChannelErrorOnHTTPFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewWebhookChannel(server.URL).Send(context.Background(), Intent{})
	assert.Error(t, err)
}

func TestDispatchSwallowsDeliveryFailures(t *testing.T) {
	failing := &failingChannel{}
	d := NewDispatcher(failing)
	d.Attempts = 2

	// Dispatch must not panic or surface the transport error.
	d.Dispatch(context.Background(), []Intent{{Severity: "critical", Message: "boom"}})
	assert.Equal(t, int32(2), atomic.LoadInt32(&failing.calls))
}

func TestDispatchFansOutToAllChannels(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	d := NewDispatcher(NewSlackChannel(server.URL, ""), NewWebhookChannel(server.URL))
	d.Dispatch(context.Background(), []Intent{
		{Severity: "high", Message: "one"},
		{Severity: "critical", Message: "two"},
	})
	assert.Equal(t, int32(4), atomic.LoadInt32(&hits))
}
