// Package alert models alert intents and their delivery to notification
// channels. An intent is a decision to notify, decoupled from transport;
// delivery failures are logged and never propagated to the caller.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Intent types.
const (
	TypeSlack   = "slack"
	TypeEmail   = "email"
	TypeWebhook = "webhook"
)

// Intent is a structured decision to notify an external channel.
type Intent struct {
	Type     string                 `json:"type"`
	Severity string                 `json:"severity"`
	Message  string                 `json:"message"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Channel delivers intents to one transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, intent Intent) error
}

// Dispatcher fans intents out to all configured channels. Delivery is
// fire-and-forget with respect to the pipeline result: per-channel errors are
// retried, then logged and dropped.
type Dispatcher struct {
	Channels []Channel
	// Attempts per channel per intent.
	Attempts uint
}

func NewDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{Channels: channels, Attempts: 3}
}

// Dispatch delivers every intent to every channel. It never returns an error;
// observability failures must not mask or block substantive test results.
func (d *Dispatcher) Dispatch(ctx context.Context, intents []Intent) {
	for _, intent := range intents {
		for _, channel := range d.Channels {
			channel := channel
			intent := intent
			err := retry.Do(
				func() error { return channel.Send(ctx, intent) },
				retry.Attempts(d.Attempts),
				retry.Delay(500*time.Millisecond),
				retry.Context(ctx),
				retry.LastErrorOnly(true),
			)
			if err != nil {
				log.WithError(err).Warnf("failed to deliver %s alert via %s", intent.Severity, channel.Name())
			}
		}
	}
}

// SlackChannel posts intents to a Slack incoming webhook.
type SlackChannel struct {
	WebhookURL string
	Channel    string
	Client     *http.Client
}

func NewSlackChannel(webhookURL, channel string) *SlackChannel {
	return &SlackChannel{
		WebhookURL: webhookURL,
		Channel:    channel,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackChannel) Name() string { return TypeSlack }

func (s *SlackChannel) Send(ctx context.Context, intent Intent) error {
	payload := map[string]interface{}{
		"text": fmt.Sprintf("[%s] %s", intent.Severity, intent.Message),
	}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	return postJSON(ctx, s.Client, s.WebhookURL, payload)
}

// WebhookChannel posts the raw intent to a generic webhook endpoint.
type WebhookChannel struct {
	URL    string
	Client *http.Client
}

func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (w *WebhookChannel) Name() string { return TypeWebhook }

func (w *WebhookChannel) Send(ctx context.Context, intent Intent) error {
	return postJSON(ctx, w.Client, w.URL, intent)
}

// LogChannel records intents in the log. It stands in for transports that are
// not configured, e.g. email.
type LogChannel struct{}

func (LogChannel) Name() string { return "log" }

func (LogChannel) Send(_ context.Context, intent Intent) error {
	log.Warnf("alert [%s]: %s", intent.Severity, intent.Message)
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return errors.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
