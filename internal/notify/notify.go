// Package notify delivers fire-and-forget operational alerts to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Event carries the machine-readable code and numeric context for an alert.
type Event struct {
	Code      string  `json:"code"`
	Message   string  `json:"message"`
	Symbol    string  `json:"symbol,omitempty"`
	Balance   float64 `json:"balance,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

// Notifier is implemented by alert sinks. Delivery is best-effort; callers
// never block on it.
type Notifier interface {
	Notify(event Event)
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(Event) {}

// Webhook posts events as JSON to a configured URL, one goroutine per event.
// Failures are logged and dropped.
type Webhook struct {
	url     string
	client  *http.Client
	log     zerolog.Logger
	timeout time.Duration
}

// NewWebhook builds a webhook notifier. An empty URL yields a disabled
// notifier that silently drops events.
func NewWebhook(url string, log zerolog.Logger) *Webhook {
	return &Webhook{
		url:     url,
		client:  &http.Client{},
		log:     log,
		timeout: 5 * time.Second,
	}
}

// Notify implements Notifier.
func (w *Webhook) Notify(event Event) {
	if w.url == "" {
		return
	}
	go func() {
		if err := w.send(event); err != nil {
			w.log.Warn().Err(err).Str("code", event.Code).Msg("alert delivery failed")
		}
	}()
}

func (w *Webhook) send(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
