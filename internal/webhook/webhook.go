// Package webhook parses inbound alert messages from charting/alerting
// collaborators and dispatches them to the engine.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Kind tags the alert type carried by an inbound message.
type Kind string

const (
	TripleSMABuy  Kind = "TRIPLE_SMA_BUY"
	TripleSMASell Kind = "TRIPLE_SMA_SELL"
	EmergencyExit Kind = "EMERGENCY_EXIT"
)

// Alert is a validated inbound message.
type Alert struct {
	Kind    Kind
	Symbol  string
	Price   float64
	Balance float64
}

// ValidationError reports a malformed inbound message. The message is
// rejected outright; position state is never mutated on a validation failure.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid alert field %q: %s", e.Field, e.Detail)
}

// ParseAlert parses the comma-separated alert form emitted by the charting
// collaborator, e.g.
//
//	TRIPLE_SMA_BUY,balance=10250.50,symbol=AAPL,price=150.25
//
// A non-numeric balance or a missing symbol/price is a ValidationError,
// never a silent zero.
func ParseAlert(raw string) (Alert, error) {
	fields := strings.Split(strings.TrimSpace(raw), ",")
	if len(fields) == 0 || fields[0] == "" {
		return Alert{}, &ValidationError{Field: "tag", Detail: "empty message"}
	}

	var alert Alert
	switch Kind(strings.TrimSpace(fields[0])) {
	case TripleSMABuy:
		alert.Kind = TripleSMABuy
	case TripleSMASell:
		alert.Kind = TripleSMASell
	case EmergencyExit:
		alert.Kind = EmergencyExit
	default:
		return Alert{}, &ValidationError{Field: "tag", Detail: fmt.Sprintf("unknown signal tag %q", fields[0])}
	}

	var haveBalance, havePrice bool
	for _, field := range fields[1:] {
		key, value, found := strings.Cut(strings.TrimSpace(field), "=")
		if !found {
			return Alert{}, &ValidationError{Field: key, Detail: "expected key=value"}
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "balance":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Alert{}, &ValidationError{Field: "balance", Detail: fmt.Sprintf("non-numeric value %q", value)}
			}
			alert.Balance = f
			haveBalance = true
		case "symbol":
			alert.Symbol = strings.ToUpper(value)
		case "price":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil || f <= 0 {
				return Alert{}, &ValidationError{Field: "price", Detail: fmt.Sprintf("invalid value %q", value)}
			}
			alert.Price = f
			havePrice = true
		}
	}

	if !haveBalance {
		return Alert{}, &ValidationError{Field: "balance", Detail: "missing"}
	}
	if alert.Symbol == "" {
		return Alert{}, &ValidationError{Field: "symbol", Detail: "missing"}
	}
	if !havePrice {
		return Alert{}, &ValidationError{Field: "price", Detail: "missing"}
	}
	return alert, nil
}

// Handler consumes validated alerts.
type Handler interface {
	HandleAlert(ctx context.Context, alert Alert) error
}

// NewHTTPHandler returns the HTTP endpoint for inbound alerts. Malformed
// payloads get a 400 and are dropped before the engine sees them.
func NewHTTPHandler(h Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}

		alert, err := ParseAlert(string(body))
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				log.Warn().Err(err).Msg("rejected inbound alert")
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "parse alert", http.StatusBadRequest)
			return
		}

		if err := h.HandleAlert(r.Context(), alert); err != nil {
			log.Error().Err(err).Str("sym", alert.Symbol).Msg("alert handling failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

// Serve starts the alert endpoint on addr under /webhook.
func Serve(addr string, h Handler, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/webhook", NewHTTPHandler(h, log))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("webhook server stopped")
		}
	}()
	return srv
}
