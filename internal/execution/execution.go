// Package execution handles order intents and interaction with broker adapters.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/metrics"
)

// Action enumerates the order intents the engine can emit.
type Action string

const (
	OpenLong  Action = "OPEN_LONG"
	OpenShort Action = "OPEN_SHORT"
	Close     Action = "CLOSE"
	CloseAll  Action = "CLOSE_ALL"
)

// Machine-readable reason codes attached to intents and notifications.
const (
	ReasonSignalEntry   = "SIGNAL_ENTRY"
	ReasonSignalExit    = "SIGNAL_EXIT"
	ReasonStopLoss      = "STOP_LOSS"
	ReasonTakeProfit    = "TAKE_PROFIT"
	ReasonEmergencyStop = "EMERGENCY_STOP_LOW_BALANCE"
	ReasonSizingReject  = "SIZING_REJECTED"
)

// Intent is a placement request produced once per state transition and
// consumed by a broker adapter. StopLoss/TakeProfit are zero when unset.
type Intent struct {
	Action     Action    `json:"action"`
	Symbol     string    `json:"symbol"`
	Size       float64   `json:"size"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	Reason     string    `json:"reason"`
	Ts         time.Time `json:"ts"`
}

// Fill reports a completed execution back from the broker adapter.
type Fill struct {
	Symbol string    `json:"symbol"`
	Action Action    `json:"action"`
	Size   float64   `json:"size"`
	Price  float64   `json:"price"`
	Ts     time.Time `json:"ts"`
}

// AccountState is the broker-owned equity view. Read-only to the core; it is
// snapshotted once at the start of a decision cycle and never re-read mid-cycle.
type AccountState struct {
	Equity               float64
	StopTradingThreshold float64
}

// EmergencyStop reports whether equity has breached the capital floor.
func (a AccountState) EmergencyStop() bool {
	return a.Equity <= a.StopTradingThreshold
}

// Broker is the external adapter contract. The core never talks to broker
// transport directly; a failed or timed-out Submit must surface as an error
// so the caller can retry without the engine assuming the fill happened.
type Broker interface {
	History(ctx context.Context, symbol string, lookback int) ([]market.Bar, error)
	Account(ctx context.Context) (AccountState, error)
	Submit(ctx context.Context, intent Intent) (Fill, error)
}

// Executor wraps a Broker with logging and metrics.
type Executor struct {
	broker Broker
	log    zerolog.Logger
}

// NewExecutor builds an executor around the given broker adapter.
func NewExecutor(broker Broker, log zerolog.Logger) *Executor {
	return &Executor{broker: broker, log: log}
}

// Submit forwards the intent to the broker and records the outcome.
func (e *Executor) Submit(ctx context.Context, intent Intent) (Fill, error) {
	metrics.OrdersTotal.WithLabelValues(intent.Symbol, string(intent.Action)).Inc()
	fill, err := e.broker.Submit(ctx, intent)
	if err != nil {
		e.log.Warn().Err(err).
			Str("sym", intent.Symbol).
			Str("action", string(intent.Action)).
			Float64("size", intent.Size).
			Msg("order submit failed")
		return Fill{}, fmt.Errorf("submit %s %s: %w", intent.Action, intent.Symbol, err)
	}
	e.log.Info().
		Str("sym", fill.Symbol).
		Str("action", string(fill.Action)).
		Float64("size", fill.Size).
		Float64("px", fill.Price).
		Str("reason", intent.Reason).
		Msg("order filled")
	return fill, nil
}
