// Package engine runs the per-symbol decision cycle: ingest a bar, snapshot
// the account once, apply the emergency stop, classify, and drive the
// position state machine through broker order intents.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/execution"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/indicator"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/metrics"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/notify"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/risk"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/signal"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/strategy"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/webhook"
)

// Config tunes trader behavior. The zero value exits open positions when the
// signal drops to NEUTRAL and lets any directional signal open a position.
type Config struct {
	// RequireStrongEntries gates new entries on the signal strength threshold.
	RequireStrongEntries bool
	// HoldThroughNeutral keeps an open position when the signal fades to
	// NEUTRAL, closing only on an opposite signal or a protective level.
	HoldThroughNeutral bool
	// StopTradingThreshold is the capital floor used when handling inbound
	// alerts, which carry their own balance instead of a broker account view.
	StopTradingThreshold float64
	// HistoryCapacity pre-sizes per-symbol bar storage.
	HistoryCapacity int
}

// Decision summarizes one cycle for logging and tests.
type Decision struct {
	Symbol   string
	Signal   signal.Signal
	Intent   *execution.Intent
	Fill     *execution.Fill
	Position Position
	Halted   bool
	Deduped  bool
	Rejected bool
}

type book struct {
	series   *market.Series
	position Position
}

// Trader owns the decision cycle for every tracked symbol. Cycles are
// serialized under one mutex; a bar is fully processed before the next is
// looked at.
type Trader struct {
	cfg        Config
	indicators *indicator.Engine
	classifier *strategy.Classifier
	sizer      *risk.Sizer
	exec       *execution.Executor
	broker     execution.Broker
	notifier   notify.Notifier
	log        zerolog.Logger

	mu     sync.Mutex
	books  map[string]*book
	halted bool
}

// New assembles a trader from its collaborators.
func New(cfg Config, ind *indicator.Engine, cls *strategy.Classifier, sizer *risk.Sizer, broker execution.Broker, notifier notify.Notifier, log zerolog.Logger) *Trader {
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = 512
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Trader{
		cfg:        cfg,
		indicators: ind,
		classifier: cls,
		sizer:      sizer,
		exec:       execution.NewExecutor(broker, log),
		broker:     broker,
		notifier:   notifier,
		log:        log,
		books:      make(map[string]*book),
	}
}

// Position returns the current position for a symbol.
func (t *Trader) Position(symbol string) Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.books[symbol]; ok {
		return b.position
	}
	return Position{Symbol: symbol}
}

// Halted reports whether the emergency stop is currently in force.
func (t *Trader) Halted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.halted
}

// Seed preloads historical bars for a symbol so indicators have a full window
// before live processing starts. Invalid or out-of-order bars are skipped.
func (t *Trader) Seed(symbol string, bars []market.Bar) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.book(symbol)
	var n int
	for _, bar := range bars {
		if err := b.series.Append(bar); err != nil {
			continue
		}
		n++
	}
	return n
}

// book returns the per-symbol state, creating it on first use. Caller holds
// the mutex.
func (t *Trader) book(symbol string) *book {
	b, ok := t.books[symbol]
	if !ok {
		b = &book{
			series:   market.NewSeries(symbol, t.cfg.HistoryCapacity),
			position: Position{Symbol: symbol},
		}
		t.books[symbol] = b
	}
	return b
}

// OnBar runs one decision cycle for a symbol. A bar whose timestamp repeats
// or precedes the last ingested bar is a no-op, so feed replays cannot
// double-count. A failed order submit leaves the position unchanged and
// surfaces the error so the caller can retry.
func (t *Trader) OnBar(ctx context.Context, symbol string, bar market.Bar) (Decision, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	dec := Decision{Symbol: symbol}
	b := t.book(symbol)

	if err := b.series.Append(bar); err != nil {
		if errors.Is(err, market.ErrStaleBar) {
			dec.Deduped = true
			dec.Position = b.position
			return dec, nil
		}
		return dec, fmt.Errorf("bar rejected for %s: %w", symbol, err)
	}
	metrics.BarsTotal.WithLabelValues(symbol).Inc()

	account, err := t.broker.Account(ctx)
	if err != nil {
		return dec, fmt.Errorf("account snapshot: %w", err)
	}

	if account.EmergencyStop() {
		return t.emergencyStop(ctx, dec, b, account, bar.Ts)
	}
	if t.halted {
		t.halted = false
		t.log.Info().
			Float64("equity", account.Equity).
			Float64("floor", account.StopTradingThreshold).
			Msg("equity recovered above capital floor, trading resumed")
	}

	snap := t.indicators.Compute(b.series)
	sig := t.classifier.OnSnapshot(snap)
	dec.Signal = sig
	metrics.SignalsTotal.WithLabelValues(symbol, sig.Direction.String()).Inc()

	if b.position.Open() {
		return t.manageOpen(ctx, dec, b, bar, sig)
	}
	return t.tryEntry(ctx, dec, b, account, bar, sig, snap)
}

// emergencyStop flattens everything once and raises the halt. Entries stay
// vetoed while equity sits at or below the floor; a later cycle whose
// snapshot recovers above the threshold clears the halt.
func (t *Trader) emergencyStop(ctx context.Context, dec Decision, b *book, account execution.AccountState, ts time.Time) (Decision, error) {
	dec.Halted = true
	dec.Position = b.position
	if t.halted {
		return dec, nil
	}

	intent := execution.Intent{
		Action: execution.CloseAll,
		Reason: execution.ReasonEmergencyStop,
		Ts:     ts,
	}
	dec.Intent = &intent
	fill, err := t.exec.Submit(ctx, intent)
	if err != nil {
		return dec, fmt.Errorf("emergency close: %w", err)
	}
	dec.Fill = &fill

	t.halted = true
	for _, bk := range t.books {
		bk.position = Position{Symbol: bk.series.Symbol()}
	}
	dec.Position = b.position

	metrics.EmergencyStopsTotal.Inc()
	t.log.Error().
		Float64("equity", account.Equity).
		Float64("floor", account.StopTradingThreshold).
		Msg("emergency stop: equity at or below capital floor, entries halted until it recovers")
	t.notifier.Notify(notify.Event{
		Code:      execution.ReasonEmergencyStop,
		Message:   fmt.Sprintf("equity %.2f at or below floor %.2f, all positions closed", account.Equity, account.StopTradingThreshold),
		Balance:   account.Equity,
		Threshold: account.StopTradingThreshold,
	})
	return dec, nil
}

// manageOpen checks protective levels against the bar extremes, then the
// signal. A close is the only transition this cycle; reversing into the
// opposite side waits for the next bar.
func (t *Trader) manageOpen(ctx context.Context, dec Decision, b *book, bar market.Bar, sig signal.Signal) (Decision, error) {
	pos := b.position
	dec.Position = pos

	reason := ""
	switch pos.Side {
	case Long:
		switch {
		case pos.StopLoss > 0 && bar.Low <= pos.StopLoss:
			reason = execution.ReasonStopLoss
		case pos.TakeProfit > 0 && bar.High >= pos.TakeProfit:
			reason = execution.ReasonTakeProfit
		case sig.Direction == signal.Short:
			reason = execution.ReasonSignalExit
		case sig.Direction == signal.Neutral && !t.cfg.HoldThroughNeutral:
			reason = execution.ReasonSignalExit
		}
	case Short:
		switch {
		case pos.StopLoss > 0 && bar.High >= pos.StopLoss:
			reason = execution.ReasonStopLoss
		case pos.TakeProfit > 0 && bar.Low <= pos.TakeProfit:
			reason = execution.ReasonTakeProfit
		case sig.Direction == signal.Long:
			reason = execution.ReasonSignalExit
		case sig.Direction == signal.Neutral && !t.cfg.HoldThroughNeutral:
			reason = execution.ReasonSignalExit
		}
	}
	if reason == "" {
		return dec, nil
	}

	intent := execution.Intent{
		Action: execution.Close,
		Symbol: pos.Symbol,
		Size:   pos.Size,
		Reason: reason,
		Ts:     bar.Ts,
	}
	dec.Intent = &intent
	fill, err := t.exec.Submit(ctx, intent)
	if err != nil {
		return dec, fmt.Errorf("close %s: %w", pos.Symbol, err)
	}
	dec.Fill = &fill
	b.position = Position{Symbol: pos.Symbol}
	dec.Position = b.position
	return dec, nil
}

// tryEntry opens a position from flat when the signal allows it. A sizing
// rejection suppresses the entry without failing the cycle.
func (t *Trader) tryEntry(ctx context.Context, dec Decision, b *book, account execution.AccountState, bar market.Bar, sig signal.Signal, snap indicator.Snapshot) (Decision, error) {
	dec.Position = b.position
	if sig.Direction == signal.Neutral {
		return dec, nil
	}
	if t.cfg.RequireStrongEntries && !sig.Strong() {
		return dec, nil
	}

	sizing, err := t.sizer.Size(sig.Symbol, account, sig.Direction, bar.Close, snap.ATR)
	if err != nil {
		var rej *risk.RejectionError
		if errors.As(err, &rej) {
			dec.Rejected = true
			metrics.SizingRejectionsTotal.WithLabelValues(sig.Symbol).Inc()
			t.log.Warn().Str("sym", sig.Symbol).Err(rej).Msg("entry suppressed")
			t.notifier.Notify(notify.Event{
				Code:    execution.ReasonSizingReject,
				Message: rej.Error(),
				Symbol:  sig.Symbol,
				Balance: account.Equity,
			})
			return dec, nil
		}
		return dec, fmt.Errorf("size %s: %w", sig.Symbol, err)
	}

	action := execution.OpenLong
	side := Long
	if sig.Direction == signal.Short {
		action = execution.OpenShort
		side = Short
	}
	intent := execution.Intent{
		Action:     action,
		Symbol:     sig.Symbol,
		Size:       sizing.Size,
		StopLoss:   sizing.StopLoss,
		TakeProfit: sizing.TakeProfit,
		Reason:     execution.ReasonSignalEntry,
		Ts:         bar.Ts,
	}
	dec.Intent = &intent
	fill, err := t.exec.Submit(ctx, intent)
	if err != nil {
		return dec, fmt.Errorf("open %s: %w", sig.Symbol, err)
	}
	dec.Fill = &fill
	b.position = Position{
		Symbol:     sig.Symbol,
		Side:       side,
		Size:       fill.Size,
		EntryPrice: fill.Price,
		StopLoss:   sizing.StopLoss,
		TakeProfit: sizing.TakeProfit,
	}
	dec.Position = b.position
	return dec, nil
}

// HandleAlert maps a validated inbound alert onto the same state machine.
// The alert balance stands in for the broker equity view; the capital floor
// comes from configuration and is checked before any other handling.
func (t *Trader) HandleAlert(ctx context.Context, alert webhook.Alert) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	account := execution.AccountState{
		Equity:               alert.Balance,
		StopTradingThreshold: t.cfg.StopTradingThreshold,
	}
	now := time.Now().UTC()

	if account.EmergencyStop() {
		_, err := t.emergencyStop(ctx, Decision{Symbol: alert.Symbol}, t.book(alert.Symbol), account, now)
		return err
	}

	if alert.Kind == webhook.EmergencyExit {
		b := t.book(alert.Symbol)
		if !b.position.Open() {
			return nil
		}
		_, err := t.exec.Submit(ctx, execution.Intent{
			Action: execution.Close,
			Symbol: alert.Symbol,
			Size:   b.position.Size,
			Reason: execution.ReasonSignalExit,
			Ts:     now,
		})
		if err != nil {
			return err
		}
		b.position = Position{Symbol: alert.Symbol}
		return nil
	}

	if t.halted {
		t.halted = false
		t.log.Info().
			Float64("balance", alert.Balance).
			Float64("floor", t.cfg.StopTradingThreshold).
			Msg("balance recovered above capital floor, trading resumed")
	}

	dir := signal.Long
	if alert.Kind == webhook.TripleSMASell {
		dir = signal.Short
	}
	b := t.book(alert.Symbol)
	pos := b.position

	// An opposite alert closes; re-entry waits for the next alert.
	if pos.Open() {
		if (pos.Side == Long && dir == signal.Long) || (pos.Side == Short && dir == signal.Short) {
			return nil
		}
		_, err := t.exec.Submit(ctx, execution.Intent{
			Action: execution.Close,
			Symbol: alert.Symbol,
			Size:   pos.Size,
			Reason: execution.ReasonSignalExit,
			Ts:     now,
		})
		if err != nil {
			return err
		}
		b.position = Position{Symbol: alert.Symbol}
		return nil
	}

	sizing, err := t.sizer.Size(alert.Symbol, account, dir, alert.Price, indicator.Reading{})
	if err != nil {
		var rej *risk.RejectionError
		if errors.As(err, &rej) {
			metrics.SizingRejectionsTotal.WithLabelValues(alert.Symbol).Inc()
			t.notifier.Notify(notify.Event{
				Code:    execution.ReasonSizingReject,
				Message: rej.Error(),
				Symbol:  alert.Symbol,
				Balance: alert.Balance,
			})
			return nil
		}
		return err
	}

	action := execution.OpenLong
	side := Long
	if dir == signal.Short {
		action = execution.OpenShort
		side = Short
	}
	fill, err := t.exec.Submit(ctx, execution.Intent{
		Action:     action,
		Symbol:     alert.Symbol,
		Size:       sizing.Size,
		StopLoss:   sizing.StopLoss,
		TakeProfit: sizing.TakeProfit,
		Reason:     execution.ReasonSignalEntry,
		Ts:         now,
	})
	if err != nil {
		return err
	}
	b.position = Position{
		Symbol:     alert.Symbol,
		Side:       side,
		Size:       fill.Size,
		EntryPrice: fill.Price,
		StopLoss:   sizing.StopLoss,
		TakeProfit: sizing.TakeProfit,
	}
	return nil
}
