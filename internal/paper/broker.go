// Package paper simulates a broker for paper trading: virtual cash, signed
// per-symbol positions, and fills at the latest marked price.
package paper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/execution"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
)

// FillRecorder captures simulated fills for later inspection.
type FillRecorder interface {
	Record(execution.Fill)
}

const epsilon = 1e-9

// position quantity is signed: positive long, negative short.
type position struct {
	Qty     float64
	AvgCost float64
}

// Broker is an in-memory execution.Broker. Prices come from the bar feed via
// OnBar; orders fill at the latest mark for their symbol.
type Broker struct {
	mu           sync.Mutex
	startingCash float64
	cash         float64
	realized     float64
	threshold    float64
	positions    map[string]position
	marks        map[string]float64
	history      map[string][]market.Bar
	recorders    []FillRecorder
}

// NewBroker builds a paper broker with starting cash and the capital floor
// reported through AccountState.
func NewBroker(startingCash, stopTradingThreshold float64) *Broker {
	return &Broker{
		startingCash: startingCash,
		cash:         startingCash,
		threshold:    stopTradingThreshold,
		positions:    make(map[string]position),
		marks:        make(map[string]float64),
		history:      make(map[string][]market.Bar),
	}
}

// AddRecorder attaches a fill sink. Not safe to call after trading starts.
func (b *Broker) AddRecorder(r FillRecorder) {
	b.recorders = append(b.recorders, r)
}

// OnBar marks the symbol at the bar close and retains the bar for History.
// Call it before handing the bar to the decision cycle so fills land on
// current prices.
func (b *Broker) OnBar(symbol string, bar market.Bar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marks[symbol] = bar.Close
	b.history[symbol] = append(b.history[symbol], bar)
}

// StartingCash returns the initial bankroll.
func (b *Broker) StartingCash() float64 { return b.startingCash }

// RealizedPnL returns closed-trade profit and loss.
func (b *Broker) RealizedPnL() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realized
}

// Position returns the signed quantity held for a symbol.
func (b *Broker) Position(symbol string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positions[symbol].Qty
}

// History implements execution.Broker from the bars seen so far.
func (b *Broker) History(_ context.Context, symbol string, lookback int) ([]market.Bar, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bars := b.history[symbol]
	if lookback > 0 && len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	out := make([]market.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

// Account implements execution.Broker. Equity is cash plus the signed
// mark-to-market value of every open position.
func (b *Broker) Account(context.Context) (execution.AccountState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return execution.AccountState{
		Equity:               b.equityLocked(),
		StopTradingThreshold: b.threshold,
	}, nil
}

func (b *Broker) equityLocked() float64 {
	equity := b.cash
	for sym, pos := range b.positions {
		equity += pos.Qty * b.marks[sym]
	}
	return equity
}

// Submit implements execution.Broker. A rejected order returns an error and
// leaves the account untouched.
func (b *Broker) Submit(_ context.Context, intent execution.Intent) (execution.Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch intent.Action {
	case execution.OpenLong, execution.OpenShort:
		return b.open(intent)
	case execution.Close:
		return b.close(intent)
	case execution.CloseAll:
		return b.closeAll(intent)
	default:
		return execution.Fill{}, fmt.Errorf("unknown action %q", intent.Action)
	}
}

func (b *Broker) open(intent execution.Intent) (execution.Fill, error) {
	if intent.Size <= 0 {
		return execution.Fill{}, errors.New("size must be positive")
	}
	mark := b.marks[intent.Symbol]
	if mark <= 0 {
		return execution.Fill{}, fmt.Errorf("no mark price for %s", intent.Symbol)
	}
	if b.positions[intent.Symbol].Qty != 0 {
		return execution.Fill{}, fmt.Errorf("position already open for %s", intent.Symbol)
	}

	notional := intent.Size * mark
	qty := intent.Size
	if intent.Action == execution.OpenShort {
		qty = -qty
		b.cash += notional
	} else {
		if notional > b.cash+epsilon {
			return execution.Fill{}, errors.New("insufficient cash")
		}
		b.cash -= notional
	}
	b.positions[intent.Symbol] = position{Qty: qty, AvgCost: mark}

	return b.record(execution.Fill{
		Symbol: intent.Symbol,
		Action: intent.Action,
		Size:   intent.Size,
		Price:  mark,
		Ts:     intent.Ts,
	}), nil
}

func (b *Broker) close(intent execution.Intent) (execution.Fill, error) {
	pos := b.positions[intent.Symbol]
	if pos.Qty == 0 {
		return execution.Fill{}, fmt.Errorf("no open position for %s", intent.Symbol)
	}
	mark := b.marks[intent.Symbol]
	if mark <= 0 {
		return execution.Fill{}, fmt.Errorf("no mark price for %s", intent.Symbol)
	}
	size := b.flattenLocked(intent.Symbol, pos, mark)
	return b.record(execution.Fill{
		Symbol: intent.Symbol,
		Action: execution.Close,
		Size:   size,
		Price:  mark,
		Ts:     intent.Ts,
	}), nil
}

// closeAll flattens every symbol at its latest mark. A symbol without a mark
// fails the whole request so the caller never half-trusts the flatten.
func (b *Broker) closeAll(intent execution.Intent) (execution.Fill, error) {
	for sym := range b.positions {
		if b.marks[sym] <= 0 {
			return execution.Fill{}, fmt.Errorf("no mark price for %s", sym)
		}
	}
	var total float64
	for sym, pos := range b.positions {
		total += b.flattenLocked(sym, pos, b.marks[sym])
	}
	return b.record(execution.Fill{
		Symbol: intent.Symbol,
		Action: execution.CloseAll,
		Size:   total,
		Ts:     intent.Ts,
	}), nil
}

// flattenLocked closes one signed position at the mark and returns the
// absolute size closed. Caller holds the mutex.
func (b *Broker) flattenLocked(symbol string, pos position, mark float64) float64 {
	size := math.Abs(pos.Qty)
	if pos.Qty > 0 {
		b.cash += size * mark
		b.realized += (mark - pos.AvgCost) * size
	} else {
		b.cash -= size * mark
		b.realized += (pos.AvgCost - mark) * size
	}
	delete(b.positions, symbol)
	return size
}

func (b *Broker) record(fill execution.Fill) execution.Fill {
	for _, r := range b.recorders {
		r.Record(fill)
	}
	return fill
}
