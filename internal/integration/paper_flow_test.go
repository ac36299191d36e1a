package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/backtest"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/engine"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/execution"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/indicator"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/notify"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/paper"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/risk"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/strategy"
)

type eventSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (s *eventSink) Notify(ev notify.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *eventSink) last() (notify.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return notify.Event{}, false
	}
	return s.events[len(s.events)-1], true
}

func newStack(startingCash, floor float64, params risk.Params) (*engine.Trader, *paper.Broker, *paper.Ledger, *eventSink) {
	broker := paper.NewBroker(startingCash, floor)
	ledger := paper.NewLedger(16)
	broker.AddRecorder(ledger)
	sink := &eventSink{}

	trader := engine.New(
		engine.Config{StopTradingThreshold: floor},
		indicator.New(indicator.Periods{Short: 5, Medium: 10, Long: 20}),
		strategy.NewClassifier(strategy.Filters{}),
		risk.NewSizer(params),
		broker,
		sink,
		zerolog.Nop(),
	)
	return trader, broker, ledger, sink
}

func TestPaperFlowOpensAndTracksPosition(t *testing.T) {
	ctx := context.Background()
	trader, broker, ledger, _ := newStack(10000, 0, risk.Params{MaxRiskPerTrade: 0.01, StopLossPercent: 0.02})

	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := backtest.GenerateBars(start, 100, 11, backtest.Regime{Bars: 150, Drift: 0.004, Vol: 0.003})

	for _, bar := range bars {
		broker.OnBar("AAPL", bar)
		if _, err := trader.OnBar(ctx, "AAPL", bar); err != nil {
			t.Fatalf("OnBar: %v", err)
		}
	}

	fills := ledger.Snapshot()
	if len(fills) == 0 {
		t.Fatalf("expected fills from a sustained uptrend")
	}
	var opened bool
	for _, fill := range fills {
		if fill.Action == execution.OpenLong {
			opened = true
			if fill.Price <= 0 || fill.Size < 1 {
				t.Fatalf("bad open fill: %+v", fill)
			}
		}
	}
	if !opened {
		t.Fatalf("no long entry recorded, fills: %+v", fills)
	}

	account, err := broker.Account(ctx)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account.Equity <= 0 {
		t.Fatalf("expected positive equity, got %.2f", account.Equity)
	}
}

func TestPaperFlowEmergencyStop(t *testing.T) {
	ctx := context.Background()
	trader, broker, ledger, sink := newStack(10000, 9950, risk.Params{MaxRiskPerTrade: 0.01, StopLossPercent: 0.02})

	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	var bars []market.Bar
	for i := 0; i < 20; i++ {
		close := 100 + float64(i)
		bars = append(bars, market.Bar{
			Ts:     start.Add(time.Duration(i) * 24 * time.Hour),
			Open:   close - 0.5,
			High:   close + 0.5,
			Low:    close - 1,
			Close:  close,
			Volume: 1000,
		})
	}
	for _, bar := range bars {
		broker.OnBar("AAPL", bar)
		if _, err := trader.OnBar(ctx, "AAPL", bar); err != nil {
			t.Fatalf("warmup OnBar: %v", err)
		}
	}
	if trader.Position("AAPL").Side != engine.Long {
		t.Fatalf("expected a long position after the aligned uptrend")
	}

	// A mark-to-market dip below the capital floor must flatten everything,
	// even though neither the stop level nor the signal has turned.
	dip := market.Bar{
		Ts:     start.Add(20 * 24 * time.Hour),
		Open:   118.8,
		High:   119,
		Low:    117.2,
		Close:  117.5,
		Volume: 1000,
	}
	broker.OnBar("AAPL", dip)
	dec, err := trader.OnBar(ctx, "AAPL", dip)
	if err != nil {
		t.Fatalf("dip OnBar: %v", err)
	}
	if !dec.Halted {
		t.Fatalf("expected emergency halt, decision: %+v", dec)
	}
	if !trader.Halted() {
		t.Fatalf("halt must hold while equity sits under the floor")
	}
	if trader.Position("AAPL").Open() || broker.Position("AAPL") != 0 {
		t.Fatalf("all positions must be flat after the emergency stop")
	}

	fills := ledger.Snapshot()
	if len(fills) == 0 || fills[len(fills)-1].Action != execution.CloseAll {
		t.Fatalf("expected CLOSE_ALL as the final fill, got %+v", fills)
	}
	ev, ok := sink.last()
	if !ok || ev.Code != execution.ReasonEmergencyStop {
		t.Fatalf("expected emergency notification, got %+v", ev)
	}
}
