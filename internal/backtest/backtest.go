// Package backtest replays bar history through the indicator and classifier
// stack and reports strategy performance.
package backtest

import (
	"errors"
	"time"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/indicator"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/signal"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/strategy"
)

// Stats summarizes a completed backtest.
type Stats struct {
	Bars          int
	BuySignals    int
	SellSignals   int
	Trades        int
	Wins          int
	WinRate       float64
	TotalReturn   float64
	BuyHoldReturn float64
	MaxDrawdown   float64
	FinalEquity   float64
}

// Point is one step of the equity curve.
type Point struct {
	Ts     time.Time
	Equity float64
	Signal signal.Direction
}

// Result bundles the stats with the full equity curve and a summary of the
// signal standing on the final bar.
type Result struct {
	Symbol string
	Stats  Stats
	Curve  []Point
	Latest strategy.Summary
}

// Backtester replays bars through a fresh classifier per run.
type Backtester struct {
	periods indicator.Periods
	filters strategy.Filters
}

// New builds a backtester with the given indicator and classifier settings.
func New(periods indicator.Periods, filters strategy.Filters) *Backtester {
	return &Backtester{periods: periods, filters: filters}
}

// Run replays the bars in order. Position changes take effect on the next
// bar: the return earned over bar i uses the signal classified on bar i-1,
// so the strategy never trades on information from the bar being earned.
func (b *Backtester) Run(symbol string, bars []market.Bar, initialCapital float64) (Result, error) {
	if len(bars) == 0 {
		return Result{}, errors.New("no bars to replay")
	}
	if initialCapital <= 0 {
		return Result{}, errors.New("initial capital must be positive")
	}

	engine := indicator.New(b.periods)
	classifier := strategy.NewClassifier(b.filters)
	series := market.NewSeries(symbol, len(bars))

	res := Result{Symbol: symbol, Curve: make([]Point, 0, len(bars))}
	stats := &res.Stats

	equity := initialCapital
	peak := equity
	prevDir := signal.Neutral
	prevClose := 0.0
	tradeOpenEquity := 0.0
	firstClose := 0.0
	var lastSnap indicator.Snapshot
	var lastSig signal.Signal

	for _, bar := range bars {
		if err := series.Append(bar); err != nil {
			// Duplicate or invalid bars are skipped, matching live handling.
			continue
		}
		stats.Bars++
		if firstClose == 0 {
			firstClose = bar.Close
		}

		if prevClose > 0 && prevDir != signal.Neutral {
			barReturn := bar.Close/prevClose - 1
			equity *= 1 + float64(prevDir)*barReturn
		}
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > stats.MaxDrawdown {
				stats.MaxDrawdown = dd
			}
		}

		snap := engine.Compute(series)
		sig := classifier.OnSnapshot(snap)
		dir := sig.Direction
		lastSnap, lastSig = snap, sig

		if dir != prevDir {
			if prevDir != signal.Neutral {
				stats.Trades++
				if equity > tradeOpenEquity {
					stats.Wins++
				}
			}
			switch dir {
			case signal.Long:
				stats.BuySignals++
				tradeOpenEquity = equity
			case signal.Short:
				stats.SellSignals++
				tradeOpenEquity = equity
			}
		}

		res.Curve = append(res.Curve, Point{Ts: bar.Ts, Equity: equity, Signal: dir})
		prevDir = dir
		prevClose = bar.Close
	}

	// Close out any position still open at the end of the replay.
	if prevDir != signal.Neutral {
		stats.Trades++
		if equity > tradeOpenEquity {
			stats.Wins++
		}
	}

	res.Latest = strategy.Summarize(lastSnap, lastSig)
	stats.FinalEquity = equity
	stats.TotalReturn = equity/initialCapital - 1
	if firstClose > 0 && prevClose > 0 {
		stats.BuyHoldReturn = prevClose/firstClose - 1
	}
	if stats.Trades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Trades)
	}
	return res, nil
}
