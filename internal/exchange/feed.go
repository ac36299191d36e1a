// Package exchange hosts bar feeds and history providers for market data.
package exchange

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
)

const (
	// ProviderSynthetic emits deterministic random-walk bars for tests and
	// offline work.
	ProviderSynthetic = "synthetic"
	// ProviderBinance streams closed klines from Binance public websockets.
	ProviderBinance = "binance"
)

// Event is one bar for one symbol, as delivered by a feed.
type Event struct {
	Symbol string
	Bar    market.Bar
}

// Feed represents a pluggable bar stream implementation.
type Feed struct {
	provider   string
	log        zerolog.Logger
	interval   time.Duration
	seed       int64
	binanceURL string

	mu      sync.RWMutex
	symbols []string
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const defaultInterval = time.Minute

// WithInterval overrides the bar cadence for the synthetic provider and the
// kline interval selection for Binance.
func WithInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithSeed fixes the synthetic provider's random source.
func WithSeed(seed int64) Option {
	return func(f *Feed) { f.seed = seed }
}

// WithBinanceURL overrides the Binance websocket base, e.g. to point at the
// testnet. Empty keeps the public endpoint.
func WithBinanceURL(base string) Option {
	return func(f *Feed) {
		if base != "" {
			f.binanceURL = strings.TrimRight(base, "/")
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderSynthetic
	}
	f := &Feed{
		provider:   strings.ToLower(provider),
		log:        log,
		interval:   defaultInterval,
		seed:       1,
		binanceURL: defaultBinanceURL,
	}
	f.SetSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetSymbols replaces the tracked symbol list (deduplicated, sorted for determinism).
func (f *Feed) SetSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

func (f *Feed) snapshotSymbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Run pushes bar events onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- Event) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runSynthetic(ctx, out)
	}
}

// runSynthetic walks each symbol's price with small gaussian steps, emitting
// one bar per interval. The fixed seed keeps runs reproducible.
func (f *Feed) runSynthetic(ctx context.Context, out chan<- Event) error {
	rng := rand.New(rand.NewSource(f.seed))
	prices := make(map[string]float64)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			for _, sym := range f.snapshotSymbols() {
				last, ok := prices[sym]
				if !ok {
					last = 100
				}
				bar := syntheticBar(rng, last, ts.UTC())
				prices[sym] = bar.Close

				select {
				case out <- Event{Symbol: sym, Bar: bar}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

func syntheticBar(rng *rand.Rand, open float64, ts time.Time) market.Bar {
	step := open * (0.0002 + 0.002*rng.NormFloat64())
	close := open + step
	if close <= 0 {
		close = open * 0.99
	}
	high := close
	low := open
	if open > close {
		high, low = open, close
	}
	high += open * 0.0005 * rng.Float64()
	low -= open * 0.0005 * rng.Float64()
	if low <= 0 {
		low = close * 0.99
	}
	volume := 1000 * (0.5 + rng.Float64())
	return market.Bar{Ts: ts, Open: open, High: high, Low: low, Close: close, Volume: volume}
}
