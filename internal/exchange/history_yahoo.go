package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
)

// price converts the chart API's decimal values for bar math.
func price(d decimal.Decimal) float64 { return d.InexactFloat64() }

// HistoryProvider fetches historical bars used to warm up indicator windows.
type HistoryProvider interface {
	History(ctx context.Context, symbol string, lookback int) ([]market.Bar, error)
}

// YahooHistory pulls daily bars from the Yahoo Finance chart API.
type YahooHistory struct {
	log zerolog.Logger
}

// NewYahooHistory builds the provider.
func NewYahooHistory(log zerolog.Logger) *YahooHistory {
	return &YahooHistory{log: log}
}

// History returns up to lookback daily bars, oldest first. Bars that fail
// validation are skipped rather than poisoning the series.
func (y *YahooHistory) History(_ context.Context, symbol string, lookback int) ([]market.Bar, error) {
	if lookback <= 0 {
		lookback = 250
	}
	end := time.Now().UTC()
	// Calendar padding: markets are closed on weekends and holidays, so the
	// requested span must exceed the bar count.
	start := end.AddDate(0, 0, -(lookback*7/5 + 10))

	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var bars []market.Bar
	for iter.Next() {
		b := iter.Bar()
		bar := market.Bar{
			Ts:     time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:   price(b.Open),
			High:   price(b.High),
			Low:    price(b.Low),
			Close:  price(b.Close),
			Volume: float64(b.Volume),
		}
		if err := bar.Validate(); err != nil {
			y.log.Warn().Err(err).Str("sym", symbol).Time("ts", bar.Ts).Msg("dropping invalid history bar")
			continue
		}
		bars = append(bars, bar)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	y.log.Info().Str("sym", symbol).Int("bars", len(bars)).Msg("loaded history")
	return bars, nil
}
