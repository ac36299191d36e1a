// Package market holds the bar types shared between feeds, indicators, and the engine.
package market

import (
	"errors"
	"time"
)

// Bar is a single OHLCV price bar. Bars are immutable once appended to a Series.
type Bar struct {
	Ts     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// ErrStaleBar is returned when an appended bar does not advance the series timestamp.
var ErrStaleBar = errors.New("bar timestamp not after last bar")

// Validate rejects bars the notebook's data-quality pass would drop:
// non-positive prices, inverted high/low, or a close outside the bar range.
func (b Bar) Validate() error {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return errors.New("non-positive price")
	}
	if b.High < b.Low {
		return errors.New("high below low")
	}
	if b.Close > b.High || b.Close < b.Low {
		return errors.New("close outside high/low range")
	}
	return nil
}

// Series is an ordered bar history for one symbol. Timestamps are unique and
// strictly increasing; replayed bars are rejected rather than duplicated.
type Series struct {
	symbol string
	bars   []Bar
}

// NewSeries creates an empty series, optionally pre-sizing storage.
func NewSeries(symbol string, capacity int) *Series {
	if capacity < 0 {
		capacity = 0
	}
	return &Series{symbol: symbol, bars: make([]Bar, 0, capacity)}
}

// Symbol returns the symbol this series tracks.
func (s *Series) Symbol() string { return s.symbol }

// Len returns the number of bars ingested.
func (s *Series) Len() int { return len(s.bars) }

// Append validates and stores a new bar. A bar whose timestamp does not
// advance past the last stored bar returns ErrStaleBar so callers can treat
// replays as no-ops instead of double-counting them.
func (s *Series) Append(b Bar) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if n := len(s.bars); n > 0 && !b.Ts.After(s.bars[n-1].Ts) {
		return ErrStaleBar
	}
	s.bars = append(s.bars, b)
	return nil
}

// Last returns the most recent bar, or false when the series is empty.
func (s *Series) Last() (Bar, bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// Tail returns up to n most recent bars, oldest first. The slice aliases the
// series storage and must not be mutated.
func (s *Series) Tail(n int) []Bar {
	if n <= 0 || len(s.bars) == 0 {
		return nil
	}
	if n > len(s.bars) {
		n = len(s.bars)
	}
	return s.bars[len(s.bars)-n:]
}

// Bars returns the full history, oldest first. Read-only view.
func (s *Series) Bars() []Bar { return s.bars }
