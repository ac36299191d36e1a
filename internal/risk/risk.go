// Package risk sizes entries under an account-level risk budget and guards
// the emergency capital floor.
package risk

import (
	"fmt"
	"math"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/execution"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/indicator"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/signal"
)

// Params configures position sizing and protective levels. Levels are fixed
// at entry for the life of the position; trailing stops are a possible later
// extension, not implemented here.
type Params struct {
	MaxRiskPerTrade   float64 // fraction of equity risked per entry, default 0.02
	StopLossPercent   float64 // default 0.02
	TakeProfitPercent float64 // default 0.04
	ATRStops          bool    // stop at entry -/+ ATRMultiple*ATR instead of percent
	ATRMultiple       float64 // default 2
}

func (p Params) withDefaults() Params {
	if p.MaxRiskPerTrade <= 0 {
		p.MaxRiskPerTrade = 0.02
	}
	if p.StopLossPercent <= 0 {
		p.StopLossPercent = 0.02
	}
	if p.TakeProfitPercent <= 0 {
		p.TakeProfitPercent = 0.04
	}
	if p.ATRMultiple <= 0 {
		p.ATRMultiple = 2
	}
	return p
}

// Sizing is an accepted entry: whole-unit size plus protective levels.
type Sizing struct {
	Size       float64
	StopLoss   float64
	TakeProfit float64
}

// RejectionError is the soft outcome when the risk budget cannot buy a single
// unit. The entry is suppressed, not rounded up; callers report it and move on.
type RejectionError struct {
	Symbol      string
	RiskAmount  float64
	RiskPerUnit float64
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("sizing rejected for %s: risk budget %.2f buys less than one unit at %.2f risk/unit",
		e.Symbol, e.RiskAmount, e.RiskPerUnit)
}

// Sizer computes entry sizes from a consistent equity snapshot.
type Sizer struct {
	params Params
}

// NewSizer builds a sizer with defaults filled in.
func NewSizer(p Params) *Sizer {
	return &Sizer{params: p.withDefaults()}
}

// Params returns the effective parameters after defaulting.
func (s *Sizer) Params() Params { return s.params }

// Size computes the entry size and protective levels for a directional signal.
//
//	riskAmount  = equity * maxRiskPerTrade
//	riskPerUnit = entryPrice * stopLossPercent (or entry distance to the ATR stop)
//	size        = floor(riskAmount / riskPerUnit), rejected when < 1
//
// The division is guarded: a zero or negative riskPerUnit rejects instead of
// propagating Inf/NaN into the order path.
func (s *Sizer) Size(symbol string, account execution.AccountState, dir signal.Direction, entryPrice float64, atr indicator.Reading) (Sizing, error) {
	if dir == signal.Neutral {
		return Sizing{}, fmt.Errorf("no entry for NEUTRAL signal")
	}
	if entryPrice <= 0 {
		return Sizing{}, fmt.Errorf("invalid entry price %.4f", entryPrice)
	}

	p := s.params
	stop, take := s.levels(dir, entryPrice, atr)

	riskAmount := account.Equity * p.MaxRiskPerTrade
	riskPerUnit := math.Abs(entryPrice - stop)
	if riskPerUnit <= 0 {
		return Sizing{}, &RejectionError{Symbol: symbol, RiskAmount: riskAmount, RiskPerUnit: riskPerUnit}
	}

	size := math.Floor(riskAmount / riskPerUnit)
	if size < 1 {
		return Sizing{}, &RejectionError{Symbol: symbol, RiskAmount: riskAmount, RiskPerUnit: riskPerUnit}
	}
	return Sizing{Size: size, StopLoss: stop, TakeProfit: take}, nil
}

// levels places the stop and take-profit around the entry. ATR stops fall
// back to the percent stop when the ATR reading is unavailable.
func (s *Sizer) levels(dir signal.Direction, entryPrice float64, atr indicator.Reading) (stop, take float64) {
	p := s.params
	stopDist := entryPrice * p.StopLossPercent
	if p.ATRStops && atr.Valid && atr.Value > 0 {
		stopDist = p.ATRMultiple * atr.Value
	}
	takeDist := entryPrice * p.TakeProfitPercent

	if dir == signal.Long {
		return entryPrice - stopDist, entryPrice + takeDist
	}
	return entryPrice + stopDist, entryPrice - takeDist
}
