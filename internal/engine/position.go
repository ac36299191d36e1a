package engine

import "fmt"

// Side is the per-symbol position state.
type Side int8

const (
	Flat Side = iota
	Long
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Position is the open exposure for one symbol. Stop and take-profit levels
// are fixed when the position is opened and never move afterwards.
type Position struct {
	Symbol     string
	Side       Side
	Size       float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
}

// Open reports whether there is live exposure.
func (p Position) Open() bool { return p.Side != Flat }

func (p Position) String() string {
	if !p.Open() {
		return fmt.Sprintf("%s FLAT", p.Symbol)
	}
	return fmt.Sprintf("%s %s %.0f@%.4f stop=%.4f take=%.4f",
		p.Symbol, p.Side, p.Size, p.EntryPrice, p.StopLoss, p.TakeProfit)
}
