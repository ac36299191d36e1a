// Package signal standardizes payloads shared between the classifier, risk, and engine layers.
package signal

import "time"

// Direction is the trend classification produced by the classifier.
type Direction int8

const (
	Neutral Direction = 0
	Long    Direction = 1
	Short   Direction = -1
)

// String returns the wire/log form of the direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "NEUTRAL"
	}
}

// StrongThreshold separates weak from strong signals for reporting.
const StrongThreshold = 60.0

// Signal expresses a classified trend for one bar. Strength is a 0-100
// composite used for reporting only; it never changes the direction.
type Signal struct {
	Symbol    string
	Direction Direction
	Strength  float64
	Ts        time.Time
}

// Strong reports whether the signal clears the reporting threshold.
func (s Signal) Strong() bool { return s.Strength > StrongThreshold }
