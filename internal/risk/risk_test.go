package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/execution"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/indicator"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/signal"
)

func TestSizeExactFloor(t *testing.T) {
	sizer := NewSizer(Params{MaxRiskPerTrade: 0.02, StopLossPercent: 0.02})
	account := execution.AccountState{Equity: 6000}

	sizing, err := sizer.Size("AAPL", account, signal.Long, 100, indicator.Reading{})
	if err != nil {
		t.Fatalf("Size returned error: %v", err)
	}
	// riskAmount=120, riskPerUnit=2 -> size 60
	if sizing.Size != 60 {
		t.Fatalf("expected size 60, got %.2f", sizing.Size)
	}
	if math.Abs(sizing.StopLoss-98) > 1e-9 {
		t.Fatalf("expected stop at 98, got %.4f", sizing.StopLoss)
	}
	if math.Abs(sizing.TakeProfit-104) > 1e-9 {
		t.Fatalf("expected take profit at 104, got %.4f", sizing.TakeProfit)
	}
}

func TestSizeRejectedWhenBudgetTooSmall(t *testing.T) {
	sizer := NewSizer(Params{MaxRiskPerTrade: 0.02, StopLossPercent: 0.02})
	account := execution.AccountState{Equity: 100}

	_, err := sizer.Size("BRK", account, signal.Long, 10000, indicator.Reading{})
	var rej *RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	// riskAmount=2, riskPerUnit=200 -> floor(0.01)=0, suppressed not rounded up
	if math.Abs(rej.RiskAmount-2) > 1e-9 || math.Abs(rej.RiskPerUnit-200) > 1e-9 {
		t.Fatalf("unexpected rejection context: %+v", rej)
	}
	if rej.Error() == "" {
		t.Fatalf("rejection must carry a human-readable reason")
	}
}

func TestSizeShortMirrorsLevels(t *testing.T) {
	sizer := NewSizer(Params{MaxRiskPerTrade: 0.02, StopLossPercent: 0.02, TakeProfitPercent: 0.04})
	account := execution.AccountState{Equity: 6000}

	sizing, err := sizer.Size("AAPL", account, signal.Short, 100, indicator.Reading{})
	if err != nil {
		t.Fatalf("Size returned error: %v", err)
	}
	if sizing.Size != 60 {
		t.Fatalf("expected size 60, got %.2f", sizing.Size)
	}
	if math.Abs(sizing.StopLoss-102) > 1e-9 {
		t.Fatalf("short stop should sit above entry, got %.4f", sizing.StopLoss)
	}
	if math.Abs(sizing.TakeProfit-96) > 1e-9 {
		t.Fatalf("short take profit should sit below entry, got %.4f", sizing.TakeProfit)
	}
}

func TestSizeATRStops(t *testing.T) {
	sizer := NewSizer(Params{MaxRiskPerTrade: 0.02, ATRStops: true, ATRMultiple: 2})
	account := execution.AccountState{Equity: 6000}
	atr := indicator.Reading{Value: 1.5, Valid: true}

	sizing, err := sizer.Size("AAPL", account, signal.Long, 100, atr)
	if err != nil {
		t.Fatalf("Size returned error: %v", err)
	}
	// stop at 100 - 2*1.5 = 97, riskPerUnit 3, size floor(120/3)=40
	if math.Abs(sizing.StopLoss-97) > 1e-9 {
		t.Fatalf("expected ATR stop at 97, got %.4f", sizing.StopLoss)
	}
	if sizing.Size != 40 {
		t.Fatalf("expected size 40, got %.2f", sizing.Size)
	}
}

func TestSizeATRFallsBackWithoutReading(t *testing.T) {
	sizer := NewSizer(Params{MaxRiskPerTrade: 0.02, ATRStops: true, StopLossPercent: 0.02})
	account := execution.AccountState{Equity: 6000}

	sizing, err := sizer.Size("AAPL", account, signal.Long, 100, indicator.Reading{})
	if err != nil {
		t.Fatalf("Size returned error: %v", err)
	}
	if math.Abs(sizing.StopLoss-98) > 1e-9 {
		t.Fatalf("expected percent stop fallback at 98, got %.4f", sizing.StopLoss)
	}
}

func TestSizeRejectsNeutralAndBadPrice(t *testing.T) {
	sizer := NewSizer(Params{})
	account := execution.AccountState{Equity: 6000}

	if _, err := sizer.Size("AAPL", account, signal.Neutral, 100, indicator.Reading{}); err == nil {
		t.Fatalf("expected error for NEUTRAL direction")
	}
	if _, err := sizer.Size("AAPL", account, signal.Long, 0, indicator.Reading{}); err == nil {
		t.Fatalf("expected error for zero entry price")
	}
}

func TestEmergencyStopThreshold(t *testing.T) {
	account := execution.AccountState{Equity: 5000, StopTradingThreshold: 5400}
	if !account.EmergencyStop() {
		t.Fatalf("equity below threshold must trip the emergency stop")
	}
	account.Equity = 5401
	if account.EmergencyStop() {
		t.Fatalf("equity above threshold must not trip the emergency stop")
	}
	account.Equity = 5400
	if !account.EmergencyStop() {
		t.Fatalf("equity equal to threshold must trip the emergency stop")
	}
}
