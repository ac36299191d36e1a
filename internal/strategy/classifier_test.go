package strategy

import (
	"testing"
	"time"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/indicator"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/signal"
)

func reading(v float64) indicator.Reading {
	return indicator.Reading{Value: v, Valid: true}
}

// alignedLong is a snapshot with close > sma20 > sma50 > sma200, 5.5%
// short/long separation, RSI inside the band and elevated volume.
func alignedLong() indicator.Snapshot {
	return indicator.Snapshot{
		Symbol:      "AAPL",
		Ts:          time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Close:       107,
		SMAShort:    reading(105.5),
		SMAMedium:   reading(102),
		SMALong:     reading(100),
		RSI:         reading(65),
		VolumeRatio: reading(1.8),
		ATR:         reading(1.2),
	}
}

func TestBaseRuleDirections(t *testing.T) {
	c := NewClassifier(Filters{})

	if sig := c.OnSnapshot(alignedLong()); sig.Direction != signal.Long {
		t.Fatalf("expected LONG, got %s", sig.Direction)
	}

	snap := alignedLong()
	snap.Close = 94
	snap.SMAShort = reading(96)
	snap.SMAMedium = reading(98)
	snap.SMALong = reading(100)
	if sig := c.OnSnapshot(snap); sig.Direction != signal.Short {
		t.Fatalf("expected SHORT, got %s", sig.Direction)
	}

	snap = alignedLong()
	snap.SMAMedium = reading(106) // above the short SMA, breaks the ordering
	if sig := c.OnSnapshot(snap); sig.Direction != signal.Neutral {
		t.Fatalf("expected NEUTRAL on mixed ordering, got %s", sig.Direction)
	}
}

func TestMissingLongSMAForcesNeutral(t *testing.T) {
	c := NewClassifier(Filters{})
	snap := alignedLong()
	snap.SMALong = indicator.Reading{}
	if sig := c.OnSnapshot(snap); sig.Direction != signal.Neutral {
		t.Fatalf("missing sma200 must classify NEUTRAL, got %s", sig.Direction)
	}
}

func TestPersistenceRequiresPriorBars(t *testing.T) {
	c := NewClassifier(Filters{ConfirmationBars: 2})

	if sig := c.OnSnapshot(alignedLong()); sig.Direction != signal.Neutral {
		t.Fatalf("first aligned bar should not confirm, got %s", sig.Direction)
	}
	if sig := c.OnSnapshot(alignedLong()); sig.Direction != signal.Neutral {
		t.Fatalf("second aligned bar should not confirm, got %s", sig.Direction)
	}
	if sig := c.OnSnapshot(alignedLong()); sig.Direction != signal.Long {
		t.Fatalf("third aligned bar should confirm LONG, got %s", sig.Direction)
	}
}

func TestPersistenceResetsOnNeutralBar(t *testing.T) {
	c := NewClassifier(Filters{ConfirmationBars: 2})
	c.OnSnapshot(alignedLong())
	c.OnSnapshot(alignedLong())

	mixed := alignedLong()
	mixed.SMAMedium = reading(106) // above the short SMA, breaks the ordering
	c.OnSnapshot(mixed)

	if sig := c.OnSnapshot(alignedLong()); sig.Direction != signal.Neutral {
		t.Fatalf("confirmation streak must restart after a neutral bar, got %s", sig.Direction)
	}
}

func TestTrendFilterNarrows(t *testing.T) {
	c := NewClassifier(Filters{Trend: true})
	snap := alignedLong()
	snap.Close = 101
	snap.SMAShort = reading(100.5) // 0.5% separation, under the 2% floor
	snap.SMAMedium = reading(100.2)
	snap.SMALong = reading(100)
	if sig := c.OnSnapshot(snap); sig.Direction != signal.Neutral {
		t.Fatalf("weak separation must be filtered to NEUTRAL, got %s", sig.Direction)
	}
	if sig := c.OnSnapshot(alignedLong()); sig.Direction != signal.Long {
		t.Fatalf("4%% separation should pass the trend filter, got %s", sig.Direction)
	}
}

func TestRSIFilterNarrows(t *testing.T) {
	c := NewClassifier(Filters{RSI: true})

	snap := alignedLong()
	snap.RSI = reading(85)
	if sig := c.OnSnapshot(snap); sig.Direction != signal.Neutral {
		t.Fatalf("overbought RSI must be filtered, got %s", sig.Direction)
	}

	snap.RSI = indicator.Reading{}
	if sig := c.OnSnapshot(snap); sig.Direction != signal.Neutral {
		t.Fatalf("missing RSI must fail an enabled RSI filter, got %s", sig.Direction)
	}
}

func TestVolumeFilterNarrows(t *testing.T) {
	c := NewClassifier(Filters{Volume: true})
	snap := alignedLong()
	snap.VolumeRatio = reading(0.9)
	if sig := c.OnSnapshot(snap); sig.Direction != signal.Neutral {
		t.Fatalf("thin volume must be filtered, got %s", sig.Direction)
	}
}

func TestVolatilityFilterNarrows(t *testing.T) {
	c := NewClassifier(Filters{Volatility: true, MaxVolatility: 0.02})
	snap := alignedLong()
	snap.ATR = reading(5) // ATR/close ~4.7%, above the 2% ceiling
	if sig := c.OnSnapshot(snap); sig.Direction != signal.Neutral {
		t.Fatalf("high volatility must be filtered, got %s", sig.Direction)
	}

	snap.ATR = reading(1)
	if sig := c.OnSnapshot(snap); sig.Direction != signal.Long {
		t.Fatalf("calm volatility should pass, got %s", sig.Direction)
	}
}

func TestFiltersNeverPromoteNeutral(t *testing.T) {
	c := NewClassifier(Filters{Trend: true, RSI: true, Volume: true})
	snap := alignedLong()
	snap.SMAMedium = reading(106) // neutral base rule, strong everything else
	snap.VolumeRatio = reading(3)
	if sig := c.OnSnapshot(snap); sig.Direction != signal.Neutral {
		t.Fatalf("filters must never promote NEUTRAL, got %s", sig.Direction)
	}
}

func TestStrengthComposite(t *testing.T) {
	got := Strength(alignedLong())
	if got <= signal.StrongThreshold {
		t.Fatalf("aligned snapshot should score above %.0f, got %.2f", signal.StrongThreshold, got)
	}
	if got > 100 {
		t.Fatalf("strength must stay within 0-100, got %.2f", got)
	}

	weak := indicator.Snapshot{Close: 100}
	if s := Strength(weak); s != 0 {
		t.Fatalf("snapshot without readings must score 0, got %.2f", s)
	}
}
