package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
)

func seriesFromCloses(t *testing.T, closes []float64) *market.Series {
	t.Helper()
	s := market.NewSeries("TEST", len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		b := market.Bar{
			Ts:     start.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
		if err := s.Append(b); err != nil {
			t.Fatalf("append bar %d: %v", i, err)
		}
	}
	return s
}

func TestSMARequiresFullWindow(t *testing.T) {
	eng := New(Periods{Short: 3, Medium: 5, Long: 10})
	s := seriesFromCloses(t, []float64{10, 11, 12, 13})

	snap := eng.Compute(s)
	if !snap.SMAShort.Valid {
		t.Fatalf("expected short SMA valid with 4 bars")
	}
	if want := (11.0 + 12 + 13) / 3; math.Abs(snap.SMAShort.Value-want) > 1e-12 {
		t.Fatalf("short SMA = %.6f, want %.6f", snap.SMAShort.Value, want)
	}
	if snap.SMAMedium.Valid || snap.SMALong.Valid {
		t.Fatalf("expected medium/long SMA unavailable with 4 bars")
	}
}

func TestLongSMAUnavailableBelow200Bars(t *testing.T) {
	closes := make([]float64, 199)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	snap := New(DefaultPeriods).Compute(seriesFromCloses(t, closes))
	if snap.SMALong.Valid {
		t.Fatalf("sma200 must be unavailable with 199 bars")
	}

	closes = append(closes, 300)
	snap = New(DefaultPeriods).Compute(seriesFromCloses(t, closes))
	if !snap.SMALong.Valid {
		t.Fatalf("sma200 must be available with 200 bars")
	}
}

func TestRSIAllGainsIsHundred(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	snap := New(DefaultPeriods).Compute(seriesFromCloses(t, closes))
	if !snap.RSI.Valid {
		t.Fatalf("expected RSI valid with 30 bars")
	}
	if snap.RSI.Value != 100 {
		t.Fatalf("monotonic gains should pin RSI at 100, got %.4f", snap.RSI.Value)
	}
}

func TestRSIUnavailableWithoutHistory(t *testing.T) {
	snap := New(DefaultPeriods).Compute(seriesFromCloses(t, []float64{100, 101, 102}))
	if snap.RSI.Valid {
		t.Fatalf("expected RSI unavailable with 3 bars")
	}
}

func TestRSIMidpointOnAlternatingSeries(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 101
		}
	}
	snap := New(DefaultPeriods).Compute(seriesFromCloses(t, closes))
	if !snap.RSI.Valid {
		t.Fatalf("expected RSI valid")
	}
	// Equal gains and losses keep RSI near the neutral midpoint.
	if snap.RSI.Value < 40 || snap.RSI.Value > 60 {
		t.Fatalf("alternating series should hold RSI near 50, got %.4f", snap.RSI.Value)
	}
}

func TestVolumeRatio(t *testing.T) {
	s := market.NewSeries("TEST", 0)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		vol := 1_000_000.0
		if i == 19 {
			vol = 2_000_000
		}
		b := market.Bar{Ts: start.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: vol}
		if err := s.Append(b); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	snap := New(DefaultPeriods).Compute(s)
	if !snap.VolumeRatio.Valid {
		t.Fatalf("expected volume ratio valid at 20 bars")
	}
	// avg = (19*1M + 2M)/20 = 1.05M, ratio = 2M/1.05M
	want := 2_000_000.0 / 1_050_000.0
	if math.Abs(snap.VolumeRatio.Value-want) > 1e-9 {
		t.Fatalf("volume ratio = %.6f, want %.6f", snap.VolumeRatio.Value, want)
	}
}

func TestATRConstantRange(t *testing.T) {
	s := market.NewSeries("TEST", 0)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		b := market.Bar{Ts: start.AddDate(0, 0, i), Open: 100, High: 102, Low: 98, Close: 100, Volume: 1}
		if err := s.Append(b); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	snap := New(DefaultPeriods).Compute(s)
	if !snap.ATR.Valid {
		t.Fatalf("expected ATR valid")
	}
	if math.Abs(snap.ATR.Value-4) > 1e-12 {
		t.Fatalf("constant 4-point range should give ATR 4, got %.6f", snap.ATR.Value)
	}
}

func TestEmptySeriesSnapshot(t *testing.T) {
	snap := New(DefaultPeriods).Compute(market.NewSeries("TEST", 0))
	if snap.SMAShort.Valid || snap.RSI.Valid || snap.ATR.Valid || snap.VolumeRatio.Valid {
		t.Fatalf("empty series must yield no valid readings: %+v", snap)
	}
}
