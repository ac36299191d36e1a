package strategy

import (
	"testing"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/config"
)

func TestFiltersFromConfig(t *testing.T) {
	cfg := config.Signal{
		UseTrendFilter:     true,
		UseVolumeFilter:    true,
		TrendMinSeparation: 0.03,
		MinVolumeRatio:     1.5,
		ConfirmationBars:   2,
	}
	f := FiltersFromConfig(cfg)
	if !f.Trend || !f.Volume || f.RSI || f.Volatility {
		t.Fatalf("filter toggles not mapped: %+v", f)
	}
	if f.TrendMinSeparation != 0.03 || f.MinVolumeRatio != 1.5 || f.ConfirmationBars != 2 {
		t.Fatalf("thresholds not mapped: %+v", f)
	}
}

func TestBuildFillsDefaults(t *testing.T) {
	cls := Build(config.Signal{UseRSIFilter: true})
	if cls.filters.RSILow != 30 || cls.filters.RSIHigh != 70 {
		t.Fatalf("expected default RSI band, got %+v", cls.filters)
	}
}
