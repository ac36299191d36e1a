package strategy

import (
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/config"
)

// FiltersFromConfig maps the signal configuration block onto classifier
// filters. Zero-valued thresholds fall back to the classifier defaults.
func FiltersFromConfig(cfg config.Signal) Filters {
	return Filters{
		Trend:              cfg.UseTrendFilter,
		RSI:                cfg.UseRSIFilter,
		Volume:             cfg.UseVolumeFilter,
		Volatility:         cfg.UseVolatilityFilter,
		TrendMinSeparation: cfg.TrendMinSeparation,
		RSILow:             cfg.RSILow,
		RSIHigh:            cfg.RSIHigh,
		MinVolumeRatio:     cfg.MinVolumeRatio,
		MaxVolatility:      cfg.MaxVolatility,
		ConfirmationBars:   cfg.ConfirmationBars,
	}
}

// Build returns a classifier configured from the signal settings.
func Build(cfg config.Signal) *Classifier {
	return NewClassifier(FiltersFromConfig(cfg))
}
