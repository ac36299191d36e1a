// Package config exposes strongly typed application configuration structs
// loaded from YAML, with secrets overlaid from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	WebhookAddr string `yaml:"webhook_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed selects the bar source and the symbols to track. The Binance kline
// streams are public, so no credentials are carried here.
type Feed struct {
	Provider        string   `yaml:"provider"`         // synthetic or binance
	HistoryProvider string   `yaml:"history_provider"` // yahoo or empty
	Symbols         []string `yaml:"symbols"`
	IntervalMs      int      `yaml:"interval_ms"`
	HistoryBars     int      `yaml:"history_bars"`
	BinanceBaseURL  string   `yaml:"binance_base_url"` // websocket base, empty for the public endpoint
}

// Trading encodes the capital and risk guard-rails.
type Trading struct {
	InitialCapital     float64 `yaml:"initial_capital"`
	StopTradingBalance float64 `yaml:"stop_trading_balance"`
	MaxRiskPerTrade    float64 `yaml:"max_risk_per_trade"`
	StopLossPercent    float64 `yaml:"stop_loss_percent"`
	TakeProfitPercent  float64 `yaml:"take_profit_percent"`
	ATRStops           bool    `yaml:"atr_stops"`
	ATRMultiple        float64 `yaml:"atr_multiple"`
}

// SMAPeriods sets the three moving-average windows.
type SMAPeriods struct {
	Short  int `yaml:"short"`
	Medium int `yaml:"medium"`
	Long   int `yaml:"long"`
}

// Signal groups the classifier knobs: SMA windows plus the optional
// confirmation filters layered on the base alignment rule.
type Signal struct {
	SMAPeriods           SMAPeriods `yaml:"sma_periods"`
	UseTrendFilter       bool       `yaml:"use_trend_filter"`
	UseRSIFilter         bool       `yaml:"use_rsi_filter"`
	UseVolumeFilter      bool       `yaml:"use_volume_filter"`
	UseVolatilityFilter  bool       `yaml:"use_volatility_filter"`
	TrendMinSeparation   float64    `yaml:"trend_min_separation"`
	RSILow               float64    `yaml:"rsi_low"`
	RSIHigh              float64    `yaml:"rsi_high"`
	MinVolumeRatio       float64    `yaml:"min_volume_ratio"`
	MaxVolatility        float64    `yaml:"max_volatility"`
	ConfirmationBars     int        `yaml:"confirmation_bars"`
	RequireStrongEntries bool       `yaml:"require_strong_entries"`
	HoldThroughNeutral   bool       `yaml:"hold_through_neutral"`
}

// Paper captures paper-trading settings.
type Paper struct {
	FillsPath string `yaml:"fills_path"`
}

// Notify configures the outbound alert webhook.
type Notify struct {
	WebhookURL string `yaml:"webhook_url"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Feed    Feed    `yaml:"feed"`
	Trading Trading `yaml:"trading"`
	Signal  Signal  `yaml:"signal"`
	Paper   Paper   `yaml:"paper"`
	Notify  Notify  `yaml:"notify"`
}

// envOverrides are secrets kept out of the YAML file.
type envOverrides struct {
	NotifyWebhookURL string `envconfig:"NOTIFY_WEBHOOK_URL"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// LoadWithEnv loads the YAML file, then overlays secrets from a .env file
// (when present) and the process environment under the TSMA prefix.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	var env envOverrides
	if err := envconfig.Process("TSMA", &env); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if env.NotifyWebhookURL != "" {
		cfg.Notify.WebhookURL = env.NotifyWebhookURL
	}
	return cfg, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
