package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/config"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/engine"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/exchange"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/indicator"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/metrics"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/notify"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/paper"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/risk"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/strategy"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/util"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/webhook"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	broker := paper.NewBroker(cfg.Trading.InitialCapital, cfg.Trading.StopTradingBalance)
	if cfg.Paper.FillsPath != "" {
		recorder, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open fills recorder")
		}
		defer recorder.Close()
		broker.AddRecorder(recorder)
	}

	notifier := notify.NewWebhook(cfg.Notify.WebhookURL, util.Component(log, "notify"))

	trader := engine.New(
		engine.Config{
			RequireStrongEntries: cfg.Signal.RequireStrongEntries,
			HoldThroughNeutral:   cfg.Signal.HoldThroughNeutral,
			StopTradingThreshold: cfg.Trading.StopTradingBalance,
			HistoryCapacity:      cfg.Feed.HistoryBars,
		},
		indicator.New(indicator.Periods{
			Short:  cfg.Signal.SMAPeriods.Short,
			Medium: cfg.Signal.SMAPeriods.Medium,
			Long:   cfg.Signal.SMAPeriods.Long,
		}),
		strategy.Build(cfg.Signal),
		risk.NewSizer(risk.Params{
			MaxRiskPerTrade:   cfg.Trading.MaxRiskPerTrade,
			StopLossPercent:   cfg.Trading.StopLossPercent,
			TakeProfitPercent: cfg.Trading.TakeProfitPercent,
			ATRStops:          cfg.Trading.ATRStops,
			ATRMultiple:       cfg.Trading.ATRMultiple,
		}),
		broker,
		notifier,
		util.Component(log, "engine"),
	)

	var history exchange.HistoryProvider
	if cfg.Feed.HistoryProvider == "yahoo" {
		history = exchange.NewYahooHistory(util.Component(log, "history"))
	}
	seedHistory(ctx, cfg, trader, broker, history, util.Component(log, "history"))

	if cfg.App.WebhookAddr != "" {
		srv := webhook.Serve(cfg.App.WebhookAddr, trader, util.Component(log, "webhook"))
		defer srv.Close()
		log.Info().Str("addr", cfg.App.WebhookAddr).Msg("alert webhook up")
	}

	interval := time.Duration(cfg.Feed.IntervalMs) * time.Millisecond
	feed := exchange.NewFeed(cfg.Feed.Provider, cfg.Feed.Symbols, util.Component(log, "feed"),
		exchange.WithInterval(interval), exchange.WithBinanceURL(cfg.Feed.BinanceBaseURL))
	events := make(chan exchange.Event, 256)

	go func() {
		if err := feed.Run(ctx, events); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	log.Info().
		Str("provider", cfg.Feed.Provider).
		Strs("symbols", cfg.Feed.Symbols).
		Float64("capital", cfg.Trading.InitialCapital).
		Float64("floor", cfg.Trading.StopTradingBalance).
		Msg("trading engine started")

	for {
		select {
		case <-ctx.Done():
			final, _ := broker.Account(context.Background())
			log.Info().
				Float64("start", broker.StartingCash()).
				Float64("equity", final.Equity).
				Float64("realized", broker.RealizedPnL()).
				Msg("shutting down")
			return
		case ev := <-events:
			broker.OnBar(ev.Symbol, ev.Bar)
			dec, err := trader.OnBar(ctx, ev.Symbol, ev.Bar)
			if err != nil {
				log.Error().Err(err).Str("sym", ev.Symbol).Msg("decision cycle failed")
				continue
			}
			if dec.Intent != nil {
				log.Info().
					Str("sym", ev.Symbol).
					Str("action", string(dec.Intent.Action)).
					Str("reason", dec.Intent.Reason).
					Str("position", dec.Position.String()).
					Msg("state transition")
			}
		}
	}
}

// seedHistory warms up indicator windows from historical daily bars so the
// long SMA is available before the live feed starts.
func seedHistory(ctx context.Context, cfg *config.Config, trader *engine.Trader, broker *paper.Broker, provider exchange.HistoryProvider, log zerolog.Logger) {
	if provider == nil {
		return
	}
	for _, sym := range cfg.Feed.Symbols {
		bars, err := provider.History(ctx, sym, cfg.Feed.HistoryBars)
		if err != nil {
			log.Warn().Err(err).Str("sym", sym).Msg("history seed failed")
			continue
		}
		for _, bar := range bars {
			broker.OnBar(sym, bar)
		}
		n := trader.Seed(sym, bars)
		log.Info().Str("sym", sym).Int("bars", n).Msg("seeded history")
	}
}
