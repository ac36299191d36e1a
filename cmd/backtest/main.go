package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/backtest"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/config"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/exchange"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/indicator"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/market"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/strategy"
	"github.com/ceteongvanness/Triple-SMA-Indicator/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	symbol := flag.String("symbol", "AAPL", "symbol to replay")
	source := flag.String("source", "synthetic", "bar source: synthetic or yahoo")
	numBars := flag.Int("bars", 500, "synthetic bars to generate")
	seed := flag.Int64("seed", 1, "synthetic generator seed")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	log := util.Console(util.NewLogger(cfg.App.LogLevel))

	var bars []market.Bar
	switch *source {
	case "yahoo":
		provider := exchange.NewYahooHistory(util.Component(log, "history"))
		bars, err = provider.History(context.Background(), *symbol, *numBars)
		if err != nil {
			log.Fatal().Err(err).Msg("fetch history")
		}
	default:
		start := time.Now().UTC().AddDate(0, 0, -*numBars)
		half := *numBars / 2
		bars = backtest.GenerateBars(start, 100, *seed,
			backtest.Regime{Bars: half, Drift: 0.002, Vol: 0.01},
			backtest.Regime{Bars: *numBars - half, Drift: -0.001, Vol: 0.015},
		)
	}

	bt := backtest.New(
		indicator.Periods{
			Short:  cfg.Signal.SMAPeriods.Short,
			Medium: cfg.Signal.SMAPeriods.Medium,
			Long:   cfg.Signal.SMAPeriods.Long,
		},
		strategy.FiltersFromConfig(cfg.Signal),
	)
	res, err := bt.Run(*symbol, bars, cfg.Trading.InitialCapital)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}

	stats := res.Stats
	fmt.Printf("symbol          %s\n", res.Symbol)
	fmt.Printf("bars            %d\n", stats.Bars)
	fmt.Printf("buy signals     %d\n", stats.BuySignals)
	fmt.Printf("sell signals    %d\n", stats.SellSignals)
	fmt.Printf("trades          %d\n", stats.Trades)
	fmt.Printf("win rate        %.1f%%\n", stats.WinRate*100)
	fmt.Printf("total return    %.2f%%\n", stats.TotalReturn*100)
	fmt.Printf("buy & hold      %.2f%%\n", stats.BuyHoldReturn*100)
	fmt.Printf("max drawdown    %.2f%%\n", stats.MaxDrawdown*100)
	fmt.Printf("final equity    %.2f\n", stats.FinalEquity)

	latest := res.Latest
	fmt.Printf("latest signal   %s (strength %.1f)\n", latest.Direction, latest.Strength)
	if latest.DistShort.Valid && latest.DistMedium.Valid && latest.DistLong.Valid {
		fmt.Printf("close vs smas   %+.2f%% / %+.2f%% / %+.2f%%\n",
			latest.DistShort.Value*100, latest.DistMedium.Value*100, latest.DistLong.Value*100)
	}
}
