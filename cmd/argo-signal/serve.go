package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rxtech-lab/argo-signal/internal/api"
	"github.com/rxtech-lab/argo-signal/internal/config"
	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/notify"
	"github.com/rxtech-lab/argo-signal/internal/trading"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine/engine_v1/warmup"
	tradingprovider "github.com/rxtech-lab/argo-signal/internal/trading/provider"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(cmd.String("env-file")); err != nil {
		return nil, err
	}

	return config.Load(cmd.String("config"))
}

func openStore(cfg *config.Config) (history.Store, error) {
	if cfg.History.Path == "" {
		return history.NewMemoryStore(cfg.History.MemoryLimit), nil
	}

	return history.NewDuckDBStore(cfg.History.Path)
}

func newNotifier(cfg *config.Config, log *logger.Logger) (notify.Notifier, error) {
	if !cfg.Telegram.Enabled {
		return notify.NopNotifier{}, nil
	}

	return notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
}

// warmupWithProgress renders one progress bar per engine while windows are pre-filled.
func warmupWithProgress(ctx context.Context, system *trading.TradingSystem) error {
	var mu sync.Mutex

	bars := map[types.StrategyName]*progressbar.ProgressBar{}

	err := system.Warmup(ctx, func(name types.StrategyName, done, total int, result warmup.SymbolResult) {
		mu.Lock()
		defer mu.Unlock()

		bar, ok := bars[name]
		if !ok {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription(fmt.Sprintf("Warming up %s", name)),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(os.Stderr),
			)
			bars[name] = bar
		}

		bar.Describe(fmt.Sprintf("Warming up %s: %s from %s (%d)", name, result.Symbol, result.Source, result.Samples))
		_ = bar.Set(done)

		if done == total {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
	})

	return err
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.HasCredentials() {
		log.Warn("No exchange credentials configured, orders and balance sync will fail")
	}

	exchange, err := tradingprovider.NewExchange(tradingprovider.Environment(cfg.Exchange.Environment), cfg.BinanceConfig())
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Failed to close history store", zap.Error(err))
		}
	}()

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		return err
	}

	hub := api.NewHub(log)
	go hub.Run(ctx)

	system, err := trading.NewTradingSystem(trading.Options{
		Settings: cfg.EngineSettings(),
		Engines:  cfg.Engines.All(),
		Exchange: exchange,
		Store:    store,
		Notifier: notifier,
		Logger:   log,
		OnEvent:  hub.Publish,
	})
	if err != nil {
		return err
	}

	defer system.Close()

	log.Info("Starting argo-signal",
		zap.String("environment", cfg.Exchange.Environment),
		zap.String("history", cfg.History.Path),
		zap.Bool("telegram", cfg.Telegram.Enabled),
	)

	if err := warmupWithProgress(ctx, system); err != nil {
		log.Warn("Warm-up incomplete, engines will retry on start", zap.Error(err))
	}

	server := api.NewServer(ctx, system, hub, log)
	if err := server.Start(cfg.Server.Listen); err != nil {
		return err
	}

	go server.BroadcastStatus(ctx, cfg.Server.StatusInterval)

	if cfg.Server.AutoStart {
		if err := system.StartAll(ctx); err != nil {
			log.Error("Failed to start engines", zap.Error(err))
		}
	}

	<-ctx.Done()
	log.Info("Shutting down")

	if err := server.Shutdown(); err != nil {
		log.Warn("HTTP server shutdown failed", zap.Error(err))
	}

	if err := system.StopAll(); err != nil {
		log.Warn("Failed to stop engines", zap.Error(err))
	}

	return nil
}
