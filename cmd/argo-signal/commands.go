package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rxtech-lab/argo-signal/internal/history"
	"github.com/rxtech-lab/argo-signal/internal/logger"
	"github.com/rxtech-lab/argo-signal/internal/strategy"
	"github.com/rxtech-lab/argo-signal/internal/trading"
	"github.com/rxtech-lab/argo-signal/internal/trading/engine"
	tradingprovider "github.com/rxtech-lab/argo-signal/internal/trading/provider"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func suggestAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return errors.New(errors.ErrCodeMissingParameter, "expected ASSET_A and ASSET_B")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exchange, err := tradingprovider.NewExchange(tradingprovider.Environment(cfg.Exchange.Environment), cfg.BinanceConfig())
	if err != nil {
		return err
	}

	// Only the mean-reversion engine is needed: its config is the base of the suggestion.
	system, err := trading.NewTradingSystem(trading.Options{
		Settings: cfg.EngineSettings(),
		Engines:  []strategy.Config{cfg.Engines.MeanReversion},
		Exchange: exchange,
		Store:    history.NewMemoryStore(1),
		Notifier: nil,
		Logger:   logger.NewNopLogger(),
		OnEvent:  nil,
	})
	if err != nil {
		return err
	}

	defer system.Close()

	pair := strategy.Pair{
		AssetA: strings.ToUpper(cmd.Args().Get(0)),
		AssetB: strings.ToUpper(cmd.Args().Get(1)),
	}

	suggestion, err := system.SuggestPair(ctx, pair, cmd.String("interval"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(map[string]any{
		"health": suggestion.Health,
		"engines": map[string]any{
			"mean_reversion": suggestion.Config,
		},
	})
	if err != nil {
		return err
	}

	if !suggestion.Health.Healthy {
		fmt.Fprintf(os.Stderr, "warning: %s/%s is not healthy: %s\n", pair.AssetA, pair.AssetB, suggestion.Health.Reason)
	}

	fmt.Print(string(out))

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return errors.New(errors.ErrCodeMissingParameter, "expected an engine name or settings")
	}

	var (
		schema string
		err    error
	)

	if name == "settings" {
		schema, err = engine.GetSettingsSchema()
	} else {
		schema, err = strategy.GetConfigSchema(types.StrategyName(name))
	}

	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func exportAction(_ context.Context, cmd *cli.Command) error {
	store, err := history.NewDuckDBStore(cmd.String("db"))
	if err != nil {
		return err
	}

	defer store.Close()

	files, err := store.ExportParquet(cmd.String("out"))
	if err != nil {
		return err
	}

	for _, f := range files {
		fmt.Println(f)
	}

	return nil
}
