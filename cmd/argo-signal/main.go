package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/rxtech-lab/argo-signal/internal/version"
	"github.com/urfave/cli/v3"
)

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML config file. Environment variables prefixed ARGO_SIGNAL_ override it",
			Value:   "",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Dotenv file loaded before the config",
			Value: ".env",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "argo-signal",
		Usage:   "Signal and decision engine for a Binance spot trading dashboard",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the engines and the dashboard API",
				Flags:  configFlags(),
				Action: serveAction,
			},
			{
				Name:      "suggest",
				Usage:     "Suggest mean-reversion thresholds for a pair from recent klines",
				ArgsUsage: "ASSET_A ASSET_B",
				Flags: append(configFlags(),
					&cli.StringFlag{
						Name:    "interval",
						Aliases: []string{"i"},
						Usage:   "Kline interval",
						Value:   "1h",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Number of klines per leg",
						Value:   500,
					},
				),
				Action: suggestAction,
			},
			{
				Name:      "schema",
				Usage:     "Print the JSON schema of an engine config",
				ArgsUsage: "mean_reversion|bollinger|trend_following|settings",
				Action:    schemaAction,
			},
			{
				Name:  "export",
				Usage: "Export a DuckDB history database to parquet files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Usage:    "Path to the DuckDB history database",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output directory",
						Value:   "export",
					},
				},
				Action: exportAction,
			},
			{
				Name:  "watch",
				Usage: "Open a terminal dashboard for a running server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "server",
						Aliases: []string{"s"},
						Usage:   "Address of the dashboard API",
						Value:   "http://localhost:8080",
					},
				},
				Action: watchAction,
			},
			{
				Name:  "version",
				Usage: "Print the version",
				Action: func(_ context.Context, _ *cli.Command) error {
					fmt.Println(version.GetVersion())

					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
