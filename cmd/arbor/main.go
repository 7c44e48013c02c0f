package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"arbor/pkg/api"
	"arbor/pkg/client"
	"arbor/pkg/config"
	"arbor/pkg/core"
	"arbor/pkg/dataset"
	"arbor/pkg/ingest"
	"arbor/pkg/storage"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	app := cli.App{
		Name:    "arbor",
		Usage:   "street tree height index",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML config file",
				EnvVars: []string{"ARBOR_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			serveCmd,
			importCmd,
			queryCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup loads the config and installs the default logger.
func setup(cctx *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.SlogLevel()
	if cctx.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "build the category indexes and serve queries over HTTP",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "addr", Usage: "listen address"},
		&cli.StringFlag{Name: "data", Usage: "dataset path (xlsx, csv or sqlite)"},
		&cli.StringFlag{Name: "format", Usage: "dataset format, inferred from the extension when empty"},
		&cli.StringFlag{Name: "sheet", Usage: "worksheet name for xlsx datasets"},
		&cli.IntFlag{Name: "limit", Usage: "maximum rows to read, 0 for all"},
	},
	Action: func(cctx *cli.Context) error {
		cfg, logger, err := setup(cctx)
		if err != nil {
			return err
		}
		applyDataFlags(cctx, &cfg.Data)
		if cctx.IsSet("addr") {
			cfg.Server.Addr = cctx.String("addr")
		}

		ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		cat, err := dataset.LoadCatalog(ctx, cfg.Data, logger)
		if err != nil {
			return fmt.Errorf("building catalog: %w", err)
		}

		srv := api.NewServer(core.NewQueryService(cat), api.Options{
			Logger:  logger,
			Version: version,
		})
		return srv.Start(ctx, cfg.Server.Addr)
	},
}

var importCmd = &cli.Command{
	Name:  "import",
	Usage: "copy a dataset into an SQLite database",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "source dataset path", Required: true},
		&cli.StringFlag{Name: "to", Usage: "target SQLite path", Value: "trees.db"},
		&cli.StringFlag{Name: "format", Usage: "source format, inferred from the extension when empty"},
		&cli.StringFlag{Name: "sheet", Usage: "worksheet name for xlsx sources"},
		&cli.IntFlag{Name: "limit", Usage: "maximum rows to read, 0 for all"},
		&cli.BoolFlag{Name: "truncate", Usage: "empty the target table first"},
	},
	Action: func(cctx *cli.Context) error {
		cfg, logger, err := setup(cctx)
		if err != nil {
			return err
		}
		cfg.Data.Path = cctx.String("from")
		cfg.Data.Format = ""
		applyDataFlags(cctx, &cfg.Data)

		ctx := cctx.Context
		return runImport(ctx, cfg.Data, cctx.String("to"), cctx.Bool("truncate"), logger)
	},
}

func runImport(ctx context.Context, data config.DataConfig, target string, truncate bool, logger *slog.Logger) error {
	src, c, err := dataset.Open(data, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	records, st, err := ingest.NewIngestor(src, data.Limit, logger).Load(ctx)
	if err != nil {
		return err
	}

	measured := records[:0:0]
	for _, r := range records {
		if r.Measured() {
			measured = append(measured, r)
		}
	}

	db, err := storage.OpenSQLite(target, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if truncate {
		if err := db.Truncate(ctx); err != nil {
			return fmt.Errorf("truncate %s: %w", target, err)
		}
	}
	if err := db.BatchWrite(ctx, measured); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	logger.Info("import complete", "target", target, "written", len(measured), "unmeasured", len(records)-len(measured), "malformed", st.Malformed, "duplicates", st.Duplicates)
	return nil
}

var queryCmd = &cli.Command{
	Name:      "query",
	Usage:     "ask a running server for the largest or smallest tree",
	ArgsUsage: "<largest|smallest> <category>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "server", Usage: "server address", Value: config.DefaultAddr},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return cli.Exit("usage: arbor query <largest|smallest> <category>", 2)
		}

		cl, err := client.New(cctx.String("server"))
		if err != nil {
			return err
		}

		var rec interface{}
		category := cctx.Args().Get(1)
		switch cctx.Args().Get(0) {
		case "largest":
			rec, err = cl.Largest(cctx.Context, category)
		case "smallest":
			rec, err = cl.Smallest(cctx.Context, category)
		default:
			return cli.Exit(fmt.Sprintf("unknown query %q", cctx.Args().Get(0)), 2)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func applyDataFlags(cctx *cli.Context, data *config.DataConfig) {
	if cctx.IsSet("data") {
		data.Path = cctx.String("data")
		data.Format = ""
	}
	if cctx.IsSet("format") {
		data.Format = cctx.String("format")
	}
	if cctx.IsSet("sheet") {
		data.Sheet = cctx.String("sheet")
	}
	if cctx.IsSet("limit") {
		data.Limit = cctx.Int("limit")
	}
}
