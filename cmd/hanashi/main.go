package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bdobrica/hanashi/common/version"
	"github.com/bdobrica/hanashi/internal/hanashi/app"
	"github.com/bdobrica/hanashi/internal/hanashi/config"
	"github.com/bdobrica/hanashi/internal/hanashi/observability"
)

func main() {
	configPath := flag.String("config", config.Path(), "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrDefaultWritten) {
			fmt.Fprintf(os.Stderr, "A default configuration was written to %s.\nSet api_key and the matrix section, then start Hanashi again.\n", *configPath)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	observability.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.Info("starting", "version", version.Version, "commit", version.GitCommit, "build_time", version.BuildTime)

	hanashi, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize Hanashi", "err", observability.Redact(err.Error(), cfg.APIKey, cfg.Matrix.AccessToken))
		os.Exit(1)
	}
	defer hanashi.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := hanashi.Run(ctx); err != nil {
		slog.Error("Hanashi stopped with an error", "err", err)
		hanashi.Stop()
		os.Exit(1)
	}
}
