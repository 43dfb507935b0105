package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saypay/pkg/app"
	"saypay/pkg/db"

	"github.com/BurntSushi/toml"
	"github.com/go-pg/pg/v10"
	"github.com/joho/godotenv"
	"github.com/vmkteam/embedlog"
)

const appName = "saypay"

var (
	flConfigPath = flag.String("config", "config.toml", "path to config file")
	flVerbose    = flag.Bool("verbose", false, "enable debug output")
	flJSONLogs   = flag.Bool("json", false, "enable json log output")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	sl := embedlog.NewLogger(*flVerbose, *flJSONLogs)
	slog.SetDefault(sl.Log())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg app.Config
	if _, err := toml.DecodeFile(*flConfigPath, &cfg); err != nil {
		exitOnError(ctx, sl, err, "failed to read config")
	}

	// secrets come from the environment, not the config file
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.Token = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}

	pgdb := pg.Connect(cfg.Database)
	dbc := db.New(pgdb)

	version, err := dbc.Version(ctx)
	if err != nil {
		exitOnError(ctx, sl, err, "failed to connect to database")
	}
	sl.Print(ctx, "connected to database", "version", version)

	a, err := app.New(ctx, appName, sl, cfg, dbc)
	if err != nil {
		exitOnError(ctx, sl, err, "failed to create app")
	}

	go func() {
		<-ctx.Done()
		sl.Print(ctx, "shutting down", "app", appName)
		if err := a.Shutdown(5 * time.Second); err != nil {
			sl.Error(ctx, "shutdown failed", "err", err)
		}
	}()

	if err := a.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitOnError(ctx, sl, err, "application stopped with error")
	}
}

func exitOnError(ctx context.Context, sl embedlog.Logger, err error, msg string) {
	sl.Error(ctx, fmt.Sprintf("%s: %v", msg, err))
	os.Exit(1)
}
