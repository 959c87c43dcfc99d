package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"brand-dna-studio/internal/config"
	"brand-dna-studio/internal/httpclient"
	"brand-dna-studio/internal/studio"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	_ = godotenv.Load()

	app := newCLIApp(os.Stdout, loadStudio)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadStudio wires the real service from the environment. Commands that
// need no capability never call it, so specs and place run without keys.
func loadStudio() (*studio.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})
	return studio.FromConfig(cfg, httpClient, newLogger(cfg.LogLevel, os.Stderr))
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
