package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/handiism/screen-recorder/internal/app"
	"github.com/handiism/screen-recorder/internal/config"
	"github.com/handiism/screen-recorder/internal/logging"
	"github.com/handiism/screen-recorder/internal/tui"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath(), "Configuration file path (JSON or TOML)")
	logPath := flag.String("log", filepath.Join(config.DefaultDataDir(), "screenrec-tui.log"), "Log file path")
	flag.Parse()

	if err := run(*configPath, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logPath string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal, so logs go to a file.
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := logging.New(logging.Config{Level: settings.LogLevel, Output: logFile, Service: "screenrec-tui"})

	a, err := app.New(context.Background(), settings, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(a)
}
