package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/handiism/screen-recorder/internal/app"
	"github.com/handiism/screen-recorder/internal/config"
	"github.com/handiism/screen-recorder/internal/logging"
	"github.com/handiism/screen-recorder/internal/upload"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	verboseFlag  *bool

	settingsOnce sync.Once
	settings     *config.Settings
	settingsErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		verboseFlag:  verboseFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag != nil {
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			return path
		}
	}
	return config.DefaultConfigPath()
}

func (c *commandContext) ensureSettings() (*config.Settings, error) {
	c.settingsOnce.Do(func() {
		settings, err := config.Load(c.configPath())
		if err != nil {
			c.settingsErr = fmt.Errorf("load config: %w", err)
			return
		}
		if c.logLevelFlag != nil && *c.logLevelFlag != "" {
			settings.LogLevel = *c.logLevelFlag
		}
		if err := settings.Validate(); err != nil {
			c.settingsErr = fmt.Errorf("invalid config %s: %w", c.configPath(), err)
			return
		}
		c.settings = settings
	})
	return c.settings, c.settingsErr
}

func (c *commandContext) verbose() bool {
	return c.verboseFlag != nil && *c.verboseFlag
}

func (c *commandContext) logger(w io.Writer) zerolog.Logger {
	level := ""
	if c.settings != nil {
		level = c.settings.LogLevel
	}
	return logging.New(logging.Config{Level: level, Output: w, Console: true})
}

// withApp opens the configured backends, runs fn and closes them again.
// Progress events go to stderr so stdout stays scriptable.
func (c *commandContext) withApp(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	settings, err := c.ensureSettings()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(ctx, settings, c.logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer a.Close()

	a.SetProgressHandler(progressPrinter(cmd.ErrOrStderr(), c.verbose()))
	return fn(ctx, a)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// progressPrinter prints pipeline events one per line.
func progressPrinter(w io.Writer, verbose bool) func(upload.ProgressEvent) {
	return func(event upload.ProgressEvent) {
		if event.Level == upload.LevelVerbose && !verbose {
			return
		}

		prefix := ""
		switch event.Level {
		case upload.LevelError:
			prefix = "❌ "
		case upload.LevelWarning:
			prefix = "⚠️  "
		case upload.LevelSuccess:
			prefix = "✅ "
		case upload.LevelInfo:
			prefix = "ℹ️  "
		default:
			prefix = "   "
		}

		fmt.Fprintln(w, prefix+event.Message)
	}
}
