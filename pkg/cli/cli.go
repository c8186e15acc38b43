// Package cli provides the command-line interface for macrotool.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/Matsurin0303/MacroTool-sub000/pkg/config"
	"github.com/Matsurin0303/MacroTool-sub000/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to config.yaml (default: ./config.yaml, then $MACROTOOL_HOME/config.yaml)",
		EnvVars: []string{"MACROTOOL_CONFIG"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
		EnvVars: []string{"MACROTOOL_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Also write logs to this file (rotated)",
		EnvVars: []string{"MACROTOOL_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// NewApp builds the application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "macrotool",
		Usage:   "Play recorded desktop macros",
		Version: Version,
		Description: `macrotool plays macro files: mouse and keyboard input, waits,
image and text detection, and control flow (labels, if, repeat, embedded macros).

Examples:
  macrotool play login.yaml
  macrotool play login.yaml --from 3 --var USER=bob
  macrotool play login.yaml --dry-run
  macrotool validate macros/
  macrotool labels login.yaml`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			playCommand,
			validateCommand,
			labelsCommand,
		},
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		After: func(c *cli.Context) error {
			logger.Close()
			return nil
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration and initializes logging from it.
// Global flags override the file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Resolve(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := cfg.Log
	if c.Bool("verbose") {
		logCfg.Level = "debug"
	}
	if path := c.String("log-file"); path != "" {
		logCfg.FilePath = path
		if logCfg.Output != "both" {
			logCfg.Output = "file"
		}
	}
	if (logCfg.Output == "file" || logCfg.Output == "both") && logCfg.FilePath == "" {
		logCfg.FilePath = filepath.Join(config.GetLogsDir(), "macrotool.log")
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

// resolveMacroPath returns path if it exists, else the same relative path
// under the macros directory of the home.
func resolveMacroPath(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if filepath.IsAbs(path) {
		return "", err
	}
	candidate := filepath.Join(config.GetMacrosDir(), path)
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("macro %s not found (also looked in %s)", path, config.GetMacrosDir())
	}
	return candidate, nil
}
