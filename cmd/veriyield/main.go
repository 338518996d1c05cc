// Package main provides the veriyield binary: crop grading, field advisories,
// mandi negotiation, parametric insurance and carbon scoring from the terminal,
// plus an MCP server exposing the same flows as tools.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/veriyield/neuralchain/llm/providers"

	"github.com/veriyield/neuralchain/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "veriyield"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Agricultural supply-chain assistant",
		Long: `VeriYield grades crop photos, writes field advisories grounded in live
web research, negotiates with a simulated mandi broker, runs a parametric
weather insurance oracle and scores regenerative farming practices.

Every action that moves value is simulated and logged to a local history.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		adviseCmd(g),
		gradeCmd(g),
		negotiateCmd(g),
		insureCmd(g),
		carbonCmd(g),
		historyCmd(g),
		serveCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// setup configures logging and loads the layered configuration.
func (g *globalFlags) setup() (*config.Config, *slog.Logger, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(g.logLevel)}))
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).Load(g.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger, nil
}

// open builds the application for a subcommand.
func (g *globalFlags) open() (*app, error) {
	cfg, logger, err := g.setup()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger, nil)
}
