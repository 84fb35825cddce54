package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"quorum/internal/config"
	"quorum/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

// cli carries what PersistentPreRunE resolved for the subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
	closers    []io.Closer
}

func main() {
	c := &cli{}
	root := c.rootCmd()
	err := root.ExecuteContext(context.Background())
	c.close()
	if err != nil {
		os.Exit(1)
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "quorum",
		Short:         "Fuse advisory signals and trade them behind a risk gate",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default $QUORUM_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(
		c.runCmd(),
		c.analyzeCmd(),
		c.positionsCmd(),
		c.tradesCmd(),
		c.signalsCmd(),
		c.summaryCmd(),
		c.configCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	_ = godotenv.Load()
	path := strings.TrimSpace(c.configPath)
	if path == "" {
		path = os.Getenv("QUORUM_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg

	// Only the engine writes log files; read commands keep stdout clean.
	if cmd.Name() == "run" || cmd.Name() == "quorum" {
		if err := c.setupLogOutput(cfg.App); err != nil {
			return fmt.Errorf("init log file: %w", err)
		}
	} else {
		logger.SetOutput(os.Stderr)
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.EnableAdvisoryPayloadDump(cfg.App.AdvisoryDump)
	return nil
}

func (c *cli) setupLogOutput(ac config.AppConfig) error {
	logger.SetAdvisoryWriter(nil)
	if path := strings.TrimSpace(ac.LogPath); path != "" {
		f, err := openAppend(path)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, f)
		mw := io.MultiWriter(os.Stdout, f)
		log.SetOutput(mw)
		logger.SetFormat(ac.LogFormat, mw)
	} else {
		logger.SetFormat(ac.LogFormat, os.Stdout)
	}
	if ac.AdvisoryDump {
		if path := strings.TrimSpace(ac.AdvisoryLogPath); path != "" {
			f, err := openAppend(path)
			if err != nil {
				return err
			}
			c.closers = append(c.closers, f)
			logger.SetAdvisoryWriter(f)
		}
	}
	return nil
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func (c *cli) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i].Close()
	}
}
