// Command dubber parses speaker-annotated subtitles, translates them and
// synthesizes a dubbed track that follows the subtitle timeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	_ = logger.Close()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *models.Config
	configErr  error
}

// ensureConfig loads the configuration once, creates its directories and
// installs the logger.
func (c *commandContext) ensureConfig() (*models.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := models.LoadConfig(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		opts := cfg.LoggerOptions()
		opts.Output = os.Stderr
		if err := logger.Init(opts); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "dubber",
		Short:         "Multi-speaker subtitle dubbing with MiniMax TTS",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default "+models.DefaultConfigPath+")")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newDubCommand(ctx))
	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newProjectsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	return rootCmd
}
