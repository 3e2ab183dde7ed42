package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/config"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/jobs"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/store"
	"github.com/backearth1/MiniMax-TTS-Translation/server"
	"github.com/backearth1/MiniMax-TTS-Translation/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if b := strings.TrimSpace(bind); b != "" {
				cfg.Server.Bind = b
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another dubber server is already using %s", cfg.Server.DataDir)
			}
			defer lock.Unlock()

			db, err := store.Open(cfg.DatabasePath())
			if err != nil {
				return err
			}
			defer db.Close()

			registry := jobs.NewRegistry()
			logs := logger.NewHub(config.ProcessLogLimit)
			janitor, err := jobs.NewJanitor(registry, jobs.JanitorOptions{
				Schedule:        config.JanitorSchedule,
				JobRetention:    config.JobRetention,
				OutputDir:       cfg.Server.OutputDir,
				OutputRetention: config.OutputRetention,
				OnPurge:         logs.Remove,
			})
			if err != nil {
				return err
			}
			janitor.Start()
			defer janitor.Stop()

			if !cfg.Credentials().Valid() {
				logger.Warn("no MiniMax credentials configured, audio will be silent placeholders")
			}

			speakers, err := services.NewSpeakerManager(cmd.Context(), db)
			if err != nil {
				return err
			}
			dubber := services.NewDubber(cfg, services.NewProviders(cfg))
			dubber.SetSpeakers(speakers)

			router := server.NewRouter(server.Deps{
				Config:   cfg,
				Dubber:   dubber,
				Projects: services.NewProjectManager(db),
				Speakers: speakers,
				Jobs:     registry,
				Logs:     logs,
			})
			srv := &http.Server{
				Addr:              cfg.Server.Bind,
				Handler:           router.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening on http://%s (data %s)", cfg.Server.Bind, cfg.Server.DataDir)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				router.Close()
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serve: %w", err)
			case <-sigCtx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = srv.Shutdown(shutdownCtx)
			router.Close()
			return err
		},
	}

	cmd.Flags().StringVarP(&bind, "bind", "b", "", "Listen address, overrides server.bind")
	return cmd
}
