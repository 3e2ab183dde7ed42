package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/jobs"
	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
	"github.com/backearth1/MiniMax-TTS-Translation/services"
)

const cliClientID = "cli"

func newDubCommand(ctx *commandContext) *cobra.Command {
	var (
		language  string
		target    string
		model     string
		translate bool
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "dub <subtitle-file>",
		Short: "Translate and synthesize a subtitle file into one audio track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read subtitle: %w", err)
			}
			if outputDir == "" {
				outputDir = cfg.Server.OutputDir
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry := jobs.NewRegistry()
			h, err := registry.Start(cliClientID, "", models.JobProcessAll)
			if err != nil {
				return err
			}
			go func() {
				<-sigCtx.Done()
				registry.Cancel(cliClientID)
			}()

			errOut := cmd.ErrOrStderr()
			dubber := services.NewDubber(cfg, services.NewProviders(cfg))
			res, err := dubber.ProcessFile(cmd.Context(), h, string(content), filepath.Base(args[0]), cliClientID, outputDir, services.Options{
				Language:       language,
				TargetLanguage: target,
				Model:          model,
				Translate:      translate,
				Sink:           progressPrinter(errOut),
			})
			job := registry.Finish(h, err)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Translation != nil {
				fmt.Fprintf(out, "Translated %d of %d segments\n", res.Translation.Translated, res.Translation.Total)
			}
			fmt.Fprintln(out, renderSummary(res.Summary))
			for _, line := range res.Summary.Lines() {
				fmt.Fprintln(out, line)
			}
			if job.Status == models.StatusInterrupted {
				return fmt.Errorf("interrupted at %d%%", job.Progress)
			}
			fmt.Fprintf(out, "Wrote %s (%d ms, %d placed, %d silent)\n",
				res.OutputPath, res.Report.LengthMs, res.Report.Placed, res.Report.Silenced)
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Synthesis language, defaults to dubbing.language")
	cmd.Flags().StringVarP(&target, "target-language", "t", "", "Translation target, defaults to dubbing.target_language")
	cmd.Flags().StringVar(&model, "model", "", "TTS model, defaults to minimax.tts_model")
	cmd.Flags().BoolVar(&translate, "translate", false, "Translate every segment before synthesis")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the merged audio, defaults to server.output_dir")
	return cmd
}

// progressPrinter writes progress events as single lines.
func progressPrinter(w io.Writer) logger.Sink {
	return logger.SinkFunc(func(e logger.Event) {
		var b strings.Builder
		if e.Progress > 0 {
			fmt.Fprintf(&b, "[%3d%%] ", e.Progress)
		}
		b.WriteString(e.Stage)
		if e.Detail != "" {
			b.WriteString(": ")
			b.WriteString(e.Detail)
		}
		fmt.Fprintln(w, b.String())
	})
}

func renderSummary(s services.Summary) string {
	rows := [][]string{
		{"Total", strconv.Itoa(s.Total)},
		{"Successful", strconv.Itoa(s.Successful)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Normal", strconv.Itoa(len(s.Normal))},
		{"Speed optimized", strconv.Itoa(len(s.SpeedOptimized))},
		{"Translation optimized", strconv.Itoa(len(s.TranslationOptimized))},
		{"Silent", strconv.Itoa(len(s.FailedSilent))},
		{"Accelerated", strconv.Itoa(s.Accelerated)},
		{"At maximum speed", strconv.Itoa(s.MaxSpeed)},
	}
	return renderTable([]string{"Segments", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
