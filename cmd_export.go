package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/store"
	"github.com/backearth1/MiniMax-TTS-Translation/services"
)

// openProjects opens the project store of the configured data directory.
func openProjects(ctx *commandContext) (*services.ProjectManager, func(), error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, nil, err
	}
	return services.NewProjectManager(db), func() { db.Close() }, nil
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export <project-id>",
		Short: "Write a stored project's segments as annotated SRT, SRT or WebVTT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, done, err := openProjects(ctx)
			if err != nil {
				return err
			}
			defer done()

			p, err := projects.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "-" {
				_, _, err = services.Export(cmd.OutOrStdout(), p, format)
				return err
			}

			var buf bytes.Buffer
			ext, _, err := services.Export(&buf, p, format)
			if err != nil {
				return err
			}
			target := output
			if target == "" {
				target = services.ExportFilename(p, ext)
			}
			if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", target, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", services.ExportAnnotated, "annotated, srt or vtt")
	cmd.Flags().StringVarP(&output, "output", "o", "", `Output file, "-" for stdout (default <name>_edited.<ext>)`)
	return cmd
}

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	var clientID string

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List stored projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, done, err := openProjects(ctx)
			if err != nil {
				return err
			}
			defer done()

			list, err := projects.List(cmd.Context(), clientID)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(list))
			for _, p := range list {
				rows = append(rows, []string{
					p.ID,
					p.Filename,
					p.ClientID,
					strconv.Itoa(p.TotalSegments),
					p.UpdatedAt.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "File", "Client", "Segments", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "Only projects of this client id")

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a stored project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, done, err := openProjects(ctx)
			if err != nil {
				return err
			}
			defer done()
			if err := projects.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	})
	return cmd
}
