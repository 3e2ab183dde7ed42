package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/subtitle"
)

func newParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "parse <subtitle-file>",
		Short:       "Show the segments parsed from a subtitle file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			records, err := subtitle.ParseReader(f)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				ms, _ := r.DurationMillis()
				rows = append(rows, []string{
					strconv.Itoa(r.Index),
					r.Start,
					r.End,
					strconv.FormatInt(ms, 10),
					r.Speaker,
					r.Emotion,
					r.Text,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Start", "End", "ms", "Speaker", "Emotion", "Text"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "%d segments\n", len(records))
			return nil
		},
	}
}
