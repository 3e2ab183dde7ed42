package subtitle

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/asticode/go-astisub"
)

// FormatAnnotated renders records in the annotated layout:
//
//	1
//	[00:00:01.000 --> 00:00:02.500] SPEAKER_00 [emotion: happy]
//	text
//
// The output parses back to the same records.
func FormatAnnotated(records List) string {
	var builder strings.Builder
	for i, r := range records {
		builder.WriteString(strconv.Itoa(r.Index))
		builder.WriteString("\n")

		builder.WriteString(fmt.Sprintf("[%s --> %s] %s", ToDot(r.Start), ToDot(r.End), r.Speaker))
		if r.Emotion != "" {
			builder.WriteString(fmt.Sprintf(" [emotion: %s]", r.Emotion))
		}
		builder.WriteString("\n")

		builder.WriteString(r.Text)
		builder.WriteString("\n")

		if i < len(records)-1 {
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

// WriteSRT writes records as a plain SRT document.
func WriteSRT(w io.Writer, records List) error {
	subs, err := toAstisub(records, false)
	if err != nil {
		return err
	}
	return subs.WriteToSRT(w)
}

// WriteWebVTT writes records as WebVTT with speaker voice tags.
func WriteWebVTT(w io.Writer, records List) error {
	subs, err := toAstisub(records, true)
	if err != nil {
		return err
	}
	return subs.WriteToWebVTT(w)
}

func toAstisub(records List, withVoice bool) (*astisub.Subtitles, error) {
	subs := astisub.NewSubtitles()
	for _, r := range records {
		start, err := ParseTimestamp(r.Start)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.Index, err)
		}
		end, err := ParseTimestamp(r.End)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", r.Index, err)
		}

		line := astisub.Line{Items: []astisub.LineItem{{Text: r.Text}}}
		if withVoice {
			line.VoiceName = r.Speaker
		}
		subs.Items = append(subs.Items, &astisub.Item{
			Index:   r.Index,
			StartAt: start,
			EndAt:   end,
			Lines:   []astisub.Line{line},
		})
	}
	return subs, nil
}
