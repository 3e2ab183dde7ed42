package subtitle

import (
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Pre-compiled patterns for the three accepted layouts.
var (
	blankLineRegex = regexp.MustCompile(`\n\s*\n`)
	indexLineRegex = regexp.MustCompile(`^\d+$`)

	// [00:00:06.879 --> 00:00:11.039] SPEAKER_00 [emotion: happy]
	annotatedLineRegex = regexp.MustCompile(`\[(\d{2}:\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}\.\d{3})\]\s*(SPEAKER_\d+)?\s*(?:\[emotion:\s*(\w+)\])?`)

	// 00:00:06,879 --> 00:00:11,039 (or with dots)
	standardLineRegex = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[,.]\d{3})`)

	// [00:00:06,879 --> 00:00:11,039] with either separator and inner padding
	bracketedLineRegex = regexp.MustCompile(`\[\s*(\d{2}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[,.]\d{3})\s*\]`)

	// whole-document fallback: index line followed by a comma timestamp line
	fallbackHeaderRegex = regexp.MustCompile(`(?m)^[ \t]*(\d+)[ \t]*\n(\d{2}:\d{2}:\d{2},\d{3})[ \t]*-->[ \t]*(\d{2}:\d{2}:\d{2},\d{3})[^\n]*\n`)
)

// Parse parses subtitle content into ordered records. Malformed blocks are
// skipped; the result is empty when nothing could be recovered.
//
// Blocks separated by blank lines are tried first. Each block may start with
// a sequence number, followed by a timestamp line and one or more text lines.
// If that yields nothing, a document-wide pattern is tried instead.
func Parse(content string) List {
	content = normalizeContent(content)

	records := parseBlocks(content)
	if len(records) == 0 {
		records = parseFallback(content)
	}
	return records
}

// ParseString parses content and returns ErrNoSegments when it is empty.
func ParseString(content string) (List, error) {
	records := Parse(content)
	if len(records) == 0 {
		return nil, ErrNoSegments
	}
	return records, nil
}

// ParseReader parses subtitle content from a reader.
func ParseReader(r io.Reader) (List, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseString(string(data))
}

// ParseFile parses a subtitle file from the given path.
func ParseFile(path string) (List, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseReader(file)
}

func normalizeContent(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

func parseBlocks(content string) List {
	var records List
	for _, block := range blankLineRegex.Split(strings.TrimSpace(content), -1) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			continue
		}
		if rec, ok := parseBlock(lines, len(records)+1); ok {
			records = append(records, rec)
		}
	}
	return records
}

func parseBlock(lines []string, position int) (Record, bool) {
	rec := Record{
		Index:   position,
		Speaker: DefaultSpeaker,
		Emotion: DefaultEmotion,
	}

	lineIndex := 0
	if first := strings.TrimSpace(lines[0]); indexLineRegex.MatchString(first) {
		if n, err := strconv.Atoi(first); err == nil {
			rec.Index = n
		}
		lineIndex = 1
	}
	if lineIndex >= len(lines) {
		return Record{}, false
	}

	start, end, speaker, emotion, ok := parseTimingLine(strings.TrimSpace(lines[lineIndex]))
	if !ok {
		return Record{}, false
	}
	rec.Start, rec.End = start, end
	if speaker != "" {
		rec.Speaker = speaker
	}
	if emotion != "" {
		rec.Emotion = emotion
	}

	rec.Text = joinText(lines[lineIndex+1:])
	if rec.Text == "" || !validWindow(rec.Start, rec.End) {
		return Record{}, false
	}
	return rec, true
}

// parseTimingLine tries the annotated, standard and bracketed forms in order.
func parseTimingLine(line string) (start, end, speaker, emotion string, ok bool) {
	if m := annotatedLineRegex.FindStringSubmatch(line); m != nil {
		return NormalizeTimestamp(m[1]), NormalizeTimestamp(m[2]), m[3], m[4], true
	}
	if m := standardLineRegex.FindStringSubmatch(line); m != nil {
		return NormalizeTimestamp(m[1]), NormalizeTimestamp(m[2]), "", "", true
	}
	if m := bracketedLineRegex.FindStringSubmatch(line); m != nil {
		return NormalizeTimestamp(m[1]), NormalizeTimestamp(m[2]), "", "", true
	}
	return "", "", "", "", false
}

// parseFallback scans the whole document for "index / timestamp / text"
// runs. A run's text ends at the first blank line or the next header.
func parseFallback(content string) List {
	var records List
	locs := fallbackHeaderRegex.FindAllStringSubmatchIndex(content, -1)
	for i, loc := range locs {
		bodyEnd := len(content)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		body := content[loc[1]:bodyEnd]
		if blank := blankLineRegex.FindStringIndex(body); blank != nil {
			body = body[:blank[0]]
		}

		text := joinText(strings.Split(body, "\n"))
		start, end := content[loc[4]:loc[5]], content[loc[6]:loc[7]]
		if text == "" || !validWindow(start, end) {
			continue
		}
		index, err := strconv.Atoi(content[loc[2]:loc[3]])
		if err != nil {
			index = len(records) + 1
		}
		records = append(records, Record{
			Index:   index,
			Start:   start,
			End:     end,
			Speaker: DefaultSpeaker,
			Emotion: DefaultEmotion,
			Text:    text,
		})
	}
	return records
}

func joinText(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// validWindow rejects timestamps that do not convert or do not move forward.
func validWindow(start, end string) bool {
	s, err := TimestampToMillis(start)
	if err != nil {
		return false
	}
	e, err := TimestampToMillis(end)
	if err != nil {
		return false
	}
	return s < e
}
