package services

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/subtitle"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

// Export formats.
const (
	ExportAnnotated = "annotated"
	ExportSRT       = "srt"
	ExportVTT       = "vtt"
)

// ErrExportFormat is returned for an unknown export format.
var ErrExportFormat = errors.New("unknown export format")

// Export writes the project's segments to w and returns the file extension
// and content type of the format.
func Export(w io.Writer, p *models.Project, format string) (ext, contentType string, err error) {
	records := p.Records()
	switch strings.ToLower(format) {
	case "", ExportAnnotated:
		_, err = io.WriteString(w, subtitle.FormatAnnotated(records))
		return ".srt", "application/x-subrip", err
	case ExportSRT:
		return ".srt", "application/x-subrip", subtitle.WriteSRT(w, records)
	case ExportVTT:
		return ".vtt", "text/vtt", subtitle.WriteWebVTT(w, records)
	default:
		return "", "", fmt.Errorf("%w %q", ErrExportFormat, format)
	}
}

// ExportFilename is "<original base>_edited<ext>".
func ExportFilename(p *models.Project, ext string) string {
	base := strings.TrimSuffix(p.Filename, filepath.Ext(p.Filename))
	if base == "" {
		base = p.ID
	}
	return base + "_edited" + ext
}
