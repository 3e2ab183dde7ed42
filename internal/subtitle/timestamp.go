package subtitle

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp is returned for text that is not HH:MM:SS,mmm.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

var timestampRegex = regexp.MustCompile(`^(\d{1,3}):(\d{2}):(\d{2})[,.](\d{3})$`)

type timestampParts struct {
	hours, minutes, seconds, millis int64
}

func splitTimestamp(ts string) (timestampParts, error) {
	m := timestampRegex.FindStringSubmatch(strings.TrimSpace(ts))
	if m == nil {
		return timestampParts{}, fmt.Errorf("%w %q", ErrInvalidTimestamp, ts)
	}
	var p timestampParts
	p.hours, _ = strconv.ParseInt(m[1], 10, 64)
	p.minutes, _ = strconv.ParseInt(m[2], 10, 64)
	p.seconds, _ = strconv.ParseInt(m[3], 10, 64)
	p.millis, _ = strconv.ParseInt(m[4], 10, 64)
	if p.minutes > 59 || p.seconds > 59 {
		return timestampParts{}, fmt.Errorf("%w %q", ErrInvalidTimestamp, ts)
	}
	return p, nil
}

// TimestampToMillis converts HH:MM:SS,mmm (comma or dot) to whole milliseconds.
func TimestampToMillis(ts string) (int64, error) {
	p, err := splitTimestamp(ts)
	if err != nil {
		return 0, err
	}
	return ((p.hours*60+p.minutes)*60+p.seconds)*1000 + p.millis, nil
}

// TimestampToSeconds converts HH:MM:SS,mmm to seconds. Hours, minutes and
// seconds are summed as integers; only the millisecond part is divided.
func TimestampToSeconds(ts string) (float64, error) {
	p, err := splitTimestamp(ts)
	if err != nil {
		return 0, err
	}
	whole := p.hours*3600 + p.minutes*60 + p.seconds
	return float64(whole) + float64(p.millis)/1000, nil
}

// ParseTimestamp converts a timestamp string to time.Duration.
func ParseTimestamp(ts string) (time.Duration, error) {
	ms, err := TimestampToMillis(ts)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// NormalizeTimestamp rewrites the millisecond separator to a comma.
func NormalizeTimestamp(ts string) string {
	return strings.Replace(strings.TrimSpace(ts), ".", ",", 1)
}

// FormatMillis renders milliseconds as HH:MM:SS<sep>mmm.
func FormatMillis(ms int64, sep byte) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	minutes := ms / 60_000 % 60
	seconds := ms / 1000 % 60
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, seconds, sep, millis)
}

// FormatTimestamp converts a time.Duration to SRT timestamp format.
// Output format: 00:00:00,000
func FormatTimestamp(d time.Duration) string {
	return FormatMillis(d.Milliseconds(), ',')
}

// FormatTimestampDot converts a time.Duration to timestamp format with dot separator.
// Output format: 00:00:00.000
func FormatTimestampDot(d time.Duration) string {
	return FormatMillis(d.Milliseconds(), '.')
}

// ToDot rewrites a stored comma timestamp into the dot form used by the
// annotated layout.
func ToDot(ts string) string {
	return strings.Replace(ts, ",", ".", 1)
}
