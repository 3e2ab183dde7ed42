package subtitle

import (
	"testing"
	"time"
)

func TestTimestampToSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"00:01:05,250", 65.25},
		{"00:00:00,000", 0.0},
		{"01:00:00.500", 3600.5},
		{"00:00:04,500", 4.5},
	}
	for _, tt := range tests {
		got, err := TimestampToSeconds(tt.in)
		if err != nil {
			t.Fatalf("TimestampToSeconds(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("TimestampToSeconds(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTimestampToMillis(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"00:00:02,000", 2000, false},
		{"00:01:05.250", 65250, false},
		{"10:00:00,000", 36_000_000, false},
		{"00:61:00,000", 0, true},
		{"1:2:3", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := TimestampToMillis(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("TimestampToMillis(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("TimestampToMillis(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatMillis(t *testing.T) {
	tests := []struct {
		ms   int64
		sep  byte
		want string
	}{
		{0, ',', "00:00:00,000"},
		{65250, ',', "00:01:05,250"},
		{3_723_004, '.', "01:02:03.004"},
		{-5, ',', "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatMillis(tt.ms, tt.sep); got != tt.want {
			t.Errorf("FormatMillis(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	d := 1*time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond
	if got := FormatTimestamp(d); got != "01:02:03,004" {
		t.Errorf("FormatTimestamp() = %q", got)
	}
	if got := FormatTimestampDot(d); got != "01:02:03.004" {
		t.Errorf("FormatTimestampDot() = %q", got)
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	if got := NormalizeTimestamp(" 00:00:01.500 "); got != "00:00:01,500" {
		t.Errorf("NormalizeTimestamp() = %q", got)
	}
	if got := ToDot("00:00:01,500"); got != "00:00:01.500" {
		t.Errorf("ToDot() = %q", got)
	}
}
