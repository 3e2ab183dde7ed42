package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.srt")
	content := "1\n[00:00:00.000 --> 00:00:01.500] SPEAKER_01\nHello\n\n2\n[00:00:02.000 --> 00:00:03.000] SPEAKER_00\nBye\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "parse", path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, want := range []string{"SPEAKER_01", "1500", "Bye", "2 segments"} {
		if !strings.Contains(out, want) {
			t.Errorf("parse output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.toml")

	if _, err := execute(t, "config", "init", "--path", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[dubbing]") {
		t.Errorf("config file = %s, want a [dubbing] table", data)
	}

	if _, err := execute(t, "config", "init", "--path", path); err == nil {
		t.Error("second config init without --overwrite succeeded")
	}
	if _, err := execute(t, "config", "init", "--path", path, "--overwrite"); err != nil {
		t.Errorf("config init --overwrite: %v", err)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "*****"},
		{"abcd1234efgh", "abcd****efgh"},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
