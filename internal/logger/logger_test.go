package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_FileIsClosable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dubber.log")
	var out bytes.Buffer

	l, closer, err := New(Options{Level: "info", Format: "json", Output: &out, File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("segment done", "index", 3)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := closer.Close(); err == nil {
		t.Error("second Close() error = nil, want already closed")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"segment done"`) {
		t.Errorf("log file = %q, want the message", data)
	}
	if out.String() != string(data) {
		t.Errorf("output = %q, want the same line as the file %q", out.String(), data)
	}
}

func TestNew_NoFile(t *testing.T) {
	_, closer, err := New(Options{Format: "console", Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close() without file error = %v", err)
	}
}

func TestNew_BadFormatReleasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dubber.log")
	if _, _, err := New(Options{Format: "xml", Output: &bytes.Buffer{}, File: path}); err == nil {
		t.Error("New(xml) error = nil")
	}
}

func TestInitClose(t *testing.T) {
	prev := L()
	t.Cleanup(func() { SetDefault(prev) })
	dir := t.TempDir()

	if err := Init(Options{Format: "json", Output: &bytes.Buffer{}, File: filepath.Join(dir, "a.log")}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := Init(Options{Format: "json", Output: &bytes.Buffer{}, File: filepath.Join(dir, "b.log")}); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	Info("written to %s", "b")
	if err := Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := Close(); err != nil {
		t.Errorf("Close() with nothing open error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "b.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written to b") {
		t.Errorf("b.log = %q", data)
	}
}
