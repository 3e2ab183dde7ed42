package services

import (
	"os"
	"os/exec"
	"path/filepath"
)

// findExecutable looks for name on PATH and then in the usual install
// locations, returning name unchanged when nothing is found.
func findExecutable(name string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}

	homeDir, _ := os.UserHomeDir()
	searchPaths := []string{
		"/opt/homebrew/bin", // Homebrew (Apple Silicon)
		"/usr/local/bin",
		"/usr/bin",
		"/snap/bin",
		filepath.Join(homeDir, ".local", "bin"),
		filepath.Join(homeDir, "bin"),
	}
	for _, dir := range searchPaths {
		fullPath := filepath.Join(dir, name)
		if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
			return fullPath
		}
	}
	return name
}
