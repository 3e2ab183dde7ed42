package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
)

// JanitorOptions configures periodic cleanup.
type JanitorOptions struct {
	Schedule        string        // cron spec, e.g. "@every 10m"
	JobRetention    time.Duration // how long finished jobs stay queryable
	OutputDir       string        // merged audio directory; empty disables file cleanup
	OutputRetention time.Duration
	OnPurge         func(clientID string) // called for every purged client
}

// Janitor purges finished jobs and stale output files on a cron schedule.
type Janitor struct {
	registry *Registry
	opts     JanitorOptions
	cron     *cron.Cron
}

func NewJanitor(registry *Registry, opts JanitorOptions) (*Janitor, error) {
	j := &Janitor{registry: registry, opts: opts, cron: cron.New()}
	if _, err := j.cron.AddFunc(opts.Schedule, j.Sweep); err != nil {
		return nil, fmt.Errorf("schedule janitor %q: %w", opts.Schedule, err)
	}
	return j, nil
}

func (j *Janitor) Start() { j.cron.Start() }

// Stop halts the schedule and waits for a running sweep.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep runs one cleanup pass.
func (j *Janitor) Sweep() {
	purged := j.registry.Purge(j.opts.JobRetention)
	for _, clientID := range purged {
		if j.opts.OnPurge != nil {
			j.opts.OnPurge(clientID)
		}
	}

	removed, err := removeOlderThan(j.opts.OutputDir, j.opts.OutputRetention)
	if err != nil {
		logger.Warn("janitor: clean %s: %v", j.opts.OutputDir, err)
	}
	if len(purged) > 0 || removed > 0 {
		logger.Info("janitor: purged %d jobs, removed %d output files", len(purged), removed)
	}
}

func removeOlderThan(dir string, age time.Duration) (int, error) {
	if dir == "" || age <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-age)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
