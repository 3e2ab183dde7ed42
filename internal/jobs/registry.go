// Package jobs tracks the long-running operation each client has in flight
// and lets another request cancel it cooperatively.
package jobs

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/backearth1/MiniMax-TTS-Translation/internal/logger"
	"github.com/backearth1/MiniMax-TTS-Translation/models"
)

// ErrBusy is returned by Start when the client already has a running job.
var ErrBusy = errors.New("a task is already running for this client")

// Handle is passed to the worker running a job. The worker polls Cancelled
// between units of work and reports progress through it.
type Handle struct {
	cancelled atomic.Bool

	mu  sync.Mutex
	job models.Job
}

// Cancelled reports whether cancellation was requested.
func (h *Handle) Cancelled() bool {
	if h == nil {
		return false
	}
	return h.cancelled.Load()
}

// Cancel requests cancellation. The worker observes it at its next check.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
}

// ID returns the job id.
func (h *Handle) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job.ID
}

// Progress records done out of total units, mapped linearly onto the
// percent range [from, to].
func (h *Handle) Progress(done, total, from, to int, stage string) {
	if h == nil {
		return
	}
	percent := to
	if total > 0 {
		percent = from + (to-from)*done/total
	}
	h.Report(percent, stage)
}

// Report sets the progress percentage and stage text.
func (h *Handle) Report(percent int, stage string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.job.SetStatus(models.StatusRunning, stage, percent)
}

// Snapshot returns a copy of the job state.
func (h *Handle) Snapshot() models.Job {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.job
}

// Registry holds at most one running job per client, plus the last finished
// one so its outcome can still be queried.
type Registry struct {
	mu   sync.Mutex
	jobs map[string]*Handle
}

func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*Handle)}
}

// Start registers a new running job for clientID.
func (r *Registry) Start(clientID, projectID string, kind models.JobKind) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.jobs[clientID]; ok {
		if snap := prev.Snapshot(); !snap.Done() {
			return nil, fmt.Errorf("%w: %s", ErrBusy, snap.Kind)
		}
	}

	job := models.NewJob(clientID, kind)
	job.ProjectID = projectID
	job.SetStatus(models.StatusRunning, "Starting", 0)
	h := &Handle{job: *job}
	r.jobs[clientID] = h
	logger.Info("job %s started: %s for client %s", job.ID, kind, clientID)
	return h, nil
}

// Cancel requests cancellation of the client's running job. It returns
// false when nothing is running.
func (r *Registry) Cancel(clientID string) bool {
	r.mu.Lock()
	h, ok := r.jobs[clientID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	if snap := h.Snapshot(); snap.Done() {
		return false
	}
	h.Cancel()
	logger.Info("cancellation requested for client %s", clientID)
	return true
}

// Status returns the client's current or last job.
func (r *Registry) Status(clientID string) (models.Job, bool) {
	r.mu.Lock()
	h, ok := r.jobs[clientID]
	r.mu.Unlock()
	if !ok {
		return models.Job{}, false
	}
	return h.Snapshot(), true
}

// Running reports whether the client has a job in progress.
func (r *Registry) Running(clientID string) bool {
	job, ok := r.Status(clientID)
	return ok && !job.Done()
}

// Finish moves the job to a terminal status. A cancelled handle finishes
// as interrupted unless it failed.
func (r *Registry) Finish(h *Handle, err error) models.Job {
	h.mu.Lock()
	switch {
	case err != nil:
		h.job.Fail(err)
	case h.cancelled.Load():
		h.job.Interrupt()
	default:
		h.job.Complete()
	}
	job := h.job
	h.mu.Unlock()

	logger.Info("job %s finished: %s", job.ID, job.Status)
	return job
}

// Purge drops finished jobs that completed more than ttl ago and returns
// the affected client ids.
func (r *Registry) Purge(ttl time.Duration) []string {
	cutoff := time.Now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged []string
	for clientID, h := range r.jobs {
		job := h.Snapshot()
		if job.Done() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(r.jobs, clientID)
			purged = append(purged, clientID)
		}
	}
	return purged
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
