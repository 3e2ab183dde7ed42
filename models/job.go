package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusPending     JobStatus = "pending"
	StatusRunning     JobStatus = "running"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusInterrupted JobStatus = "interrupted"
)

type JobKind string

const (
	JobBatchTTS   JobKind = "batch_tts"
	JobTranslate  JobKind = "translate"
	JobMerge      JobKind = "merge"
	JobProcessAll JobKind = "process_file"
)

// Job is the status of one long-running operation started by a client.
type Job struct {
	ID           string     `json:"id"`
	ClientID     string     `json:"client_id"`
	ProjectID    string     `json:"project_id,omitempty"`
	Kind         JobKind    `json:"kind"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"` // 0-100
	CurrentStage string     `json:"current_stage,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func NewJob(clientID string, kind JobKind) *Job {
	return &Job{
		ID:        uuid.New().String(),
		ClientID:  clientID,
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

func (j *Job) SetStatus(status JobStatus, stage string, progress int) {
	j.Status = status
	j.CurrentStage = stage
	j.Progress = min(max(progress, 0), 100)
}

func (j *Job) Complete() {
	j.Status = StatusCompleted
	j.Progress = 100
	j.finish()
}

func (j *Job) Fail(err error) {
	j.Status = StatusFailed
	if err != nil {
		j.Error = err.Error()
	}
	j.CurrentStage = "Failed"
	j.finish()
}

// Interrupt marks the job as stopped by the client. Progress is kept so the
// caller can see how far it got.
func (j *Job) Interrupt() {
	j.Status = StatusInterrupted
	j.CurrentStage = "Interrupted"
	j.finish()
}

func (j *Job) finish() {
	now := time.Now()
	j.CompletedAt = &now
}

// Done reports whether the job reached a terminal status.
func (j *Job) Done() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusInterrupted:
		return true
	}
	return false
}

func (j *Job) StatusText() string {
	switch j.Status {
	case StatusPending:
		return "Waiting to start"
	case StatusRunning:
		if j.CurrentStage != "" {
			return j.CurrentStage
		}
		return "Running..."
	case StatusCompleted:
		return "Completed!"
	case StatusInterrupted:
		return "Interrupted"
	case StatusFailed:
		if j.Error != "" {
			return "Failed: " + j.Error
		}
		return "Failed"
	default:
		return string(j.Status)
	}
}

// StatusIcon returns an emoji icon representing the job status
func (j *Job) StatusIcon() string {
	switch j.Status {
	case StatusPending:
		return "⏳"
	case StatusRunning:
		return "🔄"
	case StatusCompleted:
		return "✅"
	case StatusInterrupted:
		return "⏹"
	case StatusFailed:
		return "❌"
	default:
		return "📄"
	}
}
