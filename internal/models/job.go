package models

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job status values.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

// Job represents an async operation (migration preview or run).
type Job struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"` // "migration-preview", "migration-run"
	SourceID   string      `json:"source_id"`
	TargetID   string      `json:"target_id"`
	Status     string      `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Error      string      `json:"error,omitempty"`
	Output     []string    `json:"output"`
	Summary    *RunSummary `json:"-"`
	cancel     context.CancelFunc
	mu         sync.Mutex
}

// AppendLog adds a log line to the job output.
func (j *Job) AppendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Output = append(j.Output, line)
}

// Write implements io.Writer so a logger can feed the job output directly.
// Each newline-terminated line becomes one log entry.
func (j *Job) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		j.AppendLog(line)
	}
	return len(p), nil
}

// Sync implements zapcore.WriteSyncer.
func (j *Job) Sync() error { return nil }

// LogsSince returns log lines starting from the given index.
func (j *Job) LogsSince(offset int) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if offset >= len(j.Output) {
		return nil
	}
	lines := make([]string, len(j.Output)-offset)
	copy(lines, j.Output[offset:])
	return lines
}

// State returns the current job status.
func (j *Job) State() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// Done reports whether the job has finished in any terminal state.
func (j *Job) Done() bool {
	return j.State() != JobRunning
}

// SetCancel installs the function used to stop the job.
func (j *Job) SetCancel(cancel context.CancelFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancel = cancel
}

// Attach binds the run summary the job reports on.
func (j *Job) Attach(summary *RunSummary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Summary = summary
}

// Cancel stops a running job. It is a no-op for finished jobs.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != JobRunning {
		return false
	}
	if j.cancel != nil {
		j.cancel()
	}
	j.Status = JobCancelled
	now := time.Now()
	j.FinishedAt = &now
	return true
}

// Complete marks the job as completed.
func (j *Job) Complete() {
	j.finish(JobCompleted, "")
}

// Fail marks the job as failed with an error message.
func (j *Job) Fail(err string) {
	j.finish(JobFailed, err)
}

func (j *Job) finish(status, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status == JobCancelled {
		return
	}
	j.Status = status
	j.Error = errMsg
	now := time.Now()
	j.FinishedAt = &now
}

// JobView is a JSON-friendly copy of a job, including its summary.
type JobView struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	SourceID   string           `json:"source_id"`
	TargetID   string           `json:"target_id"`
	Status     string           `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Error      string           `json:"error,omitempty"`
	Output     []string         `json:"output"`
	Summary    *SummarySnapshot `json:"summary,omitempty"`
}

// View returns a consistent copy of the job for serialization.
func (j *Job) View() JobView {
	j.mu.Lock()
	v := JobView{
		ID:         j.ID,
		Type:       j.Type,
		SourceID:   j.SourceID,
		TargetID:   j.TargetID,
		Status:     j.Status,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		Error:      j.Error,
		Output:     append([]string{}, j.Output...),
	}
	summary := j.Summary
	j.mu.Unlock()
	if summary != nil {
		snap := summary.Snapshot()
		v.Summary = &snap
	}
	return v
}

// JobStore is an in-memory thread-safe store for jobs.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create adds a new job, assigning it a UUID.
func (s *JobStore) Create(jobType, sourceID, targetID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		SourceID:  sourceID,
		TargetID:  targetID,
		Status:    JobRunning,
		StartedAt: time.Now(),
		Output:    []string{},
	}
	s.jobs[j.ID] = j
	return j
}

// Get returns a job by ID.
func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// List returns all jobs, most recent first.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].StartedAt.After(result[b].StartedAt)
	})
	return result
}
