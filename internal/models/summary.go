package models

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Category names a summary bucket.
type Category string

const (
	CategoryMetaobjects Category = "metaobjects"
	CategoryMetafields  Category = "metafields"
)

// Outcome statuses recorded per definition.
const (
	StatusCreated = "created"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Outcome is the per-definition result of a migration attempt.
type Outcome struct {
	Name       string      `json:"name"`
	Status     string      `json:"status"`
	UserErrors []UserError `json:"userErrors,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// CategorySummary holds the counters and outcomes of one bucket.
type CategorySummary struct {
	Processed int       `json:"processed"`
	Created   int       `json:"created"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Details   []Outcome `json:"details"`
}

// ErrorEntry is a failure recorded at a catch boundary.
type ErrorEntry struct {
	Context string `json:"context"`
	Message string `json:"message"`
}

// SummarySnapshot is an immutable copy of a RunSummary.
type SummarySnapshot struct {
	Metaobjects CategorySummary `json:"metaobjects"`
	Metafields  CategorySummary `json:"metafields"`
	Errors      []ErrorEntry    `json:"errors"`
}

// RunSummary accumulates the results of one migration run. It is safe for
// concurrent use by both migrators.
type RunSummary struct {
	mu          sync.Mutex
	metaobjects CategorySummary
	metafields  CategorySummary
	errors      []ErrorEntry
}

// NewRunSummary creates an empty summary.
func NewRunSummary() *RunSummary {
	return &RunSummary{}
}

func (s *RunSummary) bucket(c Category) *CategorySummary {
	if c == CategoryMetafields {
		return &s.metafields
	}
	return &s.metaobjects
}

// Processed counts a definition that entered the migration loop.
func (s *RunSummary) Processed(c Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(c).Processed++
}

// Created records a successful creation on the target.
func (s *RunSummary) Created(c Category, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(c)
	b.Created++
	b.Details = append(b.Details, Outcome{Name: name, Status: StatusCreated})
}

// Rejected records a creation refused by the target with user errors.
func (s *RunSummary) Rejected(c Category, name string, userErrors []UserError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(c)
	b.Failed++
	b.Details = append(b.Details, Outcome{Name: name, Status: StatusFailed, UserErrors: userErrors})
}

// Failed records a creation that could not be completed at all.
func (s *RunSummary) Failed(c Category, name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(c)
	b.Failed++
	b.Details = append(b.Details, Outcome{Name: name, Status: StatusFailed, Error: errorMessage(err)})
}

// Skipped records a definition that was deliberately not submitted.
func (s *RunSummary) Skipped(c Category, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(c)
	b.Skipped++
	b.Details = append(b.Details, Outcome{Name: name, Status: StatusSkipped})
}

// RecordError appends to the run's error log.
func (s *RunSummary) RecordError(context string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ErrorEntry{Context: context, Message: errorMessage(err)})
}

// Snapshot returns a deep copy of the current state.
func (s *RunSummary) Snapshot() SummarySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SummarySnapshot{
		Metaobjects: copyCategory(s.metaobjects),
		Metafields:  copyCategory(s.metafields),
		Errors:      append([]ErrorEntry{}, s.errors...),
	}
}

// Render writes the final summary. The error list is omitted in quiet mode.
func (s *RunSummary) Render(w io.Writer, quiet bool) error {
	snap := s.Snapshot()
	lines := []string{
		"--- Migration Summary ---",
		formatCounts("Metaobjects", snap.Metaobjects),
		formatCounts("Metafields", snap.Metafields),
	}
	if len(snap.Errors) > 0 && !quiet {
		lines = append(lines, "Errors encountered:")
		for _, e := range snap.Errors {
			lines = append(lines, fmt.Sprintf("- %s: %s", e.Context, e.Message))
		}
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func formatCounts(label string, c CategorySummary) string {
	return fmt.Sprintf("%s: processed=%d, created=%d, failed=%d", label, c.Processed, c.Created, c.Failed)
}

func copyCategory(c CategorySummary) CategorySummary {
	out := c
	out.Details = make([]Outcome, len(c.Details))
	copy(out.Details, c.Details)
	return out
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
