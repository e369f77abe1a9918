package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rflorenc/shopify-metadata-migrator/internal/logging"
	"github.com/rflorenc/shopify-metadata-migrator/internal/migration"
	"github.com/rflorenc/shopify-metadata-migrator/internal/models"
)

// previewCache holds the preview result and the options it was computed
// with, between the preview and run steps.
type previewCache struct {
	Preview  *models.MigrationPreview
	SourceID string
	Options  migration.Options
}

// PreviewStore provides thread-safe storage for migration previews.
type PreviewStore struct {
	mu       sync.RWMutex
	previews map[string]*previewCache
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{previews: make(map[string]*previewCache)}
}

func (ps *PreviewStore) Store(jobID string, pc *previewCache) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.previews[jobID] = pc
}

func (ps *PreviewStore) Get(jobID string) *previewCache {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.previews[jobID]
}

func (ps *PreviewStore) Delete(jobID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.previews, jobID)
}

// migrationRequest is the body of the preview and run endpoints. Stores are
// referenced by ID or name.
type migrationRequest struct {
	SourceID                string   `json:"source_id"`
	TargetID                string   `json:"target_id"`
	PreviewJobID            string   `json:"preview_job_id"`
	Metaobjects             bool     `json:"metaobjects"`
	Metafields              bool     `json:"metafields"`
	OwnerTypes              []string `json:"owner_types"`
	SkipMetafieldReferences bool     `json:"skip_metafield_references"`
}

func (req migrationRequest) options(apiVersion string) migration.Options {
	var owners []string
	for _, ot := range req.OwnerTypes {
		owners = append(owners, migration.ParseOwnerTypes(ot)...)
	}
	return migration.Options{
		MigrateMetaobjects:      req.Metaobjects,
		MigrateMetafields:       req.Metafields,
		OwnerTypes:              owners,
		APIVersion:              apiVersion,
		SkipMetafieldReferences: req.SkipMetafieldReferences,
	}
}

// jobLogger tees the server logger into the job output. Jobs always keep
// at least normal-level output so the log stream has something to show.
func (s *Server) jobLogger(job *models.Job) *zap.SugaredLogger {
	level := s.LogLevel
	if level == logging.Quiet || level == "" {
		level = logging.Normal
	}
	return logging.Tee(s.Logger, level, job).With("job", job.ID)
}

// writeSummary renders the run summary into w and logs a failed write.
func writeSummary(w io.Writer, summary *models.RunSummary, logger *zap.SugaredLogger) {
	if err := summary.Render(w, false); err != nil {
		logger.Errorw("writing run summary failed", "error", err)
	}
}

// MigrationPreviewHandler starts an async preview job.
func (s *Server) MigrationPreviewHandler(w http.ResponseWriter, r *http.Request) {
	var req migrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	src := s.Stores.Lookup(req.SourceID)
	if src == nil {
		writeError(w, http.StatusNotFound, "source store not found")
		return
	}
	opts := req.options(src.APIVersion)
	if err := opts.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := s.Jobs.Create("migration-preview", src.ID, "")
	ctx, cancel := context.WithCancel(context.Background())
	job.SetCancel(cancel)
	logger := s.jobLogger(job)

	go func() {
		defer cancel()
		preview, err := migration.Preview(ctx, s.platformFor(src, logger), opts, logger)
		if err != nil {
			job.AppendLog("ERROR: " + err.Error())
			job.Fail(err.Error())
			return
		}
		preview.SourceID = src.ID
		s.Previews.Store(job.ID, &previewCache{
			Preview:  preview,
			SourceID: src.ID,
			Options:  opts,
		})
		job.Complete()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// GetMigrationPreview returns the cached preview result for a completed preview job.
func (s *Server) GetMigrationPreview(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")

	job := s.Jobs.Get(jobID)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch job.State() {
	case models.JobRunning:
		writeJSON(w, http.StatusConflict, map[string]string{
			"status":  "running",
			"message": "preview is still in progress",
		})
		return
	case models.JobFailed, models.JobCancelled:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": job.State(),
			"error":  job.View().Error,
		})
		return
	}

	cached := s.Previews.Get(jobID)
	if cached == nil {
		writeError(w, http.StatusNotFound, "preview data not found")
		return
	}

	writeJSON(w, http.StatusOK, cached.Preview)
}

// MigrationRunHandler starts an async migration. When preview_job_id is set
// the source and options of that preview are reused.
func (s *Server) MigrationRunHandler(w http.ResponseWriter, r *http.Request) {
	var req migrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	var src *models.Store
	var opts migration.Options
	if req.PreviewJobID != "" {
		cached := s.Previews.Get(req.PreviewJobID)
		if cached == nil {
			writeError(w, http.StatusNotFound, "preview not found, run preview first")
			return
		}
		src = s.Stores.Get(cached.SourceID)
		opts = cached.Options
	} else {
		src = s.Stores.Lookup(req.SourceID)
		if src != nil {
			opts = req.options(src.APIVersion)
		}
	}
	if src == nil {
		writeError(w, http.StatusNotFound, "source store not found")
		return
	}
	dst := s.Stores.Lookup(req.TargetID)
	if dst == nil {
		writeError(w, http.StatusNotFound, "target store not found")
		return
	}
	if dst.ID == src.ID {
		writeError(w, http.StatusBadRequest, "source and target must be different stores")
		return
	}
	if err := opts.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := s.Jobs.Create("migration-run", src.ID, dst.ID)
	ctx, cancel := context.WithCancel(context.Background())
	job.SetCancel(cancel)
	summary := models.NewRunSummary()
	job.Attach(summary)
	logger := s.jobLogger(job)

	go func() {
		defer cancel()
		start := time.Now()
		err := migration.Run(ctx, s.platformFor(src, logger), s.platformFor(dst, logger), opts, summary, logger)
		writeSummary(job, summary, logger)

		result := models.JobCompleted
		switch {
		case job.State() == models.JobCancelled:
			result = models.JobCancelled
		case err != nil:
			result = models.JobFailed
		}
		s.Metrics.ObserveRun(result, time.Since(start), summary.Snapshot())

		// Clean up preview cache after migration completes
		if req.PreviewJobID != "" {
			s.Previews.Delete(req.PreviewJobID)
		}

		if err != nil {
			job.AppendLog("ERROR: " + err.Error())
			job.Fail(err.Error())
			return
		}
		job.Complete()
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}
