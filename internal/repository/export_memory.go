package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
)

// MemoryExportStore keeps export jobs in process when no database is configured.
type MemoryExportStore struct {
	mu   sync.RWMutex
	jobs map[string]models.ExportJob
}

// NewMemoryExportStore constructs an empty store.
func NewMemoryExportStore() *MemoryExportStore {
	return &MemoryExportStore{jobs: make(map[string]models.ExportJob)}
}

// Create stores the job.
func (s *MemoryExportStore) Create(ctx context.Context, job *models.ExportJob) error {
	prepareExportJob(job)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// GetByID returns a copy of the job, or sql.ErrNoRows.
func (s *MemoryExportStore) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("get export job: %w", sql.ErrNoRows)
	}
	return &job, nil
}

// Update applies the non-nil fields.
func (s *MemoryExportStore) Update(ctx context.Context, id string, params UpdateExportJobParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("update export job: %w", sql.ErrNoRows)
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		url := *params.ResultURL
		job.ResultURL = &url
	}
	if params.ErrorMessage != nil {
		msg := *params.ErrorMessage
		job.ErrorMessage = &msg
	}
	if params.FinishedAt != nil {
		at := *params.FinishedAt
		job.FinishedAt = &at
	}
	s.jobs[id] = job
	return nil
}

// ListQueued returns queued jobs, oldest first.
func (s *MemoryExportStore) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	return s.list(limit, 20, func(j models.ExportJob) bool {
		return j.Status == models.ExportStatusQueued
	}, func(j models.ExportJob) time.Time { return j.CreatedAt }), nil
}

// ListFinishedBefore returns finished jobs older than cutoff.
func (s *MemoryExportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	return s.list(limit, 50, func(j models.ExportJob) bool {
		return j.Status == models.ExportStatusFinished && j.FinishedAt != nil && j.FinishedAt.Before(cutoff)
	}, func(j models.ExportJob) time.Time { return *j.FinishedAt }), nil
}

func (s *MemoryExportStore) list(limit, fallback int, keep func(models.ExportJob) bool, at func(models.ExportJob) time.Time) []models.ExportJob {
	if limit <= 0 {
		limit = fallback
	}
	s.mu.RLock()
	out := make([]models.ExportJob, 0)
	for _, job := range s.jobs {
		if keep(job) {
			out = append(out, job)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return at(out[i]).Before(at(out[j])) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
