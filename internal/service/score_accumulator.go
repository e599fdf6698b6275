package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
)

// ScorePageFetcher is the paged score source.
type ScorePageFetcher interface {
	FetchScorePage(ctx context.Context, q models.ScorePageQuery) (*models.ScorePage, error)
}

// AccumulatorConfig tunes page size, the iteration cap and retries.
type AccumulatorConfig struct {
	PageSize     int
	MaxPages     int
	MaxRetries   int
	RetryBackoff time.Duration
}

// ScoreAccumulator drains every page of a classroom's scores into memory.
// Pages are requested one after another, never in parallel.
type ScoreAccumulator struct {
	source  ScorePageFetcher
	cfg     AccumulatorConfig
	metrics *MetricsService
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewScoreAccumulator constructs an accumulator.
func NewScoreAccumulator(source ScorePageFetcher, cfg AccumulatorConfig, metrics *MetricsService, logger *zap.Logger) *ScoreAccumulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 20
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 500
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	return &ScoreAccumulator{source: source, cfg: cfg, metrics: metrics, logger: logger, sleep: sleepContext}
}

// Accumulate returns every record of the classroom, optionally filtered by
// student, in source order. Any failure yields a nil slice and the error.
func (a *ScoreAccumulator) Accumulate(ctx context.Context, classroomID, studentID string) ([]models.ScoreRecord, error) {
	if classroomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classroomId is required")
	}

	start := time.Now()
	records, pages, err := a.drain(ctx, classroomID, studentID)
	a.metrics.ObserveAccumulation(pages, time.Since(start), err)
	if err != nil {
		a.logger.Warn("score accumulation aborted",
			zap.String("classroom_id", classroomID),
			zap.Int("pages", pages),
			zap.Error(err),
		)
		return nil, err
	}
	a.logger.Debug("score accumulation finished",
		zap.String("classroom_id", classroomID),
		zap.Int("pages", pages),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (a *ScoreAccumulator) drain(ctx context.Context, classroomID, studentID string) ([]models.ScoreRecord, int, error) {
	all := make([]models.ScoreRecord, 0, a.cfg.PageSize)
	query := models.ScorePageQuery{
		ClassroomID: classroomID,
		StudentID:   studentID,
		Cursor:      0,
		Page:        0,
		Size:        a.cfg.PageSize,
	}

	for pages := 1; ; pages++ {
		page, err := a.fetch(ctx, query)
		if err != nil {
			return nil, pages, err
		}
		all = append(all, page.Items...)
		if !page.HasNext {
			return all, pages, nil
		}
		if pages >= a.cfg.MaxPages {
			return nil, pages, appErrors.Clone(appErrors.ErrPageLimitExceeded,
				"score source still reports more pages after the configured limit")
		}
		query.Cursor = page.NextCursor
	}
}

// fetch requests one page, retrying network failures with doubling backoff.
func (a *ScoreAccumulator) fetch(ctx context.Context, q models.ScorePageQuery) (*models.ScorePage, error) {
	backoff := a.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := a.source.FetchScorePage(ctx, q)
		if err == nil && page == nil {
			err = appErrors.Clone(appErrors.ErrMalformedResponse, "score source returned an empty page")
		}
		if err == nil {
			a.metrics.RecordPageRequest("ok")
			return page, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		retryable := errors.Is(err, appErrors.ErrNetworkFailure)
		a.metrics.RecordPageRequest(pageOutcome(err))
		if !retryable || attempt >= a.cfg.MaxRetries {
			return nil, err
		}
		a.logger.Debug("retrying score page",
			zap.Int64("cursor", q.Cursor),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if err := a.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func pageOutcome(err error) string {
	switch {
	case errors.Is(err, appErrors.ErrNetworkFailure):
		return "network_failure"
	case errors.Is(err, appErrors.ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
