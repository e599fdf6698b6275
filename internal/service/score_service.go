package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/scoring"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
)

type scoreAccumulator interface {
	Accumulate(ctx context.Context, classroomID, studentID string) ([]models.ScoreRecord, error)
}

type failureNotifier interface {
	NotifyFailure(ctx context.Context, viewID string, err error)
}

// ScoreQuery selects the records of one classroom for one dashboard view.
type ScoreQuery struct {
	ViewID      string `validate:"omitempty,max=128"`
	ClassroomID string `validate:"required"`
	StudentID   string `validate:"omitempty"`
}

// ThresholdRequest asks for the share of scores above a threshold.
type ThresholdRequest struct {
	ScoreQuery
	Type      models.ScoreType `validate:"required,oneof=REGULAR MIDTERM FINAL AVERAGE"`
	Threshold float64          `validate:"gte=0,lte=10"`
}

// HistogramRequest asks for the bucketed distribution of one dimension.
type HistogramRequest struct {
	ScoreQuery
	Type models.ScoreType `validate:"required,oneof=REGULAR MIDTERM FINAL AVERAGE"`
}

type summaryRequest struct {
	ScoreQuery
	Threshold float64 `validate:"gte=0,lte=10"`
}

// ScoreService loads classroom scores for a view and feeds them through the
// aggregator and analyzers. Records are never cached; each call drains the
// source again.
type ScoreService struct {
	accumulator scoreAccumulator
	tracker     *SelectionTracker
	notifier    failureNotifier
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
}

// ScoreServiceParams groups constructor dependencies.
type ScoreServiceParams struct {
	Accumulator scoreAccumulator
	Tracker     *SelectionTracker
	Notifier    failureNotifier
	Validator   *validator.Validate
	Metrics     *MetricsService
	Logger      *zap.Logger
}

// NewScoreService constructs the service.
func NewScoreService(params ScoreServiceParams) *ScoreService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Tracker == nil {
		params.Tracker = NewSelectionTracker()
	}
	return &ScoreService{
		accumulator: params.Accumulator,
		tracker:     params.Tracker,
		notifier:    params.Notifier,
		validator:   params.Validator,
		metrics:     params.Metrics,
		logger:      params.Logger,
	}
}

// Records returns the full record set of the selection.
func (s *ScoreService) Records(ctx context.Context, q ScoreQuery) ([]models.ScoreRecord, error) {
	if err := s.validate(q); err != nil {
		return nil, err
	}
	return s.load(ctx, q)
}

// Composites derives per-student composites under policy.
func (s *ScoreService) Composites(ctx context.Context, q ScoreQuery, policy models.CompositePolicy) ([]models.StudentComposite, error) {
	if err := s.validate(q); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = models.PolicyZeroFill
	}
	if _, err := models.ParsePolicy(string(policy)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	records, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	return scoring.AggregateComposites(records, policy), nil
}

// Threshold counts the scores of one dimension strictly above the threshold.
func (s *ScoreService) Threshold(ctx context.Context, req ThresholdRequest) (models.AggregateStat, error) {
	if err := s.validate(req); err != nil {
		return models.AggregateStat{}, err
	}
	records, err := s.load(ctx, req.ScoreQuery)
	if err != nil {
		return models.AggregateStat{}, err
	}
	return scoring.ThresholdStats(records, req.Type, req.Threshold), nil
}

// Histogram buckets the scores of one dimension.
func (s *ScoreService) Histogram(ctx context.Context, req HistogramRequest) (models.Histogram, error) {
	if err := s.validate(req); err != nil {
		return models.Histogram{}, err
	}
	records, err := s.load(ctx, req.ScoreQuery)
	if err != nil {
		return models.Histogram{}, err
	}
	return scoring.HistogramBins(records, req.Type), nil
}

// Averages returns class means per category and of the composites.
func (s *ScoreService) Averages(ctx context.Context, q ScoreQuery) (models.ClassAverages, error) {
	if err := s.validate(q); err != nil {
		return models.ClassAverages{}, err
	}
	records, err := s.load(ctx, q)
	if err != nil {
		return models.ClassAverages{}, err
	}
	return scoring.ClassAveragesOf(records), nil
}

// Summary runs every analyzer over a single drain of the classroom.
func (s *ScoreService) Summary(ctx context.Context, q ScoreQuery, threshold float64) (*models.ClassroomSummary, error) {
	if err := s.validate(summaryRequest{ScoreQuery: q, Threshold: threshold}); err != nil {
		return nil, err
	}
	records, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}
	summary := scoring.Summarize(q.ClassroomID, records, threshold)
	return &summary, nil
}

// load drains the classroom under the view's selection. A load superseded by
// a newer selection of the same view reports ErrStaleSelection; failures of
// the current selection are pushed to the view's notifications.
func (s *ScoreService) load(ctx context.Context, q ScoreQuery) ([]models.ScoreRecord, error) {
	if q.ViewID == "" {
		return s.accumulator.Accumulate(ctx, q.ClassroomID, q.StudentID)
	}

	loadCtx, ticket := s.tracker.Begin(ctx, q.ViewID)
	records, err := s.accumulator.Accumulate(loadCtx, q.ClassroomID, q.StudentID)
	if !ticket.Finish() {
		s.metrics.RecordStaleSelection()
		s.logger.Debug("discarding superseded selection",
			zap.String("view_id", q.ViewID),
			zap.Uint64("generation", ticket.Generation),
		)
		return nil, appErrors.Clone(appErrors.ErrStaleSelection, "selection superseded by a newer request")
	}
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, context.Canceled) && s.notifier != nil {
			s.notifier.NotifyFailure(context.WithoutCancel(ctx), q.ViewID, err)
		}
		return nil, err
	}
	return records, nil
}

func (s *ScoreService) validate(req interface{}) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return nil
}
