package service

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
)

type accumulatorStub struct {
	records []models.ScoreRecord
	err     error
	block   chan struct{}
	started chan struct{}
	calls   int
	mu      sync.Mutex
}

func (a *accumulatorStub) Accumulate(ctx context.Context, classroomID, studentID string) ([]models.ScoreRecord, error) {
	a.mu.Lock()
	a.calls++
	block := a.block
	a.block = nil
	a.mu.Unlock()

	if block != nil {
		close(a.started)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.records, nil
}

type notifierStub struct {
	mu     sync.Mutex
	viewID []string
	errs   []error
}

func (n *notifierStub) NotifyFailure(ctx context.Context, viewID string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.viewID = append(n.viewID, viewID)
	n.errs = append(n.errs, err)
}

func classroomRecords() []models.ScoreRecord {
	return []models.ScoreRecord{
		scoreRec(2, "s1", models.ScoreTypeRegular, 7),
		scoreRec(1, "s1", models.ScoreTypeRegular, 5),
		scoreRec(3, "s1", models.ScoreTypeMidterm, 6),
		scoreRec(4, "s1", models.ScoreTypeFinal, 8),
		scoreRec(5, "s2", models.ScoreTypeRegular, 9),
		scoreRec(6, "s2", models.ScoreTypeFinal, 4),
	}
}

func newScoreServiceForTest(acc scoreAccumulator, notifier failureNotifier) *ScoreService {
	return NewScoreService(ScoreServiceParams{
		Accumulator: acc,
		Notifier:    notifier,
		Logger:      zap.NewNop(),
	})
}

func TestScoreServiceComposites(t *testing.T) {
	svc := newScoreServiceForTest(&accumulatorStub{records: classroomRecords()}, nil)
	ctx := context.Background()

	strict, err := svc.Composites(ctx, ScoreQuery{ClassroomID: "7"}, models.PolicyStrict)
	require.NoError(t, err)
	require.Len(t, strict, 2)
	require.NotNil(t, strict[0].Average)
	assert.InDelta(t, 7.0, *strict[0].Average, 1e-9)
	assert.Nil(t, strict[1].Average)

	zeroFill, err := svc.Composites(ctx, ScoreQuery{ClassroomID: "7"}, "")
	require.NoError(t, err)
	require.Len(t, zeroFill, 2)
	assert.Equal(t, models.PolicyZeroFill, zeroFill[0].Policy)
	assert.InDelta(t, 7.2, *zeroFill[0].Average, 1e-9)
	assert.InDelta(t, 3.3, *zeroFill[1].Average, 1e-9)
}

func TestScoreServiceRejectsInvalidRequests(t *testing.T) {
	acc := &accumulatorStub{records: classroomRecords()}
	svc := newScoreServiceForTest(acc, nil)
	ctx := context.Background()

	_, err := svc.Records(ctx, ScoreQuery{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Composites(ctx, ScoreQuery{ClassroomID: "7"}, "lenient")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Threshold(ctx, ThresholdRequest{ScoreQuery: ScoreQuery{ClassroomID: "7"}, Type: "QUIZ", Threshold: 5})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Histogram(ctx, HistogramRequest{ScoreQuery: ScoreQuery{ClassroomID: "7"}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Summary(ctx, ScoreQuery{ClassroomID: "7"}, 11)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Summary(ctx, ScoreQuery{ClassroomID: "7"}, math.NaN())
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Threshold(ctx, ThresholdRequest{ScoreQuery: ScoreQuery{ClassroomID: "7"}, Type: models.ScoreTypeFinal, Threshold: math.NaN()})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	assert.Zero(t, acc.calls)
}

func TestScoreServiceStats(t *testing.T) {
	svc := newScoreServiceForTest(&accumulatorStub{records: classroomRecords()}, nil)
	ctx := context.Background()
	q := ScoreQuery{ClassroomID: "7"}

	stat, err := svc.Threshold(ctx, ThresholdRequest{ScoreQuery: q, Type: models.ScoreTypeRegular, Threshold: 6})
	require.NoError(t, err)
	assert.Equal(t, models.AggregateStat{Percentage: 66.67, Count: 2, Total: 3}, stat)

	bins, err := svc.Histogram(ctx, HistogramRequest{ScoreQuery: q, Type: models.ScoreTypeFinal})
	require.NoError(t, err)
	assert.Equal(t, 1, bins[8])
	assert.Equal(t, 1, bins[4])

	averages, err := svc.Averages(ctx, q)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, averages.Regular, 1e-9)

	summary, err := svc.Summary(ctx, q, 6)
	require.NoError(t, err)
	assert.Equal(t, stat, summary.Thresholds[models.ScoreTypeRegular])
	assert.Equal(t, 2, summary.StudentCount)
}

func TestScoreServiceNotifiesFailures(t *testing.T) {
	notifier := &notifierStub{}
	failure := appErrors.Clone(appErrors.ErrNetworkFailure, "refused")
	svc := newScoreServiceForTest(&accumulatorStub{err: failure}, notifier)

	records, err := svc.Records(context.Background(), ScoreQuery{ViewID: "table", ClassroomID: "7"})
	assert.Nil(t, records)
	assert.ErrorIs(t, err, appErrors.ErrNetworkFailure)
	require.Len(t, notifier.viewID, 1)
	assert.Equal(t, "table", notifier.viewID[0])
	assert.ErrorIs(t, notifier.errs[0], appErrors.ErrNetworkFailure)
}

func TestScoreServiceWithoutViewSkipsNotifications(t *testing.T) {
	notifier := &notifierStub{}
	svc := newScoreServiceForTest(&accumulatorStub{err: appErrors.Clone(appErrors.ErrMalformedResponse, "bad")}, notifier)

	_, err := svc.Records(context.Background(), ScoreQuery{ClassroomID: "7"})
	assert.ErrorIs(t, err, appErrors.ErrMalformedResponse)
	assert.Empty(t, notifier.viewID)
}

func TestScoreServiceDiscardsSupersededSelection(t *testing.T) {
	acc := &accumulatorStub{
		records: classroomRecords(),
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	notifier := &notifierStub{}
	svc := newScoreServiceForTest(acc, notifier)
	q := ScoreQuery{ViewID: "histogram", ClassroomID: "7"}

	type result struct {
		records []models.ScoreRecord
		err     error
	}
	first := make(chan result, 1)
	go func() {
		records, err := svc.Records(context.Background(), q)
		first <- result{records, err}
	}()

	select {
	case <-acc.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first selection never started")
	}

	records, err := svc.Records(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, records, 6)

	select {
	case res := <-first:
		assert.Nil(t, res.records)
		assert.ErrorIs(t, res.err, appErrors.ErrStaleSelection)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded selection did not return")
	}
	assert.Empty(t, notifier.viewID)
	assert.Equal(t, 0, svc.tracker.InFlight())
}
