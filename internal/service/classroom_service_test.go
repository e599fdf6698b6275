package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
)

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = map[string][]byte{}
	return nil
}

type directoryStub struct {
	classrooms     []models.Classroom
	students       []models.UserProfile
	scores         []models.ScoreRecord
	classroomCalls int
	err            error
}

func (d *directoryStub) ListClassrooms(ctx context.Context, size int) ([]models.Classroom, error) {
	d.classroomCalls++
	if d.err != nil {
		return nil, d.err
	}
	return d.classrooms, nil
}

func (d *directoryStub) ListStudents(ctx context.Context, classroomID string) ([]models.UserProfile, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.students, nil
}

func (d *directoryStub) StudentScores(ctx context.Context, username string) ([]models.ScoreRecord, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.scores, nil
}

func sampleDirectory() *directoryStub {
	return &directoryStub{
		classrooms: []models.Classroom{
			{ID: "7", Name: "D21CQCN01", Subject: models.Subject{ID: "1", Name: "Databases"}},
			{ID: "8", Name: "D21CQCN02", Subject: models.Subject{ID: "1", Name: "Databases"}},
			{ID: "9", Name: "D21CQCN03", Subject: models.Subject{ID: "2", Name: "Networks"}},
		},
		students: []models.UserProfile{
			{Username: "b21dccn001", FullName: "Nguyen Van An"},
			{Username: "b21dccn002", FullName: "Tran Thi Binh"},
			{Username: "b21dccn003", FullName: "Le Van Anh"},
		},
	}
}

func TestClassroomServiceCachesListingPerActor(t *testing.T) {
	dir := sampleDirectory()
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewClassroomService(dir, dir, cache, ClassroomServiceConfig{}, zap.NewNop())
	ctx := context.Background()

	first, hit, err := svc.Classrooms(ctx, "teacher1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, first, 3)

	second, hit, err := svc.Classrooms(ctx, "teacher1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)

	_, hit, err = svc.Classrooms(ctx, "teacher2")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, dir.classroomCalls)

	require.NoError(t, svc.Refresh(ctx, "teacher1"))
	_, hit, err = svc.Classrooms(ctx, "teacher1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, dir.classroomCalls)
}

func TestClassroomServiceSubjectsAreDistinct(t *testing.T) {
	svc := NewClassroomService(sampleDirectory(), nil, nil, ClassroomServiceConfig{}, nil)

	subjects, err := svc.Subjects(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []models.Subject{{ID: "1", Name: "Databases"}, {ID: "2", Name: "Networks"}}, subjects)
}

func TestClassroomServiceStudentsFilter(t *testing.T) {
	svc := NewClassroomService(sampleDirectory(), nil, nil, ClassroomServiceConfig{}, nil)
	ctx := context.Background()

	all, err := svc.Students(ctx, "7", "  ")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	matched, err := svc.Students(ctx, "7", "VAN A")
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "b21dccn001", matched[0].Username)
	assert.Equal(t, "b21dccn003", matched[1].Username)

	_, err = svc.Students(ctx, "", "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestClassroomServiceReportCard(t *testing.T) {
	dir := sampleDirectory()
	dir.scores = []models.ScoreRecord{
		{ScoreDetailID: 1, Score: floatPtr(5), ClassroomID: "9", TypeOfScore: models.ScoreTypeRegular},
		{ScoreDetailID: 2, Score: floatPtr(7), ClassroomID: "9", TypeOfScore: models.ScoreTypeRegular},
		{ScoreDetailID: 3, Score: floatPtr(6), ClassroomID: "9", TypeOfScore: models.ScoreTypeMidterm},
		{ScoreDetailID: 4, Score: floatPtr(8), ClassroomID: "9", TypeOfScore: models.ScoreTypeFinal},
		{ScoreDetailID: 5, Score: floatPtr(9), ClassroomID: "404", TypeOfScore: models.ScoreTypeFinal},
	}
	svc := NewClassroomService(dir, dir, nil, ClassroomServiceConfig{}, nil)

	card, err := svc.ReportCard(context.Background(), "", "b21dccn001")
	require.NoError(t, err)
	require.Len(t, card.Subjects, 1)
	assert.Equal(t, "Networks", card.Subjects[0].Subject.Name)
	require.NotNil(t, card.Subjects[0].Average)
	assert.InDelta(t, 7.0, *card.Subjects[0].Average, 1e-9)

	_, err = svc.ReportCard(context.Background(), "", " ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestClassroomServicePropagatesUpstreamErrors(t *testing.T) {
	dir := sampleDirectory()
	dir.err = appErrors.Clone(appErrors.ErrNetworkFailure, "down")
	svc := NewClassroomService(dir, dir, nil, ClassroomServiceConfig{}, nil)

	_, _, err := svc.Classrooms(context.Background(), "")
	assert.ErrorIs(t, err, appErrors.ErrNetworkFailure)
}

func floatPtr(v float64) *float64 { return &v }
