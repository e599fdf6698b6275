package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
)

var exportRowColumns = []string{"id", "type", "params", "status", "progress", "result_url", "created_by", "created_at", "finished_at", "error_message"}

func TestExportRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO export_jobs")).
		WithArgs(sqlmock.AnyArg(), "classroom_scores", sqlmock.AnyArg(), "QUEUED", 0, nil, "admin", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{
		Type:      models.ExportTypeClassroomScores,
		Params:    models.ExportParams{ClassroomID: "10", Format: models.ExportFormatXLSX},
		CreatedBy: "admin",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)

	rows := sqlmock.NewRows(exportRowColumns).
		AddRow(job.ID, "classroom_scores", `{"classroomId":"10","format":"xlsx"}`, "QUEUED", 0, nil, "admin", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, fetched.ID)
	assert.Equal(t, "10", fetched.Params.ClassroomID)
	assert.Equal(t, models.ExportFormatXLSX, fetched.Params.Format)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	now := time.Now()
	status := models.ExportStatusFinished
	progress := 100
	result := "/api/v1/exports/download/token"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE export_jobs SET status = $1, progress = $2, result_url = $3, finished_at = $4 WHERE id = $5")).
		WithArgs(status, progress, result, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateExportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &result,
		FinishedAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportRepositoryListQueuedAndFinished(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewExportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(exportRowColumns).
			AddRow("job-1", "student_report", `{"studentUsername":"alice","format":"pdf"}`, "QUEUED", 0, nil, "admin", time.Now(), nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM export_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2")).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows(exportRowColumns))

	queued, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "alice", queued[0].Params.StudentUsername)

	finished, err := repo.ListFinishedBefore(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	assert.Empty(t, finished)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryExportStoreLifecycle(t *testing.T) {
	store := NewMemoryExportStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	job := &models.ExportJob{Type: models.ExportTypeClassroomScores, Params: models.ExportParams{ClassroomID: "1", Format: models.ExportFormatCSV}}
	require.NoError(t, store.Create(ctx, job))

	queued, err := store.ListQueued(ctx, 0)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	finished := models.ExportStatusFinished
	past := time.Now().Add(-48 * time.Hour)
	url := "/exports/download/x"
	require.NoError(t, store.Update(ctx, job.ID, UpdateExportJobParams{Status: &finished, FinishedAt: &past, ResultURL: &url}))

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, got.Status)
	assert.Equal(t, url, *got.ResultURL)

	old, err := store.ListFinishedBefore(ctx, time.Now().Add(-24*time.Hour), 0)
	require.NoError(t, err)
	assert.Len(t, old, 1)

	queued, err = store.ListQueued(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, queued)
}
