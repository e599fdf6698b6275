package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var scoreRowColumns = []string{"score_detail_id", "score", "student_id", "student_username", "classroom_id", "typeofscore"}

func TestScoreRepositoryFetchScorePageHasNext(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	rows := sqlmock.NewRows(scoreRowColumns).
		AddRow(int64(11), 7.5, "s1", "", "10", "REGULAR").
		AddRow(int64(12), nil, "s1", "", "10", "MIDTERM").
		AddRow(int64(13), 9.0, "s2", "", "10", "FINAL")
	mock.ExpectQuery(regexp.QuoteMeta("FROM score_details WHERE classroom_id = $1 AND id > $2 ORDER BY id ASC LIMIT 3")).
		WithArgs("10", int64(10)).
		WillReturnRows(rows)

	page, err := repo.FetchScorePage(context.Background(), models.ScorePageQuery{ClassroomID: "10", Cursor: 10, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasNext)
	assert.Equal(t, int64(12), page.NextCursor)
	assert.Equal(t, models.ID("s1"), page.Items[0].StudentID)
	assert.Nil(t, page.Items[1].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryFetchScorePageLast(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM score_details WHERE classroom_id = $1 AND id > $2 AND student_id = $3 ORDER BY id ASC LIMIT 21")).
		WithArgs("10", int64(0), "s1").
		WillReturnRows(sqlmock.NewRows(scoreRowColumns))

	page, err := repo.FetchScorePage(context.Background(), models.ScorePageQuery{ClassroomID: "10", StudentID: "s1", Size: 20})
	require.NoError(t, err)
	assert.False(t, page.HasNext)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.NextCursor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryStudentScores(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM score_details WHERE student_username = $1 ORDER BY classroom_id, id")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(scoreRowColumns).AddRow(int64(1), 8.0, "", "alice", "10", "FINAL"))

	records, err := repo.StudentScores(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].StudentKey())
	assert.NoError(t, mock.ExpectationsWereMet())
}
