package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
)

// ScoreRepository serves score pages straight from the classroom database
// using keyset pagination on score_details.id. The cursor is the last id of
// the previous page; 0 starts from the beginning.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository constructs a ScoreRepository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

const scoreColumns = `id AS score_detail_id, score, COALESCE(student_id, '') AS student_id,
COALESCE(student_username, '') AS student_username, classroom_id, typeofscore`

// FetchScorePage returns up to q.Size records after q.Cursor.
func (r *ScoreRepository) FetchScorePage(ctx context.Context, q models.ScorePageQuery) (*models.ScorePage, error) {
	size := q.Size
	if size <= 0 {
		size = 20
	}
	args := []interface{}{q.ClassroomID, q.Cursor}
	query := `SELECT ` + scoreColumns + ` FROM score_details WHERE classroom_id = $1 AND id > $2`
	if q.StudentID != "" {
		query += ` AND student_id = $3`
		args = append(args, q.StudentID)
	}
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT %d", size+1)

	var items []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list score page: %w", err)
	}

	page := &models.ScorePage{Items: items, NextCursor: q.Cursor}
	if len(items) > size {
		page.Items = items[:size]
		page.HasNext = true
	}
	if page.Items == nil {
		page.Items = []models.ScoreRecord{}
	}
	if n := len(page.Items); n > 0 {
		page.NextCursor = page.Items[n-1].ScoreDetailID
	}
	return page, nil
}

// StudentScores returns every score of a student across classrooms.
func (r *ScoreRepository) StudentScores(ctx context.Context, username string) ([]models.ScoreRecord, error) {
	query := `SELECT ` + scoreColumns + ` FROM score_details WHERE student_username = $1 ORDER BY classroom_id, id`
	var items []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &items, query, username); err != nil {
		return nil, fmt.Errorf("list student scores: %w", err)
	}
	return items, nil
}
