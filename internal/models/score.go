package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an identifier that the classroom backend may encode either as a JSON
// number or as a JSON string. It is always carried as its decimal text.
type ID string

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the textual identifier.
func (id ID) String() string { return string(id) }

// Int64 parses the identifier as an integer.
func (id ID) Int64() (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// ScoreType enumerates the score categories produced by the classroom backend.
type ScoreType string

const (
	ScoreTypeRegular ScoreType = "REGULAR"
	ScoreTypeMidterm ScoreType = "MIDTERM"
	ScoreTypeFinal   ScoreType = "FINAL"
	// ScoreTypeAverage is synthetic and only valid as an analysis dimension.
	ScoreTypeAverage ScoreType = "AVERAGE"
)

// Valid reports whether the type is one of the stored score categories.
func (t ScoreType) Valid() bool {
	switch t {
	case ScoreTypeRegular, ScoreTypeMidterm, ScoreTypeFinal:
		return true
	}
	return false
}

// ValidDimension additionally accepts the synthetic AVERAGE type.
func (t ScoreType) ValidDimension() bool {
	return t.Valid() || t == ScoreTypeAverage
}

// ScoreRecord is one graded item as returned by the score source.
type ScoreRecord struct {
	ScoreDetailID   int64     `db:"score_detail_id" json:"scoreDetailId"`
	Score           *float64  `db:"score" json:"score"`
	StudentID       ID        `db:"student_id" json:"studentId,omitempty"`
	StudentUsername string    `db:"student_username" json:"studentUsername,omitempty"`
	ClassroomID     ID        `db:"classroom_id" json:"classroomId"`
	TypeOfScore     ScoreType `db:"typeofscore" json:"typeofscore"`
}

// StudentKey returns the grouping key of the record's student.
func (r ScoreRecord) StudentKey() string {
	if r.StudentID != "" {
		return string(r.StudentID)
	}
	return r.StudentUsername
}

// ScorePage is a single cursor page from the score source.
type ScorePage struct {
	Items      []ScoreRecord `json:"items"`
	NextCursor int64         `json:"nextCursor"`
	HasNext    bool          `json:"hasNext"`
}

// ScorePageQuery identifies the page requested from the score source.
type ScorePageQuery struct {
	ClassroomID string
	StudentID   string
	Cursor      int64
	Page        int
	Size        int
}

// CompositePolicy selects how a student's weighted average is derived.
type CompositePolicy string

const (
	// PolicyZeroFill averages each category and counts empty categories as zero.
	PolicyZeroFill CompositePolicy = "zero-fill"
	// PolicyStrict uses exactly two regulars plus midterm and final.
	PolicyStrict CompositePolicy = "strict"
)

// ParsePolicy validates a textual policy. Empty input selects zero-fill.
func ParsePolicy(raw string) (CompositePolicy, error) {
	switch CompositePolicy(raw) {
	case "":
		return PolicyZeroFill, nil
	case PolicyZeroFill, PolicyStrict:
		return CompositePolicy(raw), nil
	}
	return "", fmt.Errorf("unknown composite policy %q", raw)
}

// StudentComposite is the derived per-student summary. It is never persisted.
type StudentComposite struct {
	StudentID   string          `json:"studentId"`
	ClassroomID string          `json:"classroomId"`
	Policy      CompositePolicy `json:"policy"`
	Regulars    []float64       `json:"regulars"`
	Regular1    *float64        `json:"regular1"`
	Regular2    *float64        `json:"regular2"`
	Midterm     *float64        `json:"midterm"`
	Final       *float64        `json:"final"`
	Average     *float64        `json:"average"`
}

// Complete reports whether the composite carries an average.
func (c StudentComposite) Complete() bool {
	return c.Average != nil
}

// AggregateStat summarises how many scores exceed a threshold.
type AggregateStat struct {
	Percentage float64 `json:"percentage"`
	Count      int     `json:"countAboveThreshold"`
	Total      int     `json:"total"`
}

// HistogramBucketCount is the number of integer buckets 0..10.
const HistogramBucketCount = 11

// Histogram counts scores per rounded integer bucket.
type Histogram [HistogramBucketCount]int

// ClassAverages carries class means per score category.
type ClassAverages struct {
	Regular float64 `json:"regular"`
	Midterm float64 `json:"midterm"`
	Final   float64 `json:"final"`
	Average float64 `json:"average"`
}

// ClassroomSummary bundles every analysis of one accumulation.
type ClassroomSummary struct {
	ClassroomID  string                      `json:"classroomId"`
	RecordCount  int                         `json:"recordCount"`
	StudentCount int                         `json:"studentCount"`
	Threshold    float64                     `json:"threshold"`
	Averages     ClassAverages               `json:"averages"`
	Thresholds   map[ScoreType]AggregateStat `json:"thresholds"`
	Histograms   map[ScoreType]Histogram     `json:"histograms"`
}
