package scoring

import (
	"math"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
)

// DimensionValues collects the values analysed for a score type. Stored types
// yield one value per matching record with a null score read as 0; AVERAGE
// yields the unrounded zero-fill composite of every student.
func DimensionValues(records []models.ScoreRecord, scoreType models.ScoreType) []float64 {
	if scoreType == models.ScoreTypeAverage {
		return CompositeValues(records)
	}
	out := make([]float64, 0)
	for _, rec := range records {
		if rec.TypeOfScore != scoreType {
			continue
		}
		var v float64
		if rec.Score != nil {
			v = *rec.Score
		}
		out = append(out, v)
	}
	return out
}

// ThresholdStats counts values strictly above threshold.
func ThresholdStats(records []models.ScoreRecord, scoreType models.ScoreType, threshold float64) models.AggregateStat {
	return thresholdOf(DimensionValues(records, scoreType), threshold)
}

func thresholdOf(values []float64, threshold float64) models.AggregateStat {
	total := len(values)
	if total == 0 {
		return models.AggregateStat{}
	}
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return models.AggregateStat{
		Percentage: Round2(100 * float64(count) / float64(total)),
		Count:      count,
		Total:      total,
	}
}

// HistogramBins buckets values by nearest integer into 0..10. Values above 10
// land in bucket 10 and values below 0 in bucket 0.
func HistogramBins(records []models.ScoreRecord, scoreType models.ScoreType) models.Histogram {
	var bins models.Histogram
	for _, v := range DimensionValues(records, scoreType) {
		bins[bucketOf(v)]++
	}
	return bins
}

// bucketOf rounds halves up, matching the dashboard charts.
func bucketOf(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	b := math.Floor(v + 0.5)
	if b > models.HistogramBucketCount-1 {
		return models.HistogramBucketCount - 1
	}
	if b < 0 {
		return 0
	}
	return int(b)
}

// ClassAveragesOf returns the per category mean over all records and the mean
// of every student's zero-fill composite. Empty categories report 0.
func ClassAveragesOf(records []models.ScoreRecord) models.ClassAverages {
	return models.ClassAverages{
		Regular: Round2(mean(DimensionValues(records, models.ScoreTypeRegular))),
		Midterm: Round2(mean(DimensionValues(records, models.ScoreTypeMidterm))),
		Final:   Round2(mean(DimensionValues(records, models.ScoreTypeFinal))),
		Average: Round2(mean(CompositeValues(records))),
	}
}

// Summarize runs every analyzer over one record set.
func Summarize(classroomID string, records []models.ScoreRecord, threshold float64) models.ClassroomSummary {
	dimensions := []models.ScoreType{
		models.ScoreTypeRegular,
		models.ScoreTypeMidterm,
		models.ScoreTypeFinal,
		models.ScoreTypeAverage,
	}
	summary := models.ClassroomSummary{
		ClassroomID:  classroomID,
		RecordCount:  len(records),
		StudentCount: len(groupByStudent(records)),
		Threshold:    threshold,
		Averages:     ClassAveragesOf(records),
		Thresholds:   make(map[models.ScoreType]models.AggregateStat, len(dimensions)),
		Histograms:   make(map[models.ScoreType]models.Histogram, len(dimensions)),
	}
	for _, dim := range dimensions {
		values := DimensionValues(records, dim)
		summary.Thresholds[dim] = thresholdOf(values, threshold)
		var bins models.Histogram
		for _, v := range values {
			bins[bucketOf(v)]++
		}
		summary.Histograms[dim] = bins
	}
	return summary
}
