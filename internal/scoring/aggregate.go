package scoring

import (
	"sort"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
)

// Zero-fill weights for the category means.
const (
	ZeroFillRegularWeight = 0.1
	ZeroFillMidtermWeight = 0.3
	ZeroFillFinalWeight   = 0.6
)

// Strict weights for the report card columns.
const (
	StrictRegularWeight = 0.1
	StrictMidtermWeight = 0.3
	StrictFinalWeight   = 0.5
)

// studentBucket holds one student's records split by category, in source order.
type studentBucket struct {
	key         string
	classroomID string
	regular     []models.ScoreRecord
	midterm     []models.ScoreRecord
	final       []models.ScoreRecord
}

// groupByStudent buckets records per student key in order of first appearance.
// Records with an unknown type or without a student key are dropped.
func groupByStudent(records []models.ScoreRecord) []*studentBucket {
	index := make(map[string]*studentBucket)
	ordered := make([]*studentBucket, 0)
	for _, rec := range records {
		if !rec.TypeOfScore.Valid() {
			continue
		}
		key := rec.StudentKey()
		if key == "" {
			continue
		}
		bucket, ok := index[key]
		if !ok {
			bucket = &studentBucket{key: key, classroomID: rec.ClassroomID.String()}
			index[key] = bucket
			ordered = append(ordered, bucket)
		}
		switch rec.TypeOfScore {
		case models.ScoreTypeRegular:
			bucket.regular = append(bucket.regular, rec)
		case models.ScoreTypeMidterm:
			bucket.midterm = append(bucket.midterm, rec)
		case models.ScoreTypeFinal:
			bucket.final = append(bucket.final, rec)
		}
	}
	return ordered
}

// AggregateComposites derives one composite per student observed in records.
// Output order follows each student's first appearance in the input.
func AggregateComposites(records []models.ScoreRecord, policy models.CompositePolicy) []models.StudentComposite {
	buckets := groupByStudent(records)
	out := make([]models.StudentComposite, 0, len(buckets))
	for _, b := range buckets {
		switch policy {
		case models.PolicyStrict:
			out = append(out, strictComposite(b))
		default:
			out = append(out, zeroFillComposite(b))
		}
	}
	return out
}

// CompositeValues returns the unrounded zero-fill average of every student,
// in the same order as AggregateComposites.
func CompositeValues(records []models.ScoreRecord) []float64 {
	buckets := groupByStudent(records)
	out := make([]float64, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, zeroFillAverage(b))
	}
	return out
}

func zeroFillAverage(b *studentBucket) float64 {
	reg := mean(scores(b.regular))
	mid := mean(scores(b.midterm))
	fin := mean(scores(b.final))
	return reg*ZeroFillRegularWeight + mid*ZeroFillMidtermWeight + fin*ZeroFillFinalWeight
}

func zeroFillComposite(b *studentBucket) models.StudentComposite {
	regulars := scores(b.regular)
	c := models.StudentComposite{
		StudentID:   b.key,
		ClassroomID: b.classroomID,
		Policy:      models.PolicyZeroFill,
		Regulars:    regulars,
		Midterm:     round2Ptr(mean(scores(b.midterm))),
		Final:       round2Ptr(mean(scores(b.final))),
		Average:     round2Ptr(zeroFillAverage(b)),
	}
	first, second := firstTwoRegulars(b.regular)
	c.Regular1, c.Regular2 = first, second
	return c
}

func strictComposite(b *studentBucket) models.StudentComposite {
	c := models.StudentComposite{
		StudentID:   b.key,
		ClassroomID: b.classroomID,
		Policy:      models.PolicyStrict,
		Regulars:    scores(b.regular),
	}
	c.Regular1, c.Regular2 = firstTwoRegulars(b.regular)
	if len(b.midterm) > 0 {
		c.Midterm = valuePtr(b.midterm[0].Score)
	}
	if len(b.final) > 0 {
		c.Final = valuePtr(b.final[0].Score)
	}
	if c.Regular1 != nil && c.Regular2 != nil && c.Midterm != nil && c.Final != nil {
		avg := *c.Regular1*StrictRegularWeight + *c.Regular2*StrictRegularWeight +
			*c.Midterm*StrictMidtermWeight + *c.Final*StrictFinalWeight
		c.Average = round2Ptr(avg)
	}
	return c
}

// firstTwoRegulars ranks REGULAR records by scoreDetailId ascending and
// returns the scores of the first two. Missing entries stay nil.
func firstTwoRegulars(regular []models.ScoreRecord) (*float64, *float64) {
	ranked := make([]models.ScoreRecord, len(regular))
	copy(ranked, regular)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ScoreDetailID < ranked[j].ScoreDetailID
	})
	var first, second *float64
	if len(ranked) > 0 {
		first = valuePtr(ranked[0].Score)
	}
	if len(ranked) > 1 {
		second = valuePtr(ranked[1].Score)
	}
	return first, second
}

// scores returns the non-null scores of records in order.
func scores(records []models.ScoreRecord) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		if rec.Score != nil {
			out = append(out, *rec.Score)
		}
	}
	return out
}
