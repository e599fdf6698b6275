// Command score_compare drains the same classrooms from two score sources and
// reports where their composites disagree. A source is either the classroom
// REST backend (http:// or https://) or the score database (postgres://).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/repository"
	"github.com/LDThien999/ptitclassroom-score-api/internal/scoring"
	"github.com/LDThien999/ptitclassroom-score-api/internal/service"
)

type target struct {
	ClassroomID string `json:"classroomId"`
	Critical    bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target          target
	LeftRecords     int
	RightRecords    int
	StrictMatch     bool
	ZeroFillMatch   bool
	HistogramMatch  bool
	Error           error
	DurationLeft    time.Duration
	DurationRight   time.Duration
	MismatchedUsers []string
}

func (c comparison) match() bool {
	return c.StrictMatch && c.ZeroFillMatch && c.HistogramMatch
}

func main() {
	var (
		left        string
		right       string
		targetsPath string
		classrooms  string
		token       string
		timeout     time.Duration
		pageSize    int
		maxPages    int
	)

	flag.StringVar(&left, "left", "http://localhost:8081", "First score source (http(s):// or postgres://)")
	flag.StringVar(&right, "right", "", "Second score source (http(s):// or postgres://)")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "score_compare", "targets.json"), "Path to JSON targets file")
	flag.StringVar(&classrooms, "classrooms", "", "Comma separated classroom ids, overrides -targets")
	flag.StringVar(&token, "token", os.Getenv("SCORE_COMPARE_TOKEN"), "Bearer token forwarded to HTTP sources")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Per page timeout")
	flag.IntVar(&pageSize, "page-size", 20, "Page size")
	flag.IntVar(&maxPages, "max-pages", 500, "Page limit per classroom")
	flag.Parse()

	if right == "" {
		log.Fatal("-right is required")
	}

	targets, err := loadTargets(targetsPath, classrooms)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	logr := zap.NewNop()
	cfg := service.AccumulatorConfig{PageSize: pageSize, MaxPages: maxPages, MaxRetries: 2}
	leftSource, closeLeft, err := openSource(left, timeout)
	if err != nil {
		log.Fatalf("left source: %v", err)
	}
	defer closeLeft()
	rightSource, closeRight, err := openSource(right, timeout)
	if err != nil {
		log.Fatalf("right source: %v", err)
	}
	defer closeRight()

	leftAcc := service.NewScoreAccumulator(leftSource, cfg, nil, logr)
	rightAcc := service.NewScoreAccumulator(rightSource, cfg, nil, logr)

	ctx := repository.WithAuthToken(context.Background(), token)
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)
	for _, t := range targets {
		comp := compareTarget(ctx, leftAcc, rightAcc, t)
		if comp.Error != nil || !comp.match() {
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path, inline string) ([]target, error) {
	if inline != "" {
		var out []target
		for _, id := range strings.Split(inline, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, target{ClassroomID: id, Critical: true})
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no classrooms in -classrooms")
		}
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func openSource(raw string, timeout time.Duration) (service.ScorePageFetcher, func(), error) {
	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return repository.NewClassroomAPI(raw, nil, timeout, nil), func() {}, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		db, err := sqlx.Open("postgres", raw)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewScoreRepository(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported source %q", raw)
	}
}

func compareTarget(ctx context.Context, left, right *service.ScoreAccumulator, tgt target) comparison {
	comp := comparison{Target: tgt}

	start := time.Now()
	leftRecords, err := left.Accumulate(ctx, tgt.ClassroomID, "")
	comp.DurationLeft = time.Since(start)
	if err != nil {
		comp.Error = fmt.Errorf("left drain failed: %w", err)
		return comp
	}
	start = time.Now()
	rightRecords, err := right.Accumulate(ctx, tgt.ClassroomID, "")
	comp.DurationRight = time.Since(start)
	if err != nil {
		comp.Error = fmt.Errorf("right drain failed: %w", err)
		return comp
	}
	comp.LeftRecords = len(leftRecords)
	comp.RightRecords = len(rightRecords)

	strictLeft := byStudent(scoring.AggregateComposites(leftRecords, models.PolicyStrict))
	strictRight := byStudent(scoring.AggregateComposites(rightRecords, models.PolicyStrict))
	comp.MismatchedUsers = diffStudents(strictLeft, strictRight)
	comp.StrictMatch = len(comp.MismatchedUsers) == 0

	zeroLeft := byStudent(scoring.AggregateComposites(leftRecords, models.PolicyZeroFill))
	zeroRight := byStudent(scoring.AggregateComposites(rightRecords, models.PolicyZeroFill))
	zeroDiff := diffStudents(zeroLeft, zeroRight)
	comp.ZeroFillMatch = len(zeroDiff) == 0
	comp.MismatchedUsers = appendUnique(comp.MismatchedUsers, zeroDiff)

	comp.HistogramMatch = scoring.HistogramBins(leftRecords, models.ScoreTypeAverage) ==
		scoring.HistogramBins(rightRecords, models.ScoreTypeAverage)
	return comp
}

// Composites are compared per student since the two sources may page in a
// different order.
func byStudent(composites []models.StudentComposite) map[string]models.StudentComposite {
	out := make(map[string]models.StudentComposite, len(composites))
	for _, c := range composites {
		out[c.StudentID] = c
	}
	return out
}

func diffStudents(a, b map[string]models.StudentComposite) []string {
	var diff []string
	for id, ca := range a {
		cb, ok := b[id]
		if !ok || !reflect.DeepEqual(ca, cb) {
			diff = append(diff, id)
		}
	}
	for id := range b {
		if _, ok := a[id]; !ok {
			diff = append(diff, id)
		}
	}
	return diff
}

func appendUnique(dst, src []string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		seen[s] = struct{}{}
	}
	for _, s := range src {
		if _, ok := seen[s]; !ok {
			dst = append(dst, s)
			seen[s] = struct{}{}
		}
	}
	return dst
}

func printReport(results []comparison) {
	fmt.Println("Score Source Compare Report")
	fmt.Println("===========================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.match() {
			status = "DIFF"
		}
		fmt.Printf("[%s] classroom %s\n", status, res.Target.ClassroomID)
		fmt.Printf("  Left: %d records (%s)\n", res.LeftRecords, res.DurationLeft)
		fmt.Printf("  Right: %d records (%s)\n", res.RightRecords, res.DurationRight)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Strict match: %t | Zero-fill match: %t | Histogram match: %t | Critical: %t\n",
			res.StrictMatch, res.ZeroFillMatch, res.HistogramMatch, res.Target.Critical)
		if len(res.MismatchedUsers) > 0 {
			fmt.Printf("  Students: %s\n", strings.Join(res.MismatchedUsers, ", "))
		}
	}
}
