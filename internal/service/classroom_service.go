package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/scoring"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
)

type classroomDirectory interface {
	ListClassrooms(ctx context.Context, size int) ([]models.Classroom, error)
	ListStudents(ctx context.Context, classroomID string) ([]models.UserProfile, error)
}

type studentScoreSource interface {
	StudentScores(ctx context.Context, username string) ([]models.ScoreRecord, error)
}

// ClassroomServiceConfig tunes directory lookups.
type ClassroomServiceConfig struct {
	CacheTTL time.Duration
	PageSize int
}

// ClassroomService serves the classroom directory and student report cards.
type ClassroomService struct {
	directory classroomDirectory
	scores    studentScoreSource
	cache     *CacheService
	cfg       ClassroomServiceConfig
	logger    *zap.Logger
}

// NewClassroomService constructs the service.
func NewClassroomService(directory classroomDirectory, scores studentScoreSource, cache *CacheService, cfg ClassroomServiceConfig, logger *zap.Logger) *ClassroomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ClassroomService{directory: directory, scores: scores, cache: cache, cfg: cfg, logger: logger}
}

// Classrooms lists the classrooms visible to actor. The listing is cached per
// actor because the backend scopes it by token.
func (s *ClassroomService) Classrooms(ctx context.Context, actor string) ([]models.Classroom, bool, error) {
	key := classroomsCacheKey(actor)
	var cached []models.Classroom
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, true, nil
	}

	classrooms, err := s.directory.ListClassrooms(ctx, s.cfg.PageSize)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, key, classrooms, s.cfg.CacheTTL)
	return classrooms, false, nil
}

// Refresh drops the actor's cached classroom listing.
func (s *ClassroomService) Refresh(ctx context.Context, actor string) error {
	return s.cache.Invalidate(ctx, classroomsCacheKey(actor))
}

// Subjects returns the distinct subjects of the actor's classrooms in listing order.
func (s *ClassroomService) Subjects(ctx context.Context, actor string) ([]models.Subject, error) {
	classrooms, _, err := s.Classrooms(ctx, actor)
	if err != nil {
		return nil, err
	}
	seen := make(map[models.ID]struct{}, len(classrooms))
	subjects := make([]models.Subject, 0)
	for _, c := range classrooms {
		if c.Subject.ID == "" {
			continue
		}
		if _, ok := seen[c.Subject.ID]; ok {
			continue
		}
		seen[c.Subject.ID] = struct{}{}
		subjects = append(subjects, c.Subject)
	}
	return subjects, nil
}

// Students lists the roster of a classroom. A non-empty query keeps students
// whose full name contains it, ignoring case.
func (s *ClassroomService) Students(ctx context.Context, classroomID, query string) ([]models.UserProfile, error) {
	if classroomID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classroomId is required")
	}
	students, err := s.directory.ListStudents(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	return filterStudents(students, query), nil
}

func filterStudents(students []models.UserProfile, query string) []models.UserProfile {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return students
	}
	out := make([]models.UserProfile, 0, len(students))
	for _, st := range students {
		if strings.Contains(strings.ToLower(st.FullName), query) {
			out = append(out, st)
		}
	}
	return out
}

// ReportCard computes a student's strict composite per subject.
func (s *ClassroomService) ReportCard(ctx context.Context, actor, username string) (*models.StudentReportCard, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username is required")
	}
	records, err := s.scores.StudentScores(ctx, username)
	if err != nil {
		return nil, err
	}
	classrooms, _, err := s.Classrooms(ctx, actor)
	if err != nil {
		return nil, err
	}
	card := scoring.BuildReportCard(username, records, classrooms)
	s.logger.Debug("report card built",
		zap.String("username", username),
		zap.Int("records", len(records)),
		zap.Int("subjects", len(card.Subjects)),
	)
	return &card, nil
}

func classroomsCacheKey(actor string) string {
	if actor == "" {
		actor = "anonymous"
	}
	return fmt.Sprintf("classrooms:%s", actor)
}
