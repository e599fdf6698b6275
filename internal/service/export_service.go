package service

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/scoring"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/export"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	Sweep(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// Column headers of the classroom score sheet.
var classroomSheetHeaders = []string{
	"Student ID", "Full Name", "Regular 1 (10%)", "Regular 2 (10%)", "Midterm (30%)", "Final (50%)", "Average",
}

// Column headers of the student report card.
var reportCardHeaders = []string{
	"No.", "Subject", "Subject Code", "Regular 1 (10%)", "Regular 2 (10%)", "Midterm (30%)", "Final (50%)", "Average",
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix         string
	ResultTTL         time.Duration
	ClassroomPageSize int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Scores        scoreAccumulator
	Directory     classroomDirectory
	StudentScores studentScoreSource
	Storage       fileStorage
	Signer        *storage.DownloadSigner
	Renderers     map[models.ExportFormat]documentRenderer
	Config        ExportConfig
	Logger        *zap.Logger
}

// ExportService builds score sheets and persists rendered files.
type ExportService struct {
	scores        scoreAccumulator
	directory     classroomDirectory
	studentScores studentScoreSource
	storage       fileStorage
	signer        *storage.DownloadSigner
	renderers     map[models.ExportFormat]documentRenderer
	logger        *zap.Logger
	cfg           ExportConfig
}

// NewExportService constructs an ExportService. Missing renderers default to
// the CSV, PDF and XLSX exporters.
func NewExportService(params ExportServiceParams) *ExportService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Config.ResultTTL <= 0 {
		params.Config.ResultTTL = 24 * time.Hour
	}
	if params.Config.ClassroomPageSize <= 0 {
		params.Config.ClassroomPageSize = 100
	}
	renderers := map[models.ExportFormat]documentRenderer{
		models.ExportFormatCSV:  export.NewCSVExporter(),
		models.ExportFormatPDF:  export.NewPDFExporter(),
		models.ExportFormatXLSX: export.NewXLSXExporter(),
	}
	for format, r := range params.Renderers {
		renderers[format] = r
	}
	return &ExportService{
		scores:        params.Scores,
		directory:     params.Directory,
		studentScores: params.StudentScores,
		storage:       params.Storage,
		signer:        params.Signer,
		renderers:     renderers,
		logger:        params.Logger,
		cfg:           params.Config,
	}
}

// Supports reports whether a renderer exists for format.
func (s *ExportService) Supports(format models.ExportFormat) bool {
	_, ok := s.renderers[format]
	return ok
}

// Generate builds the document described by job, stores it and signs a
// download token for it.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer, ok := s.renderers[job.Params.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	doc, baseName, err := s.buildDocument(ctx, job)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(doc)
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s/%s_Scores.%s", job.ID, baseName, job.Params.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Sign(storage.DownloadTicket{
		JobID:  job.ID,
		Path:   relPath,
		Format: string(job.Params.Format),
	})
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export generated",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("format", string(job.Params.Format)),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken verifies a download token and returns what it grants.
func (s *ExportService) ParseToken(token string, allowExpired bool) (*storage.DownloadTicket, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.Sweep(ttl)
}

func (s *ExportService) buildDocument(ctx context.Context, job *models.ExportJob) (export.Document, string, error) {
	switch job.Type {
	case models.ExportTypeClassroomScores:
		return s.buildClassroomSheet(ctx, job.Params)
	case models.ExportTypeStudentReport:
		return s.buildReportCard(ctx, job.Params)
	default:
		return export.Document{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

// buildClassroomSheet lists every rostered student whose strict composite is
// complete, in roster order.
func (s *ExportService) buildClassroomSheet(ctx context.Context, params models.ExportParams) (export.Document, string, error) {
	classroom, err := s.findClassroom(ctx, params.ClassroomID)
	if err != nil {
		return export.Document{}, "", err
	}
	roster, err := s.directory.ListStudents(ctx, params.ClassroomID)
	if err != nil {
		return export.Document{}, "", err
	}
	records, err := s.scores.Accumulate(ctx, params.ClassroomID, "")
	if err != nil {
		return export.Document{}, "", err
	}

	composites := make(map[string]models.StudentComposite)
	for _, c := range scoring.AggregateComposites(records, models.PolicyStrict) {
		composites[c.StudentID] = c
	}

	rows := make([]map[string]string, 0, len(roster))
	for _, student := range roster {
		c, ok := composites[student.UserID.String()]
		if !ok || student.UserID == "" {
			c, ok = composites[student.Username]
		}
		if !ok || !c.Complete() {
			continue
		}
		studentID := student.UserID.String()
		if studentID == "" {
			studentID = student.Username
		}
		rows = append(rows, map[string]string{
			"Student ID":      studentID,
			"Full Name":       student.FullName,
			"Regular 1 (10%)": formatScore(c.Regular1),
			"Regular 2 (10%)": formatScore(c.Regular2),
			"Midterm (30%)":   formatScore(c.Midterm),
			"Final (50%)":     formatScore(c.Final),
			"Average":         formatScore(c.Average),
		})
	}

	name, subject := "Unknown", "Unknown"
	if classroom != nil {
		name, subject = classroom.Name, classroom.Subject.Name
	}
	doc := export.Document{
		Title: "Classroom Score Report",
		Meta:  []string{"Classroom: " + name, "Subject: " + subject},
		Data:  export.Dataset{Headers: classroomSheetHeaders, Rows: rows},
	}
	baseName := "Classroom"
	if classroom != nil {
		baseName = classroom.Name
	}
	return doc, sanitizeFilename(baseName), nil
}

// buildReportCard lists the student's strict composite per subject.
func (s *ExportService) buildReportCard(ctx context.Context, params models.ExportParams) (export.Document, string, error) {
	records, err := s.studentScores.StudentScores(ctx, params.StudentUsername)
	if err != nil {
		return export.Document{}, "", err
	}
	classrooms, err := s.directory.ListClassrooms(ctx, s.cfg.ClassroomPageSize)
	if err != nil {
		return export.Document{}, "", err
	}
	card := scoring.BuildReportCard(params.StudentUsername, records, classrooms)

	profile := models.UserProfile{Username: params.StudentUsername, FullName: params.StudentUsername}
	classroomName := "Unknown"
	if params.ClassroomID != "" {
		roster, err := s.directory.ListStudents(ctx, params.ClassroomID)
		if err != nil {
			return export.Document{}, "", err
		}
		for _, st := range roster {
			if st.Username == params.StudentUsername {
				profile = st
				break
			}
		}
		for _, c := range classrooms {
			if c.ID.String() == params.ClassroomID {
				classroomName = c.Name
				break
			}
		}
	}

	rows := make([]map[string]string, 0, len(card.Subjects))
	for i, line := range card.Subjects {
		rows = append(rows, map[string]string{
			"No.":             strconv.Itoa(i + 1),
			"Subject":         line.Subject.Name,
			"Subject Code":    line.Subject.ID.String(),
			"Regular 1 (10%)": formatScore(line.Regular1),
			"Regular 2 (10%)": formatScore(line.Regular2),
			"Midterm (30%)":   formatScore(line.Midterm),
			"Final (50%)":     formatScore(line.Final),
			"Average":         formatScore(line.Average),
		})
	}

	meta := []string{
		"Full Name: " + profile.FullName,
		"Student ID: " + profile.UserID.String(),
		"Username: " + profile.Username,
		"Email: " + profile.Email,
		"Date of Birth: " + formatDOB(profile.DOB),
		"Classroom: " + classroomName,
	}
	doc := export.Document{
		Title: "Student Score Report",
		Meta:  meta,
		Data:  export.Dataset{Headers: reportCardHeaders, Rows: rows},
	}
	return doc, sanitizeFilename(profile.FullName), nil
}

func (s *ExportService) findClassroom(ctx context.Context, classroomID string) (*models.Classroom, error) {
	classrooms, err := s.directory.ListClassrooms(ctx, s.cfg.ClassroomPageSize)
	if err != nil {
		return nil, err
	}
	for i := range classrooms {
		if classrooms[i].ID.String() == classroomID {
			return &classrooms[i], nil
		}
	}
	s.logger.Debug("classroom missing from listing", zap.String("classroom_id", classroomID))
	return nil, nil
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// formatDOB renders an ISO date as dd/mm/yyyy and passes anything else through.
func formatDOB(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return raw
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "export"
	}
	result := unsafeFilenameChars.ReplaceAllString(raw, "_")
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
