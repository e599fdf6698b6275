package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LDThien999/ptitclassroom-score-api/internal/dto"
	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/service"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/response"
)

type exportJobService interface {
	CreateJob(ctx context.Context, req dto.ExportRequest, actor string, payload service.ExportJobPayload) (*dto.ExportJobResponse, error)
	GetStatus(ctx context.Context, id, actor string) (*dto.ExportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

var exportContentTypes = map[models.ExportFormat]string{
	models.ExportFormatCSV:  "text/csv",
	models.ExportFormatPDF:  "application/pdf",
	models.ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportHandler enqueues score exports and serves finished files.
type ExportHandler struct {
	jobs exportJobService
}

// NewExportHandler constructs the handler. A nil service makes every
// endpoint answer 503.
func NewExportHandler(jobs exportJobService) *ExportHandler {
	return &ExportHandler{jobs: jobs}
}

// Create godoc
// @Summary Enqueue a score export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export payload"))
		return
	}
	h.enqueue(c, req)
}

// CreateForClassroom godoc
// @Summary Enqueue the score sheet export of a classroom
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body dto.ExportRequest true "Only format is read"
// @Success 202 {object} response.Envelope
// @Router /classrooms/{id}/exports [post]
func (h *ExportHandler) CreateForClassroom(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export payload"))
		return
	}
	req.ClassroomID = strings.TrimSpace(c.Param("id"))
	if req.Type == "" {
		req.Type = models.ExportTypeClassroomScores
	}
	h.enqueue(c, req)
}

func (h *ExportHandler) enqueue(c *gin.Context, req dto.ExportRequest) {
	if h.jobs == nil {
		response.Error(c, appErrors.ErrExportUnavailable)
		return
	}
	req.Format = models.ExportFormat(strings.ToLower(string(req.Format)))
	resp, err := h.jobs.CreateJob(c.Request.Context(), req, actorFromContext(c), service.ExportJobPayload{
		AuthToken: authTokenFromContext(c),
		ViewID:    viewIDFromContext(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, resp)
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.ErrExportUnavailable)
		return
	}
	status, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export through its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if h.jobs == nil {
		response.Error(c, appErrors.ErrExportUnavailable)
		return
	}
	download, err := h.jobs.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export file"))
		return
	}
	contentType, ok := exportContentTypes[download.Format]
	if !ok {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Expires", download.ExpiresAt.UTC().Format(time.RFC1123))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, download.File, nil)
}
