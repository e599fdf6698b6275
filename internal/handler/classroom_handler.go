package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LDThien999/ptitclassroom-score-api/internal/middleware"
	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/response"
)

const maxStudentPageSize = 200

type classroomService interface {
	Classrooms(ctx context.Context, actor string) ([]models.Classroom, bool, error)
	Refresh(ctx context.Context, actor string) error
	Subjects(ctx context.Context, actor string) ([]models.Subject, error)
	Students(ctx context.Context, classroomID, query string) ([]models.UserProfile, error)
	ReportCard(ctx context.Context, actor, username string) (*models.StudentReportCard, error)
}

// ClassroomHandler serves the classroom directory.
type ClassroomHandler struct {
	service classroomService
}

// NewClassroomHandler constructs the handler.
func NewClassroomHandler(service classroomService) *ClassroomHandler {
	return &ClassroomHandler{service: service}
}

// List godoc
// @Summary List classrooms visible to the caller
// @Tags Classrooms
// @Produce json
// @Param refresh query bool false "Bypass the cached listing"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	actor := actorFromContext(c)
	if c.Query("refresh") == "true" {
		if err := h.service.Refresh(c.Request.Context(), actor); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh classrooms"))
			return
		}
	}
	classrooms, hit, err := h.service.Classrooms(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, classrooms, nil, respondMeta(c))
}

// Subjects godoc
// @Summary Distinct subjects of the caller's classrooms
// @Tags Classrooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *ClassroomHandler) Subjects(c *gin.Context) {
	subjects, err := h.service.Subjects(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Students godoc
// @Summary List students of a classroom
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Param q query string false "Full name filter, case insensitive"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/students [get]
func (h *ClassroomHandler) Students(c *gin.Context) {
	students, err := h.service.Students(c.Request.Context(), strings.TrimSpace(c.Param("id")), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}

	page := queryInt(c, "page", 1)
	size := queryInt(c, "pageSize", len(students))
	if size > maxStudentPageSize {
		size = maxStudentPageSize
	}
	if size == 0 {
		response.JSON(c, http.StatusOK, students, &response.Pagination{Page: 1, PageSize: 0, TotalCount: 0})
		return
	}
	start := (page - 1) * size
	if start > len(students) {
		start = len(students)
	}
	end := start + size
	if end > len(students) {
		end = len(students)
	}
	response.JSON(c, http.StatusOK, students[start:end], &response.Pagination{
		Page:       page,
		PageSize:   size,
		TotalCount: len(students),
	})
}

// ReportCard godoc
// @Summary Student report card across subjects
// @Tags Classrooms
// @Produce json
// @Param username path string true "Student username"
// @Success 200 {object} response.Envelope
// @Router /students/{username}/report-card [get]
func (h *ClassroomHandler) ReportCard(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "username is required"))
		return
	}
	card, err := h.service.ReportCard(c.Request.Context(), actorFromContext(c), username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}
