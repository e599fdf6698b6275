package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/service"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/response"
)

type scoreService interface {
	Records(ctx context.Context, q service.ScoreQuery) ([]models.ScoreRecord, error)
	Composites(ctx context.Context, q service.ScoreQuery, policy models.CompositePolicy) ([]models.StudentComposite, error)
	Threshold(ctx context.Context, req service.ThresholdRequest) (models.AggregateStat, error)
	Histogram(ctx context.Context, req service.HistogramRequest) (models.Histogram, error)
	Averages(ctx context.Context, q service.ScoreQuery) (models.ClassAverages, error)
	Summary(ctx context.Context, q service.ScoreQuery, threshold float64) (*models.ClassroomSummary, error)
}

// ScoreHandler exposes score aggregation and statistics for a classroom.
// Every endpoint honours the X-View-ID header: a newer request from the same
// view supersedes one still in flight.
type ScoreHandler struct {
	service scoreService
}

// NewScoreHandler constructs the handler.
func NewScoreHandler(service scoreService) *ScoreHandler {
	return &ScoreHandler{service: service}
}

func scoreQuery(c *gin.Context) service.ScoreQuery {
	return service.ScoreQuery{
		ViewID:      viewIDFromContext(c),
		ClassroomID: strings.TrimSpace(c.Param("id")),
		StudentID:   strings.TrimSpace(c.Query("studentId")),
	}
}

func parseThreshold(c *gin.Context) (float64, error) {
	raw := strings.TrimSpace(c.Query("threshold"))
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "threshold is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "threshold must be a number")
	}
	return v, nil
}

func scoreTypeQuery(c *gin.Context) models.ScoreType {
	return models.ScoreType(strings.ToUpper(strings.TrimSpace(c.Query("type"))))
}

// Scores godoc
// @Summary Drain every score record of a classroom
// @Tags Scores
// @Produce json
// @Param id path string true "Classroom ID"
// @Param studentId query string false "Restrict to one student"
// @Param X-View-ID header string false "Dashboard view issuing the request"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /classrooms/{id}/scores [get]
func (h *ScoreHandler) Scores(c *gin.Context) {
	records, err := h.service.Records(c.Request.Context(), scoreQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := respondMeta(c)
	meta["record_count"] = len(records)
	response.JSON(c, http.StatusOK, records, nil, meta)
}

// Composites godoc
// @Summary Per student weighted composites
// @Tags Scores
// @Produce json
// @Param id path string true "Classroom ID"
// @Param policy query string false "zero_fill (default) or strict"
// @Param X-View-ID header string false "Dashboard view issuing the request"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/composites [get]
func (h *ScoreHandler) Composites(c *gin.Context) {
	policy := models.CompositePolicy(strings.ToLower(strings.TrimSpace(c.Query("policy"))))
	composites, err := h.service.Composites(c.Request.Context(), scoreQuery(c), policy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, composites, nil, respondMeta(c))
}

// Threshold godoc
// @Summary Share of scores strictly above a threshold
// @Tags Statistics
// @Produce json
// @Param id path string true "Classroom ID"
// @Param type query string true "REGULAR, MIDTERM, FINAL or AVERAGE"
// @Param threshold query number true "Threshold between 0 and 10"
// @Param X-View-ID header string false "Dashboard view issuing the request"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/stats/threshold [get]
func (h *ScoreHandler) Threshold(c *gin.Context) {
	threshold, err := parseThreshold(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stat, err := h.service.Threshold(c.Request.Context(), service.ThresholdRequest{
		ScoreQuery: scoreQuery(c),
		Type:       scoreTypeQuery(c),
		Threshold:  threshold,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stat, nil, respondMeta(c))
}

// Histogram godoc
// @Summary Distribution of one score dimension over buckets 0..10
// @Tags Statistics
// @Produce json
// @Param id path string true "Classroom ID"
// @Param type query string true "REGULAR, MIDTERM, FINAL or AVERAGE"
// @Param X-View-ID header string false "Dashboard view issuing the request"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/stats/histogram [get]
func (h *ScoreHandler) Histogram(c *gin.Context) {
	bins, err := h.service.Histogram(c.Request.Context(), service.HistogramRequest{
		ScoreQuery: scoreQuery(c),
		Type:       scoreTypeQuery(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bins, nil, respondMeta(c))
}

// Averages godoc
// @Summary Class mean per score type and of the composite
// @Tags Statistics
// @Produce json
// @Param id path string true "Classroom ID"
// @Param X-View-ID header string false "Dashboard view issuing the request"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/stats/averages [get]
func (h *ScoreHandler) Averages(c *gin.Context) {
	averages, err := h.service.Averages(c.Request.Context(), scoreQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, averages, nil, respondMeta(c))
}

// Summary godoc
// @Summary Every statistic of a classroom from a single drain
// @Tags Statistics
// @Produce json
// @Param id path string true "Classroom ID"
// @Param threshold query number false "Threshold between 0 and 10, default 5"
// @Param X-View-ID header string false "Dashboard view issuing the request"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/stats/summary [get]
func (h *ScoreHandler) Summary(c *gin.Context) {
	threshold := 5.0
	if strings.TrimSpace(c.Query("threshold")) != "" {
		v, err := parseThreshold(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		threshold = v
	}
	summary, err := h.service.Summary(c.Request.Context(), scoreQuery(c), threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, respondMeta(c))
}
