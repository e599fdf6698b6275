package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, viewID string) ([]models.Notification, error)
	Dismiss(ctx context.Context, viewID, id string) error
}

// NotificationHandler exposes the transient notifications of a view.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary Live notifications of the calling view
// @Tags Notifications
// @Produce json
// @Param X-View-ID header string true "Dashboard view"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), viewIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Dismiss godoc
// @Summary Dismiss a notification before it expires
// @Tags Notifications
// @Param X-View-ID header string true "Dashboard view"
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	if err := h.service.Dismiss(c.Request.Context(), viewIDFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
