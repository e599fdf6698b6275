package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/repository"
	"github.com/LDThien999/ptitclassroom-score-api/internal/service"
)

func TestNotificationHandlerListAndDismiss(t *testing.T) {
	store := repository.NewMemoryNotificationStore()
	require.NoError(t, store.Save(context.Background(), models.Notification{
		ID:        "n1",
		ViewID:    "histogram",
		Level:     models.NotificationError,
		Title:     "Score source unreachable",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Minute),
	}))
	svc := service.NewNotificationService(nil, store, service.NotificationConfig{}, nil, nil)
	h := NewNotificationHandler(svc)

	c, w := newGinContext(http.MethodGet, "/notifications", nil)
	withViewID(c, "histogram")
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var items []models.Notification
	decodeData(t, w, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Score source unreachable", items[0].Title)

	c, w = newGinContext(http.MethodDelete, "/notifications/n1", nil)
	c.Params = gin.Params{{Key: "id", Value: "n1"}}
	withViewID(c, "histogram")
	h.Dismiss(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)

	items, err := store.List(context.Background(), "histogram")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNotificationHandlerRequiresView(t *testing.T) {
	h := NewNotificationHandler(service.NewNotificationService(nil, repository.NewMemoryNotificationStore(), service.NotificationConfig{}, nil, nil))

	c, w := newGinContext(http.MethodGet, "/notifications", nil)
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
