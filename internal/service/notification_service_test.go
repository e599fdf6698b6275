package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
	"github.com/LDThien999/ptitclassroom-score-api/internal/repository"
	appErrors "github.com/LDThien999/ptitclassroom-score-api/pkg/errors"
)

func newNotificationHarness(t *testing.T) (*NotificationService, *repository.MemoryNotificationStore) {
	t.Helper()
	channel := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = channel.Close() })

	store := repository.NewMemoryNotificationStore()
	svc := NewNotificationService(channel, store, NotificationConfig{TTL: time.Minute}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = svc.Run(ctx, channel) }()
	return svc, store
}

func TestNotificationServiceDeliversToView(t *testing.T) {
	svc, _ := newNotificationHarness(t)
	ctx := context.Background()

	published, err := svc.Publish(ctx, "histogram", models.NotificationSuccess, "Success", "scores loaded")
	require.NoError(t, err)
	require.NotNil(t, published)
	assert.NotEmpty(t, published.ID)
	assert.Equal(t, time.Minute, published.ExpiresAt.Sub(published.CreatedAt))

	require.Eventually(t, func() bool {
		items, err := svc.List(ctx, "histogram")
		return err == nil && len(items) == 1
	}, 2*time.Second, 10*time.Millisecond)

	others, err := svc.List(ctx, "threshold")
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, svc.Dismiss(ctx, "histogram", published.ID))
	items, err := svc.List(ctx, "histogram")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNotificationServiceFailureTitles(t *testing.T) {
	svc, _ := newNotificationHarness(t)
	ctx := context.Background()

	svc.NotifyFailure(ctx, "v1", appErrors.Clone(appErrors.ErrNetworkFailure, "dial tcp: refused"))
	svc.NotifyFailure(ctx, "v2", appErrors.Clone(appErrors.ErrMalformedResponse, "items is not an array"))

	var first, second []models.Notification
	require.Eventually(t, func() bool {
		first, _ = svc.List(ctx, "v1")
		second, _ = svc.List(ctx, "v2")
		return len(first) == 1 && len(second) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.NotificationError, first[0].Level)
	assert.Equal(t, "Score source unreachable", first[0].Title)
	assert.Equal(t, "Unexpected score data", second[0].Title)
	assert.NotEqual(t, first[0].Title, second[0].Title)
}

func TestNotificationServiceSkipsAnonymousViews(t *testing.T) {
	svc, _ := newNotificationHarness(t)

	n, err := svc.Publish(context.Background(), "", models.NotificationError, "Error", "boom")
	assert.NoError(t, err)
	assert.Nil(t, n)
}

func TestNotificationServiceRequiresViewForListing(t *testing.T) {
	svc, _ := newNotificationHarness(t)

	_, err := svc.List(context.Background(), "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.ErrorIs(t, svc.Dismiss(context.Background(), "v", ""), appErrors.ErrValidation)
}

func TestNotificationServiceDropsExpiredMessages(t *testing.T) {
	store := repository.NewMemoryNotificationStore()
	svc := NewNotificationService(nil, store, NotificationConfig{}, nil, zap.NewNop())
	now := time.Now()
	svc.now = func() time.Time { return now }

	payload, err := json.Marshal(models.Notification{
		ID:        "n1",
		ViewID:    "v",
		Level:     models.NotificationError,
		Title:     "Error",
		CreatedAt: now.Add(-time.Minute),
		ExpiresAt: now.Add(-time.Second),
	})
	require.NoError(t, err)

	require.NoError(t, svc.consume(context.Background(), message.NewMessage("n1", payload)))
	require.NoError(t, svc.consume(context.Background(), message.NewMessage("bad", []byte("{"))))

	items, err := store.List(context.Background(), "v")
	require.NoError(t, err)
	assert.Empty(t, items)
}

type failingNotificationStore struct {
	saves atomic.Int32
}

func (f *failingNotificationStore) Save(ctx context.Context, n models.Notification) error {
	f.saves.Add(1)
	return errors.New("redis: connection refused")
}

func (f *failingNotificationStore) List(ctx context.Context, viewID string) ([]models.Notification, error) {
	return nil, nil
}

func (f *failingNotificationStore) Delete(ctx context.Context, viewID, id string) error {
	return nil
}

func TestNotificationServiceDropsMessagesTheStoreRejects(t *testing.T) {
	channel := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = channel.Close() })
	store := &failingNotificationStore{}
	svc := NewNotificationService(channel, store, NotificationConfig{TTL: time.Minute}, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = svc.Run(ctx, channel) }()

	_, err := svc.Publish(ctx, "v1", models.NotificationError, "Error", "first")
	require.NoError(t, err)
	_, err = svc.Publish(ctx, "v1", models.NotificationError, "Error", "second")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return store.saves.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), store.saves.Load(), "each message is attempted once")
}
