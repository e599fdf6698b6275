package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LDThien999/ptitclassroom-score-api/internal/models"
)

// NotificationRepository keeps one Redis key per notification so expiry is
// handled by the key TTL.
type NotificationRepository struct {
	client *redis.Client
}

// NewNotificationRepository constructs the Redis backed store.
func NewNotificationRepository(client *redis.Client) *NotificationRepository {
	return &NotificationRepository{client: client}
}

func notificationKey(viewID, id string) string {
	return fmt.Sprintf("%snotification:%s:%s", CacheKeyPrefix, viewID, id)
}

// Save stores n until its ExpiresAt.
func (r *NotificationRepository) Save(ctx context.Context, n models.Notification) error {
	ttl := time.Until(n.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := r.client.Set(ctx, notificationKey(n.ViewID, n.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set notification: %w", err)
	}
	return nil
}

// List returns live notifications of a view, oldest first.
func (r *NotificationRepository) List(ctx context.Context, viewID string) ([]models.Notification, error) {
	keys := make([]string, 0)
	iter := r.client.Scan(ctx, 0, notificationKey(viewID, "*"), 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan notifications: %w", err)
	}
	out := make([]models.Notification, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget notifications: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired between SCAN and MGET
			continue
		}
		var n models.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("unmarshal notification: %w", err)
		}
		out = append(out, n)
	}
	sortNotifications(out)
	return out, nil
}

// Delete dismisses a notification. Missing ids are not an error.
func (r *NotificationRepository) Delete(ctx context.Context, viewID, id string) error {
	if err := r.client.Del(ctx, notificationKey(viewID, id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis delete notification: %w", err)
	}
	return nil
}

// MemoryNotificationStore is the in-process notification store.
type MemoryNotificationStore struct {
	mu    sync.Mutex
	views map[string]map[string]models.Notification
	now   func() time.Time
}

// NewMemoryNotificationStore constructs an empty store.
func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{views: make(map[string]map[string]models.Notification), now: time.Now}
}

// Save stores n until its ExpiresAt.
func (s *MemoryNotificationStore) Save(ctx context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.Expired(s.now()) {
		return nil
	}
	view, ok := s.views[n.ViewID]
	if !ok {
		view = make(map[string]models.Notification)
		s.views[n.ViewID] = view
	}
	view[n.ID] = n
	return nil
}

// List returns live notifications of a view and evicts expired ones.
func (s *MemoryNotificationStore) List(ctx context.Context, viewID string) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make([]models.Notification, 0)
	for id, n := range s.views[viewID] {
		if n.Expired(now) {
			delete(s.views[viewID], id)
			continue
		}
		out = append(out, n)
	}
	sortNotifications(out)
	return out, nil
}

// Delete dismisses a notification.
func (s *MemoryNotificationStore) Delete(ctx context.Context, viewID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views[viewID], id)
	return nil
}

func sortNotifications(items []models.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
