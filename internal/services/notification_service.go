package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notification-system/internal/domain"
	"notification-system/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type NotificationService struct {
	repo      domain.NotificationRepository
	cache     domain.QueryCache
	publisher domain.NotificationPublisher
	listTTL   time.Duration
	log       logger.Logger
}

func NewNotificationService(repo domain.NotificationRepository, cache domain.QueryCache,
	publisher domain.NotificationPublisher, listTTL time.Duration, log logger.Logger) *NotificationService {
	return &NotificationService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		listTTL:   listTTL,
		log:       log,
	}
}

// CreateNotification persists the record, evicts the recipient's cached
// views, then fans the event out to live connections. The store write must
// succeed before publish is attempted; a publish that reaches nobody is
// still a successful create.
func (s *NotificationService) CreateNotification(ctx context.Context, userID, message string) (*domain.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("recipient id is required")
	}
	if message == "" {
		return nil, fmt.Errorf("message is required")
	}

	notification := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Read:      false,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	s.invalidateRecipient(ctx, userID)
	s.publisher.Publish(ctx, notification)

	return notification, nil
}

// ListNotifications returns the recipient's notifications newest first,
// read-through cached under the shared key convention.
func (s *NotificationService) ListNotifications(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	key := domain.NotificationListKey(userID, limit)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		var notifications []*domain.Notification
		if err := json.Unmarshal(cached, &notifications); err == nil {
			return notifications, nil
		}
		// Undecodable entry: fall through and recompute.
	} else if !errors.Is(err, domain.ErrCacheMiss) {
		// Cache backend trouble degrades to a direct read.
		s.log.Warn("Cache read failed, falling back to store", "key", key, "error", err)
	}

	notifications, err := s.repo.ListByRecipient(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(notifications); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.listTTL); err != nil {
			s.log.Warn("Cache write failed", "key", key, "error", err)
		}
	}

	return notifications, nil
}

// MarkRead flags one of the recipient's notifications as read. Repeating
// the call for an already-read notification succeeds; an unknown id
// returns domain.ErrNotificationNotFound.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	notification, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.invalidateRecipient(ctx, userID)

	return notification, nil
}

func (s *NotificationService) FlushCache(ctx context.Context) error {
	return s.cache.Flush(ctx)
}

func (s *NotificationService) invalidateRecipient(ctx context.Context, userID string) {
	prefix := domain.NotificationCachePrefix(userID)
	if err := s.cache.Invalidate(ctx, prefix); err != nil {
		s.log.Warn("Cache invalidation failed", "prefix", prefix, "error", err)
	}
}
