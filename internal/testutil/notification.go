package testutil

import (
	"context"
	"sync"

	"anoa.com/campusfix/internal/entity"
	notifRepo "anoa.com/campusfix/internal/modules/notification/repository"
	"github.com/google/uuid"
)

type NotificationRepo struct {
	mu    sync.Mutex
	items []entity.Notification
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{}
}

func (r *NotificationRepo) Create(_ context.Context, notification *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if notification.ID == uuid.Nil {
		notification.ID = uuid.Must(uuid.NewV7())
	}
	r.items = append(r.items, *notification)
	return nil
}

// GetByUserID returns newest first, like the gorm repository.
func (r *NotificationRepo) GetByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []entity.Notification
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].UserID == userID {
			out = append(out, r.items[i])
		}
	}
	if offset >= len(out) {
		return []entity.Notification{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepo) MarkAsRead(_ context.Context, id, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].ID == id && r.items[i].UserID == userID {
			r.items[i].IsRead = true
			return 1, nil
		}
	}
	return 0, nil
}

func (r *NotificationRepo) MarkAllAsRead(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].UserID == userID {
			r.items[i].IsRead = true
		}
	}
	return nil
}

func (r *NotificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, item := range r.items {
		if item.UserID == userID && !item.IsRead {
			n++
		}
	}
	return n, nil
}

var _ notifRepo.NotificationRepository = (*NotificationRepo)(nil)

// Notifier records notifications handed to it.
type Notifier struct {
	mu   sync.Mutex
	Sent []entity.Notification
}

func (n *Notifier) CreateNotification(_ context.Context, notification *entity.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, *notification)
	return nil
}

func (n *Notifier) GetNotifications(context.Context, uuid.UUID, int, int) ([]entity.Notification, error) {
	return nil, nil
}

func (n *Notifier) MarkAsRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (n *Notifier) MarkAllAsRead(context.Context, uuid.UUID) error { return nil }

func (n *Notifier) UnreadCount(context.Context, uuid.UUID) (int64, error) { return 0, nil }
