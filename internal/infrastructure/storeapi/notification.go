package storeapi

import (
	"context"
	"net/http"
	"time"

	"github.com/storefront/client/internal/domain/shared"
)

// NotificationAPI covers /notifications.
type NotificationAPI struct {
	r Requester
}

// Notification is one inbox entry.
type Notification struct {
	ID        shared.ID  `json:"id" yaml:"id"`
	Type      string     `json:"type,omitempty" yaml:"type,omitempty"`
	Title     string     `json:"title" yaml:"title"`
	Message   string     `json:"message" yaml:"message"`
	IsRead    bool       `json:"is_read" yaml:"is_read"`
	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// NotificationPreferences maps channel toggles such as email_notifications.
type NotificationPreferences map[string]bool

// List returns one page of notifications.
func (n *NotificationAPI) List(ctx context.Context, skip, limit int) ([]Notification, error) {
	var out []Notification
	if err := getList(ctx, n.r, "/notifications/", pageQuery(skip, limit), "notifications", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one notification.
func (n *NotificationAPI) Get(ctx context.Context, id shared.ID) (*Notification, error) {
	var out Notification
	if err := get(ctx, n.r, resource("/notifications/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts a notification.
func (n *NotificationAPI) Create(ctx context.Context, note Notification) (*Notification, error) {
	var out Notification
	if err := sendOne(ctx, n.r, http.MethodPost, "/notifications/", "notification", note, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkRead marks one notification read.
func (n *NotificationAPI) MarkRead(ctx context.Context, id shared.ID) error {
	return send(ctx, n.r, http.MethodPut, resource("/notifications/", id)+"/read", nil, nil)
}

// MarkAllRead marks every notification read.
func (n *NotificationAPI) MarkAllRead(ctx context.Context) error {
	return send(ctx, n.r, http.MethodPut, "/notifications/read-all", nil, nil)
}

// Delete removes a notification.
func (n *NotificationAPI) Delete(ctx context.Context, id shared.ID) error {
	return send(ctx, n.r, http.MethodDelete, resource("/notifications/", id), nil, nil)
}

// Preferences returns the delivery preferences.
func (n *NotificationAPI) Preferences(ctx context.Context) (NotificationPreferences, error) {
	var out NotificationPreferences
	if err := get(ctx, n.r, "/notifications/preferences/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePreferences saves the delivery preferences.
func (n *NotificationAPI) UpdatePreferences(ctx context.Context, prefs NotificationPreferences) (NotificationPreferences, error) {
	var out NotificationPreferences
	if err := send(ctx, n.r, http.MethodPut, "/notifications/preferences/", prefs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns inbox counters such as unread_count.
func (n *NotificationAPI) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	if err := get(ctx, n.r, "/notifications/stats/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
