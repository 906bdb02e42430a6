package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/and161185/rideshare/internal/api"
	"github.com/and161185/rideshare/internal/convert"
	"github.com/and161185/rideshare/internal/model"
)

// NotificationService covers notification read state.
type NotificationService interface {
	// List returns the caller's notifications, newest first.
	List(ctx context.Context, f model.NotificationFilter) ([]model.Notification, error)
	// Get returns one notification.
	Get(ctx context.Context, id int64) (*model.Notification, error)
	// MarkRead flags one notification read.
	MarkRead(ctx context.Context, id int64) (*model.Notification, error)
	// MarkAllRead flags every unread notification read and returns the server message.
	MarkAllRead(ctx context.Context) (string, error)
	// UnreadCount returns the number of unread notifications.
	UnreadCount(ctx context.Context) (int, error)
}

type NotificationServiceImpl struct {
	api api.Doer
}

// NewNotificationService constructs NotificationService.
func NewNotificationService(d api.Doer) *NotificationServiceImpl {
	return &NotificationServiceImpl{api: d}
}

func (s *NotificationServiceImpl) List(ctx context.Context, f model.NotificationFilter) ([]model.Notification, error) {
	q := url.Values{}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.IsRead != nil {
		q.Set("is_read", strconv.FormatBool(*f.IsRead))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	out, err := list[convert.Notification](ctx, s.api, "/notifications/", q)
	if err != nil {
		return nil, err
	}
	return convert.ToNotifications(out), nil
}

func (s *NotificationServiceImpl) Get(ctx context.Context, id int64) (*model.Notification, error) {
	var out convert.Notification
	if err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: idPath("/notifications/", id, "")}, &out); err != nil {
		return nil, err
	}
	return convert.ToNotification(&out), nil
}

func (s *NotificationServiceImpl) MarkRead(ctx context.Context, id int64) (*model.Notification, error) {
	var out convert.Notification
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPatch, Path: idPath("/notifications/", id, "read/")}, &out); err != nil {
		return nil, err
	}
	return convert.ToNotification(&out), nil
}

func (s *NotificationServiceImpl) MarkAllRead(ctx context.Context) (string, error) {
	var out convert.MessageResponse
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPost, Path: "/notifications/mark-all-read/"}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (s *NotificationServiceImpl) UnreadCount(ctx context.Context) (int, error) {
	var out convert.UnreadCount
	if err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: "/notifications/unread-count/"}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}
