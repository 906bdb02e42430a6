package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/rideshare/internal/model"
)

func TestNotificationService(t *testing.T) {
	t.Parallel()

	d := newFakeDoer().
		on("GET", "/notifications/", `{"count":1,"results":[{"id":5,"notification_type":"ride_request","title":"New ride request","message":"m","is_read":false,"ride":3,"booking":9,"created_at":"2030-01-01T00:00:00Z"}]}`).
		on("PATCH", "/notifications/5/read/", `{"id":5,"notification_type":"ride_request","is_read":true,"ride":{"id":3},"created_at":"2030-01-01T00:00:00Z"}`).
		on("POST", "/notifications/mark-all-read/", `{"message":"2 notifications marked as read"}`).
		on("GET", "/notifications/unread-count/", `{"count":4}`)
	svc := NewNotificationService(d)
	ctx := context.Background()

	unread := false
	list, err := svc.List(ctx, model.NotificationFilter{Type: model.NotifRideRequest, IsRead: &unread, PageSize: 5})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(9), list[0].BookingID)
	q := d.last().Query
	assert.Equal(t, "ride_request", q.Get("type"))
	assert.Equal(t, "false", q.Get("is_read"))
	assert.Equal(t, "5", q.Get("page_size"))

	n, err := svc.MarkRead(ctx, 5)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.Equal(t, int64(3), n.RideID)

	msg, err := svc.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2 notifications marked as read", msg)

	c, err := svc.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, c)
}
