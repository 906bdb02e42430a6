package notify

import (
	"context"
	"sync"

	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
)

// PageSize is how many notifications the dropdown shows.
const PageSize = 5

// Notifications is what the dropdown needs from the notification service.
type Notifications interface {
	Counter
	List(ctx context.Context, f model.NotificationFilter) ([]model.Notification, error)
	MarkRead(ctx context.Context, id int64) (*model.Notification, error)
	MarkAllRead(ctx context.Context) (string, error)
}

// Dropdown is the list opened from the indicator. It may disagree with the
// count: unread items beyond the first page are counted but not shown.
type Dropdown struct {
	svc  Notifications
	ind  *Indicator
	size int

	mu     sync.Mutex
	items  []model.Notification
	closed bool
}

// NewDropdown creates a dropdown over svc that feeds ind. size <= 0 means
// PageSize.
func NewDropdown(svc Notifications, ind *Indicator, size int) *Dropdown {
	if size <= 0 {
		size = PageSize
	}
	return &Dropdown{svc: svc, ind: ind, size: size}
}

// Open fetches the most recent page.
func (d *Dropdown) Open(ctx context.Context) error {
	if d.isClosed() {
		return errs.ErrClosed
	}
	items, err := d.svc.List(ctx, model.NotificationFilter{PageSize: d.size})
	if err != nil {
		return err
	}
	d.mu.Lock()
	if !d.closed {
		d.items = items
	}
	d.mu.Unlock()
	return nil
}

// Items returns a copy of the visible notifications.
func (d *Dropdown) Items() []model.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.Notification(nil), d.items...)
}

// MarkRead marks one notification read on the server, then flags only that
// item locally and re-fetches the count.
func (d *Dropdown) MarkRead(ctx context.Context, id int64) error {
	if d.isClosed() {
		return errs.ErrClosed
	}
	if _, err := d.svc.MarkRead(ctx, id); err != nil {
		return err
	}
	d.patch(func(n *model.Notification) bool { return n.ID == id })
	return d.ind.Refresh(ctx, d.svc)
}

// MarkAllRead marks everything read on the server, then flags every visible
// item and re-fetches the count.
func (d *Dropdown) MarkAllRead(ctx context.Context) error {
	if d.isClosed() {
		return errs.ErrClosed
	}
	if _, err := d.svc.MarkAllRead(ctx); err != nil {
		return err
	}
	d.patch(func(*model.Notification) bool { return true })
	return d.ind.Refresh(ctx, d.svc)
}

// Close drops the list; later responses are ignored.
func (d *Dropdown) Close() {
	d.mu.Lock()
	d.closed = true
	d.items = nil
	d.mu.Unlock()
}

func (d *Dropdown) patch(match func(*model.Notification) bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	for i := range d.items {
		if match(&d.items[i]) {
			d.items[i].IsRead = true
		}
	}
}

func (d *Dropdown) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
