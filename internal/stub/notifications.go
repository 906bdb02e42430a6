package stub

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/and161185/rideshare/internal/convert"
	"github.com/and161185/rideshare/internal/model"
)

// notify records a notification for recipient. mu must be held.
func (s *Server) notify(recipient, sender int64, typ model.NotificationType, title, msg string, rideID, bookingID int64) {
	n := &notification{recipientID: recipient, senderID: sender}
	n.ID = s.nextID()
	n.Type = typ
	n.Title = title
	n.Message = msg
	n.RideID = rideID
	n.BookingID = bookingID
	n.CreatedAt = s.now()
	s.notifs[n.ID] = n
}

// notificationView renders n with its sender. mu must be held.
func (s *Server) notificationView(n *notification, withSender bool) convert.Notification {
	m := n.Notification
	var sender *model.User
	if n.senderID != 0 {
		sender = s.userView(n.senderID)
	}
	if sender != nil {
		m.SenderName = sender.FullName
		m.SenderAvatar = sender.Avatar
	}
	out := *convert.FromNotification(&m)
	if withSender {
		out.Sender = convert.FromUser(sender, true)
	}
	return out
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	q := r.URL.Query()
	typ := model.NotificationType(q.Get("type"))
	var isRead *bool
	if v := q.Get("is_read"); v != "" {
		b := strings.EqualFold(v, "true")
		isRead = &b
	}
	size := 0
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v > 0 {
		size = min(v, maxPageSize)
	}

	s.mu.Lock()
	matched := make([]*notification, 0)
	for _, n := range s.notifs {
		switch {
		case n.recipientID != uid:
		case typ != "" && n.Type != typ:
		case isRead != nil && n.IsRead != *isRead:
		default:
			matched = append(matched, n)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	out := make([]convert.Notification, 0, len(matched))
	for _, n := range matched {
		out = append(out, s.notificationView(n, false))
	}
	s.mu.Unlock()
	paginate(w, r, out, size)
}

// ownNotification looks up a notification of the caller. mu must be held.
func (s *Server) ownNotification(w http.ResponseWriter, r *http.Request) (*notification, bool) {
	uid, _ := UserIDFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return nil, false
	}
	n, found := s.notifs[id]
	if !found || n.recipientID != uid {
		notFound(w)
		return nil, false
	}
	return n, true
}

func (s *Server) getNotification(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.ownNotification(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.notificationView(n, true))
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.ownNotification(w, r)
	if !ok {
		return
	}
	n.IsRead = true
	writeJSON(w, http.StatusOK, s.notificationView(n, true))
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	s.mu.Lock()
	updated := 0
	for _, n := range s.notifs {
		if n.recipientID == uid && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, convert.MessageResponse{Message: fmt.Sprintf("%d notifications marked as read", updated)})
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	s.mu.Lock()
	c := 0
	for _, n := range s.notifs {
		if n.recipientID == uid && !n.IsRead {
			c++
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, convert.UnreadCount{Count: c})
}
