package model

// BookingStatus is the server-authoritative state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAccepted  BookingStatus = "accepted"
	BookingDeclined  BookingStatus = "declined"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingAccepted, BookingDeclined, BookingCancelled:
		return true
	}
	return false
}

// CanTransition reports whether this client may request the move s -> to.
// pending -> accepted|declined (driver), pending|accepted -> cancelled
// (passenger). Nothing else is initiated from here.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	switch to {
	case BookingAccepted, BookingDeclined:
		return s == BookingPending
	case BookingCancelled:
		return s == BookingPending || s == BookingAccepted
	}
	return false
}

// Terminal reports whether the client never transitions s further by a
// driver action.
func (s BookingStatus) Terminal() bool {
	return s == BookingAccepted || s == BookingDeclined || s == BookingCancelled
}
