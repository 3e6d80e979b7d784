package reservation

import (
	"fmt"
	"time"
)

// StateKind enumerates coordinator states.
type StateKind int

const (
	Idle StateKind = iota
	// Reserved means a StartBooking call for PointID is in flight.
	Reserved
	InProgress
)

func (k StateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Reserved:
		return "reserved"
	case InProgress:
		return "in_progress"
	default:
		return fmt.Sprintf("state(%d)", int(k))
	}
}

// State is a coordinator state. PointID is empty when Idle; StartedAt and
// BookingID are only set InProgress.
type State struct {
	Kind      StateKind
	PointID   string
	StartedAt time.Time
	BookingID string
}

func (s State) String() string {
	if s.Kind == Idle {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%s)", s.Kind, s.PointID)
}

// NoticeKind classifies user-facing notices.
type NoticeKind int

const (
	NoticeAlreadyBooked NoticeKind = iota + 1
	NoticeTimerExpired
	NoticeRejected
	// NoticeNotPersisted means the feeding started but will not survive a
	// restart of the app.
	NoticeNotPersisted
)

const (
	alreadyBookedText = "Another user has booked the feeding for this feeding point"
	timerExpiredText  = "Your feeding timer is over. You can book a new feeding from the home page."
	notPersistedText  = "Feeding started, but it could not be saved on this device. Keep the app open until you finish."
)

// Notice is a transient message for the user. Notices are published in the
// order the coordinator raised them.
type Notice struct {
	Kind    NoticeKind
	PointID string
	Message string
	At      time.Time
}

func newNotice(kind NoticeKind, pointID, message string, at time.Time) Notice {
	if message == "" {
		switch kind {
		case NoticeAlreadyBooked:
			message = alreadyBookedText
		case NoticeTimerExpired:
			message = timerExpiredText
		case NoticeNotPersisted:
			message = notPersistedText
		}
	}
	return Notice{Kind: kind, PointID: pointID, Message: message, At: at}
}
