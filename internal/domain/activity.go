package domain

import "time"

// Activity is the canonical event record stored in PostgreSQL and cached by clients.
type Activity struct {
	ID          string
	Title       string
	Description string
	Category    string
	Date        time.Time
	City        string
	Venue       string
	Attendees   []Attendee

	// IsHost and IsGoing are convenience flags computed relative to a
	// viewing user. They are never persisted.
	IsHost  bool
	IsGoing bool
}

// Attendee is a membership record inside an activity's roster.
type Attendee struct {
	Username    string
	DisplayName string
	Image       string
	IsHost      bool
}

// Host returns the roster entry flagged as host, if any.
func (a Activity) Host() (Attendee, bool) {
	for _, att := range a.Attendees {
		if att.IsHost {
			return att, true
		}
	}
	return Attendee{}, false
}

// HasAttendee reports whether the username appears in the roster.
func (a Activity) HasAttendee(username string) bool {
	for _, att := range a.Attendees {
		if att.Username == username {
			return true
		}
	}
	return false
}

// ViewedBy returns a copy with IsHost/IsGoing recomputed for the given user.
func (a Activity) ViewedBy(username string) Activity {
	out := a
	out.IsGoing = a.HasAttendee(username)
	out.IsHost = false
	if host, ok := a.Host(); ok {
		out.IsHost = host.Username == username
	}
	return out
}
