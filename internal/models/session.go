package models

import "time"

// Session is an opaque bearer credential bound to one user
type Session struct {
	Token   string
	UserID  string
	Expires time.Time

	// User is populated when the session is resolved with its owner
	User *User
}

// ValidAt reports whether the session is still usable at now.
// A session expiring exactly at now is already invalid.
func (s *Session) ValidAt(now time.Time) bool {
	return now.Before(s.Expires)
}
