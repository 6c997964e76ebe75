package models

import "time"

// Session status values reported for push tokens
const (
	PushSessionActive  = "active"
	PushSessionExpired = "expired"
	PushSessionUnknown = "unknown"
)

// DefaultDeviceName labels devices registered without a name
const DefaultDeviceName = "Unknown device"

// PushToken is a device registration for push delivery. Delivery itself happens elsewhere.
type PushToken struct {
	ID           string
	UserID       string
	ExpoToken    string
	DeviceName   *string
	SessionToken *string
	IsValid      bool
	CreatedAt    time.Time
	LastUsed     time.Time

	// SessionExpires is joined from the registering session when listing
	SessionExpires *time.Time
}

// SessionStatusAt classifies the registering session at now
func (p *PushToken) SessionStatusAt(now time.Time) string {
	if p.SessionToken == nil || p.SessionExpires == nil {
		return PushSessionUnknown
	}
	if now.Before(*p.SessionExpires) {
		return PushSessionActive
	}
	return PushSessionExpired
}
