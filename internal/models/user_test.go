package models

import (
	"testing"
	"time"
)

func TestMetadata_ScanAndValue(t *testing.T) {
	var m Metadata
	if err := m.Scan([]byte(`{"theme":"dark","lastSeenTasks":"2026-03-10T10:00:00Z"}`)); err != nil {
		t.Fatalf("Scan returned %v", err)
	}
	if m["theme"] != "dark" {
		t.Errorf("expected theme to survive scan, got %v", m["theme"])
	}
	if got := m.LastSeenTasks(); got == nil || *got != "2026-03-10T10:00:00Z" {
		t.Errorf("LastSeenTasks = %v", got)
	}

	var empty Metadata
	if err := empty.Scan(nil); err != nil || empty == nil {
		t.Errorf("Scan(nil) should yield an empty map, got %v, %v", empty, err)
	}

	v, err := Metadata(nil).Value()
	if err != nil || string(v.([]byte)) != "{}" {
		t.Errorf("nil metadata Value = %v, %v", v, err)
	}
}

func TestRole_Valid(t *testing.T) {
	if !RoleAdmin.Valid() || !RoleRestricted.Valid() {
		t.Error("known roles should be valid")
	}
	if Role("tiny").Valid() {
		t.Error("unknown role should be invalid")
	}
}

func TestSession_ValidAt(t *testing.T) {
	expires := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := &Session{Expires: expires}

	if !s.ValidAt(expires.Add(-time.Second)) {
		t.Error("session should be valid before expiry")
	}
	if s.ValidAt(expires) {
		t.Error("session expiring now is invalid")
	}
}

func TestPushToken_SessionStatusAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	token := "tok"
	later := now.Add(time.Hour)
	earlier := now.Add(-time.Hour)

	if got := (&PushToken{}).SessionStatusAt(now); got != PushSessionUnknown {
		t.Errorf("no session = %s", got)
	}
	if got := (&PushToken{SessionToken: &token, SessionExpires: &later}).SessionStatusAt(now); got != PushSessionActive {
		t.Errorf("live session = %s", got)
	}
	if got := (&PushToken{SessionToken: &token, SessionExpires: &earlier}).SessionStatusAt(now); got != PushSessionExpired {
		t.Errorf("dead session = %s", got)
	}
}
