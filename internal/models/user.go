package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Role is the authorization class of a user
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleRestricted Role = "restricted"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleRestricted
}

// MetadataLastSeenTasks is the metadata key holding the last time the user looked at their task list
const MetadataLastSeenTasks = "lastSeenTasks"

type User struct {
	ID        string
	Name      string
	Email     string
	Username  string
	Image     string
	Role      Role // fixed once the account is linked
	CreatedAt time.Time
	LastSeen  time.Time
	Metadata  Metadata
}

// Metadata is the open per-user JSONB map
type Metadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	if decoded == nil {
		decoded = make(map[string]interface{})
	}
	*m = Metadata(decoded)
	return nil
}

// Value implements driver.Valuer for JSONB
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}(m))
}

// LastSeenTasks returns the stored lastSeenTasks value, or nil when absent
func (m Metadata) LastSeenTasks() *string {
	v, ok := m[MetadataLastSeenTasks].(string)
	if !ok {
		return nil
	}
	return &v
}
