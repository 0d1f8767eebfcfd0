package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the audience class of a principal or a notification.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAuthority Role = "authority"
	RoleCitizen   Role = "citizen"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuthority, RoleCitizen:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole accepts any casing of a known role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Room is the realtime routing key for a recipient: "<role>-<id>" for a
// single principal, "<role>" for the role-wide broadcast.
func Room(role Role, subject *uuid.UUID) string {
	if subject == nil || *subject == uuid.Nil {
		return string(role)
	}
	return string(role) + "-" + subject.String()
}
