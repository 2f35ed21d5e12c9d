// Package shared contains common domain types, errors, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UserID represents a unique user identifier (UUID format).
type UserID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the user ID is a valid UUID.
func (u UserID) IsValid() bool {
	return uuidRegex.MatchString(string(u))
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// IsEmpty checks if the ID is empty.
func (u UserID) IsEmpty() bool {
	return u == ""
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.ToLower(strings.TrimSpace(id)))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "invalid user ID format")
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Username Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Username represents a user's public display name.
type Username string

const maxUsernameLen = 30

// IsValid checks if the username is non-empty and within length bounds.
func (n Username) IsValid() bool {
	s := strings.TrimSpace(string(n))
	return s != "" && len(s) <= maxUsernameLen
}

// String returns the string representation.
func (n Username) String() string {
	return string(n)
}

// NewUsername creates a new Username with validation.
func NewUsername(name string) (Username, error) {
	n := Username(strings.TrimSpace(name))
	if !n.IsValid() {
		return "", NewDomainError("shared", "NewUsername", ErrInvalidFormat, "username must be 1-30 characters")
	}
	return n, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents skip/limit pagination parameters for feed queries.
type Pagination struct {
	Skip  int
	Limit int
}

const (
	DefaultFeedLimit    = 20
	DefaultHistoryLimit = 12
	MaxLimit            = 100
)

// Normalize clamps the parameters into valid bounds, applying defaultLimit
// when no limit was requested.
func (p Pagination) Normalize(defaultLimit int) Pagination {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// DefaultPagination returns skip 0 with the standard feed page size.
func DefaultPagination() Pagination {
	return Pagination{Skip: 0, Limit: DefaultFeedLimit}
}
