package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the fixed three-way classification the RLS binder and JWT codec
// agree on. Unlike an open-ended RBAC role set, this set never grows at
// runtime — policy evaluation happens inside the engine (RLS), not against
// an application permission table.
type Role string

const (
	RoleAnon          Role = "anon"
	RoleAuthenticated Role = "authenticated"
	RoleServiceRole   Role = "service_role"
)

// SessionContext is the RLS binding payload: the
// (role, userId, claims) triple bound to the engine for the lifetime of
// one query.
type SessionContext struct {
	Role   Role
	UserID *uuid.UUID
	Claims map[string]interface{}
}

func AnonSessionContext() SessionContext {
	return SessionContext{Role: RoleAnon, Claims: map[string]interface{}{}}
}

// RequestContext is the per-request, in-memory-only state the Kernel
// threads through its middleware chain.
type RequestContext struct {
	RequestID      string
	ProjectID      string
	StartTime      time.Time
	SessionContext SessionContext
	ErrorFrame     *AppError
}

// Session is a user's login session; it owns one or more refresh tokens in
// a rotation chain.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	NotAfter  *time.Time
	UserAgent string
	IP        string
}

// RefreshToken is an opaque, one-time-use token bound to a Session.
// A refresh action consumes the presented token (marks it Revoked) and
// issues a new one bound to the same Session.
type RefreshToken struct {
	ID        uuid.UUID
	Token     string
	UserID    uuid.UUID
	SessionID uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Revoked   bool
}
