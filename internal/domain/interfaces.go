package domain

import (
	"context"

	"github.com/google/uuid"
)

// EngineAdapter is the boundary between the Kernel/RLS binder and a single
// project's Postgres engine. Implementations never
// leak driver-specific types across this interface; every failure comes
// back as an *AppError.
type EngineAdapter interface {
	// Exec runs a rendered statement outside of any explicit transaction.
	Exec(ctx context.Context, sql string, params []interface{}) ([]map[string]interface{}, error)

	// WithSessionContext runs fn inside a transaction with SessionContext
	// bound via SET LOCAL for its duration, guaranteeing the binding is
	// cleared on every exit path including cancellation.
	WithSessionContext(ctx context.Context, sc SessionContext, fn func(ctx context.Context, tx Tx) error) error

	Ping(ctx context.Context) error
	Close() error
}

// Tx is the minimal transactional handle passed into WithSessionContext
// callbacks, kept narrow so callers cannot escape the RLS binding.
type Tx interface {
	Exec(ctx context.Context, sql string, params []interface{}) ([]map[string]interface{}, error)
}

// ProjectRegistry owns the one-active-project invariant and lazy engine
// materialisation. Switch and Delete drain in-flight
// requests against the outgoing or deleted project before returning.
type ProjectRegistry interface {
	Active(ctx context.Context) (*Project, error)
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
	Create(ctx context.Context, name string) (*Project, error)
	Switch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error

	// Engine returns the materialised adapter for a project, initialising
	// it on first use with bounded retry.
	Engine(ctx context.Context, projectID string) (EngineAdapter, error)
}

// AuthStore is the persistence boundary Auth Core depends on. It is
// intentionally narrow and storage-agnostic so Auth Core never imports the
// engine package directly, breaking what would otherwise be a cyclic
// dependency between the auth schema and the engine that hosts it.
type AuthStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByPhone(ctx context.Context, phone string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error

	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	DeleteSessionsByUser(ctx context.Context, userID uuid.UUID, except *uuid.UUID) error

	CreateRefreshToken(ctx context.Context, t *RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) error
	RevokeRefreshTokensBySession(ctx context.Context, sessionID uuid.UUID) error

	RecordRefreshFailure(ctx context.Context, f RefreshFailure) error
	CountRecentRefreshFailures(ctx context.Context, sessionID uuid.UUID) (int, error)

	CreateMFAFactor(ctx context.Context, f *MFAFactor) error
	GetMFAFactor(ctx context.Context, id uuid.UUID) (*MFAFactor, error)
	ListMFAFactorsByUser(ctx context.Context, userID uuid.UUID) ([]*MFAFactor, error)
	UpdateMFAFactor(ctx context.Context, f *MFAFactor) error
	DeleteMFAFactor(ctx context.Context, id uuid.UUID) error

	CreateMFAChallenge(ctx context.Context, c *MFAChallenge) error
	GetMFAChallenge(ctx context.Context, id uuid.UUID) (*MFAChallenge, error)
	MarkMFAChallengeVerified(ctx context.Context, id uuid.UUID) error
}

// TokenCodec signs and verifies access tokens and exposes the public key
// set for JWKS.
type TokenCodec interface {
	Sign(claims TokenClaims) (string, error)
	Verify(token string) (TokenClaims, error)
	JWKS() (map[string]interface{}, error)
	ClassifyAPIKey(key string) (Role, error)
}
