package domain

import (
	"time"

	"github.com/google/uuid"
)

type MFAFactorType string

const (
	MFAFactorTOTP  MFAFactorType = "totp"
	MFAFactorPhone MFAFactorType = "phone"
)

type MFAFactorStatus string

const (
	MFAFactorUnverified MFAFactorStatus = "unverified"
	MFAFactorVerified   MFAFactorStatus = "verified"
)

// MFAFactor is one enrolled second factor for a user.
type MFAFactor struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	FactorType   MFAFactorType
	FriendlyName string
	Secret       string // only set for totp
	Phone        string // only set for phone
	Status       MFAFactorStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFAChallenge is ephemeral and single-use; it expires.
type MFAChallenge struct {
	ID         uuid.UUID
	FactorID   uuid.UUID
	CreatedAt  time.Time
	VerifiedAt *time.Time
	ExpiresAt  time.Time
}

func (c MFAChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// RefreshFailure records one failed refresh attempt against a session, used
// to implement the window/threshold revocation rule.
type RefreshFailure struct {
	SessionID uuid.UUID
	OccurredAt time.Time
}

// TokenClaims are the claims carried in a signed access token.
type TokenClaims struct {
	Subject   uuid.UUID
	Role      Role
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Audience  string
	JTI       string
}
