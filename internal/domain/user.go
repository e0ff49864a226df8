package domain

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the auth-schema user row. Email and phone are
// each unique when present.
type User struct {
	ID                uuid.UUID              `json:"id"`
	Email             string                 `json:"email,omitempty"`
	Phone             string                 `json:"phone,omitempty"`
	EncryptedPassword string                 `json:"-"`
	EmailConfirmedAt  *time.Time             `json:"email_confirmed_at,omitempty"`
	PhoneConfirmedAt  *time.Time             `json:"phone_confirmed_at,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
	LastSignInAt      *time.Time             `json:"last_sign_in_at,omitempty"`
	Role              Role                   `json:"role"`
	AppMetadata       map[string]interface{} `json:"app_metadata"`
	UserMetadata      map[string]interface{} `json:"user_metadata"`
	IsAnonymous       bool                   `json:"is_anonymous"`
}

// CreateUserRequest is the payload for sign-up and admin-create.
type CreateUserRequest struct {
	Email    string                 `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string                 `json:"phone,omitempty"`
	Password string                 `json:"password,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserRequest struct {
	Email    *string                `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string                `json:"phone,omitempty"`
	Password *string                `json:"password,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// SignOutScope is the `scope` parameter of POST /auth/v1/logout.
type SignOutScope string

const (
	ScopeLocal  SignOutScope = "local"
	ScopeOthers SignOutScope = "others"
	ScopeGlobal SignOutScope = "global"
)

// VerifyType enumerates the token kinds `verify` can consume.
type VerifyType string

const (
	VerifySignup       VerifyType = "signup"
	VerifyRecovery     VerifyType = "recovery"
	VerifyMagicLink    VerifyType = "magiclink"
	VerifyEmailChange  VerifyType = "email_change"
	VerifyPhoneChange  VerifyType = "phone_change"
	VerifySMS          VerifyType = "sms"
	VerifyEmailConfirm VerifyType = "email"
)

type VerifyRequest struct {
	Type  VerifyType `json:"type" validate:"required"`
	Token string     `json:"token" validate:"required"`
	Email string     `json:"email,omitempty"`
	Phone string     `json:"phone,omitempty"`
}

type RecoverPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}
