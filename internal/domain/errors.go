package domain

import "fmt"

// ErrorKind classifies an AppError for the Kernel's error handler.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindRLSDenied  ErrorKind = "rls_denied"
	KindEngine     ErrorKind = "engine"
	KindTimeout    ErrorKind = "timeout"
	KindInternal   ErrorKind = "internal"
)

// Known stable error codes returned in the error body's `code` field.
const (
	CodeParseError        = "PGRST100"
	CodeSingleRowExpected = "PGRST116"
	CodeJWTExpired        = "PGRST301"
	CodeUndefinedTable    = "42P01"
	CodeUndefinedColumn   = "42703"
	CodeUniqueViolation   = "23505"
	CodeInvalidGrant      = "invalid_grant"
	CodeUserExists        = "user_already_registered"
	CodeWeakPassword      = "weak_password"
	CodeTokenExpired      = "token_expired"
	CodeMFAChallengeFail  = "mfa_challenge_failed"
	CodeInternal          = "internal_error"
)

// AppError is the single error type that crosses subsystem boundaries.
// The Kernel's error handler (internal/kernel/errorhandler.go) is the
// only place that maps it to an HTTP status and wire body.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Details string
	Hint    string
	// AuthSubKind distinguishes the 400/401/403/422 split for KindAuth.
	AuthSubKind AuthSubKind
	// ConflictOrigin distinguishes the 409/422 split for KindConflict.
	ConflictOrigin ConflictOrigin
	// Anonymous marks an RLSDenied error raised under an anon session
	// context, so the handler can pick 401 vs 403.
	Anonymous bool
	Wrapped   error
}

type AuthSubKind string

const (
	AuthSubBadRequest   AuthSubKind = "bad_request"   // 400
	AuthSubUnauthorized AuthSubKind = "unauthorized"  // 401
	AuthSubForbidden    AuthSubKind = "forbidden"      // 403
	AuthSubUnprocessable AuthSubKind = "unprocessable" // 422
)

type ConflictOrigin string

const (
	ConflictAlreadyExists ConflictOrigin = "already_exists" // 409
	ConflictValidation    ConflictOrigin = "validation"      // 422
)

func (e *AppError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Wrapped }

func NewValidationError(code, message string) *AppError {
	return &AppError{Kind: KindValidation, Code: code, Message: message}
}

func NewAuthError(sub AuthSubKind, code, message string) *AppError {
	return &AppError{Kind: KindAuth, Code: code, Message: message, AuthSubKind: sub}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Code: "not_found", Message: message}
}

func NewConflictError(origin ConflictOrigin, code, message string) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: message, ConflictOrigin: origin}
}

func NewRLSDeniedError(anonymous bool) *AppError {
	return &AppError{
		Kind:      KindRLSDenied,
		Code:      "42501",
		Message:   "row-level security policy denied access",
		Anonymous: anonymous,
	}
}

func NewEngineError(sqlstate, message string, wrapped error) *AppError {
	return &AppError{Kind: KindEngine, Code: sqlstate, Message: message, Wrapped: wrapped}
}

func NewTimeoutError(message string) *AppError {
	return &AppError{Kind: KindTimeout, Code: "57014", Message: message}
}

func NewInternalError(wrapped error) *AppError {
	return &AppError{Kind: KindInternal, Code: CodeInternal, Message: "internal error", Wrapped: wrapped}
}

// AsAppError unwraps err into an *AppError, or wraps it as KindInternal.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	if ae, ok := err.(*AppError); ok {
		return ae
	}
	return NewInternalError(err)
}
