// Package authcore implements the auth state machine (sign-up/in/out,
// refresh rotation, profile update, recovery, verification, MFA) against a
// domain.AuthStore, never the concrete engine directly — Auth Core depends
// on the narrow storage interface so it can be unit-tested with a fake
// store and stays decoupled from internal/engine.
package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/litepg/litepg-core/internal/domain"
	"github.com/litepg/litepg-core/pkg/password"
)

// Config holds the access/refresh token lifetimes plus the session
// refresh-failure thresholds that gate reuse-triggered revocation.
type Config struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Issuer          string

	RefreshFailureWindow    time.Duration
	RefreshFailureThreshold int
}

type Service struct {
	store  domain.AuthStore
	codec  domain.TokenCodec
	cfg    Config
	clock  func() time.Time
}

func NewService(store domain.AuthStore, codec domain.TokenCodec, cfg Config) *Service {
	return &Service{store: store, codec: codec, cfg: cfg, clock: time.Now}
}

// AuthResult bundles the token pair and user returned by any operation that
// establishes or renews a session.
type AuthResult struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	TokenType    string       `json:"token_type"`
	User         *domain.User `json:"user"`
}

func (s *Service) SignUp(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if req.Email == "" && req.Phone == "" {
		return nil, domain.NewValidationError(domain.CodeParseError, "email or phone is required")
	}
	if req.Password != "" && !password.IsValidPassword(req.Password) {
		return nil, domain.NewValidationError(domain.CodeWeakPassword, "password does not meet strength requirements")
	}

	if req.Email != "" {
		if existing, err := s.store.GetUserByEmail(ctx, req.Email); err == nil && existing != nil {
			return nil, domain.NewConflictError(domain.ConflictAlreadyExists, domain.CodeUserExists, "a user with this email already exists")
		}
	}

	hashed := ""
	if req.Password != "" {
		h, err := password.HashPassword(req.Password)
		if err != nil {
			return nil, domain.NewInternalError(err)
		}
		hashed = h
	}

	now := s.clock()
	user := &domain.User{
		ID:                uuid.New(),
		Email:             req.Email,
		Phone:             req.Phone,
		EncryptedPassword: hashed,
		CreatedAt:         now,
		UpdatedAt:         now,
		Role:              domain.RoleAuthenticated,
		AppMetadata:       map[string]interface{}{},
		UserMetadata:      req.Data,
		IsAnonymous:       req.Password == "" && req.Email == "" && req.Phone == "",
	}
	if user.UserMetadata == nil {
		user.UserMetadata = map[string]interface{}{}
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) SignIn(ctx context.Context, req domain.SignInRequest) (*AuthResult, error) {
	var user *domain.User
	var err error

	switch {
	case req.Email != "":
		user, err = s.store.GetUserByEmail(ctx, req.Email)
	case req.Phone != "":
		user, err = s.store.GetUserByPhone(ctx, req.Phone)
	default:
		return nil, domain.NewValidationError(domain.CodeParseError, "email or phone is required")
	}
	if err != nil {
		return nil, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "invalid login credentials")
	}

	if user.EncryptedPassword == "" || password.VerifyPassword(user.EncryptedPassword, req.Password) != nil {
		return nil, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "invalid login credentials")
	}

	return s.issueSession(ctx, user, "", "")
}

// issueSession creates a fresh Session + RefreshToken chain and signs an
// access token for sign-in; refresh reuses issueTokenPair on the existing
// session instead.
func (s *Service) issueSession(ctx context.Context, user *domain.User, userAgent, ip string) (*AuthResult, error) {
	now := s.clock()
	notAfter := now.Add(s.cfg.RefreshTokenTTL)

	sess := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		CreatedAt: now,
		UpdatedAt: now,
		NotAfter:  &notAfter,
		UserAgent: userAgent,
		IP:        ip,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	return s.issueTokenPair(ctx, user, sess, now)
}

func (s *Service) issueTokenPair(ctx context.Context, user *domain.User, sess *domain.Session, now time.Time) (*AuthResult, error) {
	jti := uuid.NewString()
	claims := domain.TokenClaims{
		Subject:   user.ID,
		Role:      user.Role,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.AccessTokenTTL),
		JTI:       jti,
	}
	access, err := s.codec.Sign(claims)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}

	refresh := &domain.RefreshToken{
		ID:        uuid.New(),
		Token:     uuid.NewString(),
		UserID:    user.ID,
		SessionID: sess.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}

	user.LastSignInAt = &now
	_ = s.store.UpdateUser(ctx, user)

	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
		TokenType:    "bearer",
		User:         user,
	}, nil
}

// Refresh rotates the presented refresh token: the old token is revoked and
// a new one is issued bound to the same session. Presenting
// an already-revoked token is treated as a reuse attempt and revokes the
// whole session's refresh-token chain, a simplified one-token-per-session
// variant of token-family revocation.
func (s *Service) Refresh(ctx context.Context, token string) (*AuthResult, error) {
	rt, err := s.store.GetRefreshToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if rt.Revoked {
		_ = s.store.RevokeRefreshTokensBySession(ctx, rt.SessionID)
		_ = s.store.RecordRefreshFailure(ctx, domain.RefreshFailure{SessionID: rt.SessionID, OccurredAt: s.clock()})
		return nil, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "refresh token reuse detected; session revoked")
	}

	if count, err := s.store.CountRecentRefreshFailures(ctx, rt.SessionID); err == nil && count >= s.cfg.RefreshFailureThreshold && s.cfg.RefreshFailureThreshold > 0 {
		_ = s.store.RevokeRefreshTokensBySession(ctx, rt.SessionID)
		return nil, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "too many failed refresh attempts; session revoked")
	}

	user, err := s.store.GetUserByID(ctx, rt.UserID)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.GetSession(ctx, rt.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.NotAfter != nil && s.clock().After(*sess.NotAfter) {
		return nil, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeTokenExpired, "session has expired")
	}

	if err := s.store.RevokeRefreshToken(ctx, rt.ID); err != nil {
		return nil, err
	}

	return s.issueTokenPair(ctx, user, sess, s.clock())
}

func (s *Service) SignOut(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID, scope domain.SignOutScope) error {
	switch scope {
	case domain.ScopeLocal:
		return s.store.DeleteSession(ctx, sessionID)
	case domain.ScopeOthers:
		return s.store.DeleteSessionsByUser(ctx, userID, &sessionID)
	case domain.ScopeGlobal:
		return s.store.DeleteSessionsByUser(ctx, userID, nil)
	default:
		return domain.NewValidationError(domain.CodeParseError, fmt.Sprintf("unknown sign-out scope %q", scope))
	}
}

func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, req domain.UpdateUserRequest) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		user.Email = *req.Email
		user.EmailConfirmedAt = nil
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
		user.PhoneConfirmedAt = nil
	}
	if req.Password != nil {
		if !password.IsValidPassword(*req.Password) {
			return nil, domain.NewValidationError(domain.CodeWeakPassword, "password does not meet strength requirements")
		}
		hashed, err := password.HashPassword(*req.Password)
		if err != nil {
			return nil, domain.NewInternalError(err)
		}
		user.EncryptedPassword = hashed
	}
	if req.Data != nil {
		user.UserMetadata = req.Data
	}
	user.UpdatedAt = s.clock()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RecoverPassword always returns nil so the caller can respond
// indistinguishably whether or not the address is registered — user
// existence must not be revealed. It only looks the address up: no
// recovery token is generated or sent.
func (s *Service) RecoverPassword(ctx context.Context, email string) error {
	_, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil
	}
	return nil
}

func (s *Service) VerifyUser(ctx context.Context, req domain.VerifyRequest) (*domain.User, error) {
	var user *domain.User
	var err error
	if req.Email != "" {
		user, err = s.store.GetUserByEmail(ctx, req.Email)
	} else if req.Phone != "" {
		user, err = s.store.GetUserByPhone(ctx, req.Phone)
	} else {
		return nil, domain.NewValidationError(domain.CodeParseError, "email or phone is required")
	}
	if err != nil {
		return nil, domain.NewAuthError(domain.AuthSubUnprocessable, domain.CodeInvalidGrant, "invalid verification target")
	}

	now := s.clock()
	switch req.Type {
	case domain.VerifySignup, domain.VerifyEmailConfirm, domain.VerifyMagicLink:
		user.EmailConfirmedAt = &now
	case domain.VerifySMS, domain.VerifyPhoneChange:
		user.PhoneConfirmedAt = &now
	case domain.VerifyRecovery:
		// recovery verification hands control to UpdateUser for the
		// actual password change; nothing to persist here.
	case domain.VerifyEmailChange:
		user.EmailConfirmedAt = &now
	default:
		return nil, domain.NewValidationError(domain.CodeParseError, fmt.Sprintf("unknown verify type %q", req.Type))
	}
	user.UpdatedAt = now

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// EnrollMFA begins TOTP enrolment, returning the unverified factor carrying
// the provisioning secret.
func (s *Service) EnrollMFA(ctx context.Context, userID uuid.UUID, accountName, friendlyName string) (*domain.MFAFactor, error) {
	factor, err := generateTOTPSecret(accountName)
	if err != nil {
		return nil, err
	}
	factor.ID = uuid.New()
	factor.UserID = userID
	factor.FriendlyName = friendlyName
	now := s.clock()
	factor.CreatedAt = now
	factor.UpdatedAt = now

	if err := s.store.CreateMFAFactor(ctx, factor); err != nil {
		return nil, err
	}
	return factor, nil
}

// ChallengeMFA issues a short-lived, single-use challenge for an enrolled
// factor.
func (s *Service) ChallengeMFA(ctx context.Context, factorID uuid.UUID) (*domain.MFAChallenge, error) {
	factor, err := s.store.GetMFAFactor(ctx, factorID)
	if err != nil {
		return nil, err
	}
	if factor.Status != domain.MFAFactorVerified && factor.Status != domain.MFAFactorUnverified {
		return nil, domain.NewValidationError(domain.CodeParseError, "factor is not eligible for a challenge")
	}

	now := s.clock()
	challenge := &domain.MFAChallenge{
		ID:        uuid.New(),
		FactorID:  factorID,
		CreatedAt: now,
		ExpiresAt: newChallengeExpiry(now),
	}
	if err := s.store.CreateMFAChallenge(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// VerifyMFA checks a TOTP code against the challenge's factor. On first
// successful verification of an unverified factor, the factor transitions
// to verified.
func (s *Service) VerifyMFA(ctx context.Context, challengeID uuid.UUID, code string) error {
	challenge, err := s.store.GetMFAChallenge(ctx, challengeID)
	if err != nil {
		return err
	}
	if challenge.Expired(s.clock()) {
		return domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeMFAChallengeFail, "challenge has expired")
	}
	if challenge.VerifiedAt != nil {
		return domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeMFAChallengeFail, "challenge has already been used")
	}

	factor, err := s.store.GetMFAFactor(ctx, challenge.FactorID)
	if err != nil {
		return err
	}
	if factor.FactorType != domain.MFAFactorTOTP {
		return domain.NewValidationError(domain.CodeParseError, "unsupported factor type for TOTP verification")
	}
	if !verifyTOTPCode(factor.Secret, code) {
		return domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeMFAChallengeFail, "invalid TOTP code")
	}

	if err := s.store.MarkMFAChallengeVerified(ctx, challengeID); err != nil {
		return err
	}
	if factor.Status == domain.MFAFactorUnverified {
		factor.Status = domain.MFAFactorVerified
		factor.UpdatedAt = s.clock()
		if err := s.store.UpdateMFAFactor(ctx, factor); err != nil {
			return err
		}
	}
	return nil
}

// ListSessions backs the session-listing supplement to
// signOut({scope:"others"}).
func (s *Service) ListSessions(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	return s.store.ListSessionsByUser(ctx, userID)
}
