// Package postgres implements domain.AuthStore against the auth schema
// (migrations/postgres) using pgx directly, in a query-string-literal
// repository style.
package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/litepg/litepg-core/internal/domain"
)

type Store struct {
	db *pgxpool.Pool
}

var _ domain.AuthStore = (*Store)(nil)

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	appMeta, err := json.Marshal(u.AppMetadata)
	if err != nil {
		return domain.NewInternalError(err)
	}
	userMeta, err := json.Marshal(u.UserMetadata)
	if err != nil {
		return domain.NewInternalError(err)
	}

	query := `
		INSERT INTO auth_users (id, email, phone, encrypted_password, role, app_metadata, user_metadata, is_anonymous, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.Exec(ctx, query,
		u.ID, nullable(u.Email), nullable(u.Phone), u.EncryptedPassword, u.Role,
		appMeta, userMeta, u.IsAnonymous, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return mapErr(err, "user")
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.scanUser(ctx, `SELECT id, email, phone, encrypted_password, email_confirmed_at, phone_confirmed_at,
		created_at, updated_at, last_sign_in_at, role, app_metadata, user_metadata, is_anonymous
		FROM auth_users WHERE id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.scanUser(ctx, `SELECT id, email, phone, encrypted_password, email_confirmed_at, phone_confirmed_at,
		created_at, updated_at, last_sign_in_at, role, app_metadata, user_metadata, is_anonymous
		FROM auth_users WHERE email = $1`, email)
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return s.scanUser(ctx, `SELECT id, email, phone, encrypted_password, email_confirmed_at, phone_confirmed_at,
		created_at, updated_at, last_sign_in_at, role, app_metadata, user_metadata, is_anonymous
		FROM auth_users WHERE phone = $1`, phone)
}

func (s *Store) scanUser(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var u domain.User
	var appMeta, userMeta []byte

	err := s.db.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Phone, &u.EncryptedPassword, &u.EmailConfirmedAt, &u.PhoneConfirmedAt,
		&u.CreatedAt, &u.UpdatedAt, &u.LastSignInAt, &u.Role, &appMeta, &userMeta, &u.IsAnonymous,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("user not found")
		}
		return nil, mapErr(err, "user")
	}

	if len(appMeta) > 0 {
		_ = json.Unmarshal(appMeta, &u.AppMetadata)
	}
	if len(userMeta) > 0 {
		_ = json.Unmarshal(userMeta, &u.UserMetadata)
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	appMeta, err := json.Marshal(u.AppMetadata)
	if err != nil {
		return domain.NewInternalError(err)
	}
	userMeta, err := json.Marshal(u.UserMetadata)
	if err != nil {
		return domain.NewInternalError(err)
	}

	query := `
		UPDATE auth_users
		SET email = $2, phone = $3, encrypted_password = $4, email_confirmed_at = $5,
		    phone_confirmed_at = $6, last_sign_in_at = $7, app_metadata = $8, user_metadata = $9,
		    updated_at = $10
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query,
		u.ID, nullable(u.Email), nullable(u.Phone), u.EncryptedPassword, u.EmailConfirmedAt,
		u.PhoneConfirmedAt, u.LastSignInAt, appMeta, userMeta, time.Now(),
	)
	if err != nil {
		return mapErr(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("user not found")
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	query := `
		INSERT INTO auth_sessions (id, user_id, created_at, updated_at, not_after, user_agent, ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.Exec(ctx, query, sess.ID, sess.UserID, sess.CreatedAt, sess.UpdatedAt, sess.NotAfter, sess.UserAgent, sess.IP)
	return mapErr(err, "session")
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var sess domain.Session
	err := s.db.QueryRow(ctx, `SELECT id, user_id, created_at, updated_at, not_after, user_agent, ip
		FROM auth_sessions WHERE id = $1`, id).Scan(
		&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt, &sess.NotAfter, &sess.UserAgent, &sess.IP,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("session not found")
		}
		return nil, mapErr(err, "session")
	}
	return &sess, nil
}

func (s *Store) ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, created_at, updated_at, not_after, user_agent, ip
		FROM auth_sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err, "session")
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		var sess domain.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt, &sess.NotAfter, &sess.UserAgent, &sess.IP); err != nil {
			return nil, mapErr(err, "session")
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id)
	return mapErr(err, "session")
}

func (s *Store) DeleteSessionsByUser(ctx context.Context, userID uuid.UUID, except *uuid.UUID) error {
	if except != nil {
		_, err := s.db.Exec(ctx, `DELETE FROM auth_sessions WHERE user_id = $1 AND id <> $2`, userID, *except)
		return mapErr(err, "session")
	}
	_, err := s.db.Exec(ctx, `DELETE FROM auth_sessions WHERE user_id = $1`, userID)
	return mapErr(err, "session")
}

func (s *Store) CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	query := `
		INSERT INTO auth_refresh_tokens (id, token, user_id, session_id, created_at, updated_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.Exec(ctx, query, t.ID, t.Token, t.UserID, t.SessionID, t.CreatedAt, t.UpdatedAt, t.Revoked)
	return mapErr(err, "refresh_token")
}

func (s *Store) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := s.db.QueryRow(ctx, `SELECT id, token, user_id, session_id, created_at, updated_at, revoked
		FROM auth_refresh_tokens WHERE token = $1`, token).Scan(
		&t.ID, &t.Token, &t.UserID, &t.SessionID, &t.CreatedAt, &t.UpdatedAt, &t.Revoked,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "refresh token not found")
		}
		return nil, mapErr(err, "refresh_token")
	}
	return &t, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE auth_refresh_tokens SET revoked = TRUE, updated_at = $2 WHERE id = $1`, id, time.Now())
	return mapErr(err, "refresh_token")
}

func (s *Store) RevokeRefreshTokensBySession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE auth_refresh_tokens SET revoked = TRUE, updated_at = $2 WHERE session_id = $1`, sessionID, time.Now())
	return mapErr(err, "refresh_token")
}

func (s *Store) RecordRefreshFailure(ctx context.Context, f domain.RefreshFailure) error {
	_, err := s.db.Exec(ctx, `INSERT INTO auth_refresh_failures (session_id, occurred_at) VALUES ($1, $2)`, f.SessionID, f.OccurredAt)
	return mapErr(err, "refresh_failure")
}

func (s *Store) CountRecentRefreshFailures(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM auth_refresh_failures
		WHERE session_id = $1 AND occurred_at > now() - interval '15 minutes'`, sessionID).Scan(&count)
	if err != nil {
		return 0, mapErr(err, "refresh_failure")
	}
	return count, nil
}

func (s *Store) CreateMFAFactor(ctx context.Context, f *domain.MFAFactor) error {
	query := `
		INSERT INTO auth_mfa_factors (id, user_id, factor_type, friendly_name, secret, phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query, f.ID, f.UserID, f.FactorType, f.FriendlyName, f.Secret, nullable(f.Phone), f.Status, f.CreatedAt, f.UpdatedAt)
	return mapErr(err, "mfa_factor")
}

func (s *Store) GetMFAFactor(ctx context.Context, id uuid.UUID) (*domain.MFAFactor, error) {
	var f domain.MFAFactor
	err := s.db.QueryRow(ctx, `SELECT id, user_id, factor_type, friendly_name, secret, phone, status, created_at, updated_at
		FROM auth_mfa_factors WHERE id = $1`, id).Scan(
		&f.ID, &f.UserID, &f.FactorType, &f.FriendlyName, &f.Secret, &f.Phone, &f.Status, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("mfa factor not found")
		}
		return nil, mapErr(err, "mfa_factor")
	}
	return &f, nil
}

func (s *Store) ListMFAFactorsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.MFAFactor, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, factor_type, friendly_name, secret, phone, status, created_at, updated_at
		FROM auth_mfa_factors WHERE user_id = $1`, userID)
	if err != nil {
		return nil, mapErr(err, "mfa_factor")
	}
	defer rows.Close()

	var out []*domain.MFAFactor
	for rows.Next() {
		var f domain.MFAFactor
		if err := rows.Scan(&f.ID, &f.UserID, &f.FactorType, &f.FriendlyName, &f.Secret, &f.Phone, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, mapErr(err, "mfa_factor")
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *Store) UpdateMFAFactor(ctx context.Context, f *domain.MFAFactor) error {
	_, err := s.db.Exec(ctx, `UPDATE auth_mfa_factors SET friendly_name = $2, status = $3, updated_at = $4 WHERE id = $1`,
		f.ID, f.FriendlyName, f.Status, time.Now())
	return mapErr(err, "mfa_factor")
}

func (s *Store) DeleteMFAFactor(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM auth_mfa_factors WHERE id = $1`, id)
	return mapErr(err, "mfa_factor")
}

func (s *Store) CreateMFAChallenge(ctx context.Context, c *domain.MFAChallenge) error {
	_, err := s.db.Exec(ctx, `INSERT INTO auth_mfa_challenges (id, factor_id, created_at, verified_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`, c.ID, c.FactorID, c.CreatedAt, c.VerifiedAt, c.ExpiresAt)
	return mapErr(err, "mfa_challenge")
}

func (s *Store) GetMFAChallenge(ctx context.Context, id uuid.UUID) (*domain.MFAChallenge, error) {
	var c domain.MFAChallenge
	err := s.db.QueryRow(ctx, `SELECT id, factor_id, created_at, verified_at, expires_at
		FROM auth_mfa_challenges WHERE id = $1`, id).Scan(&c.ID, &c.FactorID, &c.CreatedAt, &c.VerifiedAt, &c.ExpiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFoundError("mfa challenge not found")
		}
		return nil, mapErr(err, "mfa_challenge")
	}
	return &c, nil
}

func (s *Store) MarkMFAChallengeVerified(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE auth_mfa_challenges SET verified_at = $2 WHERE id = $1`, id, time.Now())
	return mapErr(err, "mfa_challenge")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mapErr(err error, resource string) error {
	if err == nil {
		return nil
	}
	return domain.NewEngineError("", resource+" store operation failed", err)
}
