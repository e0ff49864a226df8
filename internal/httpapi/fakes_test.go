package httpapi

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/litepg/litepg-core/internal/domain"
)

// fakeEngine is a minimal domain.EngineAdapter that runs fn directly,
// recording the last SessionContext bound so tests can assert on it.
type fakeEngine struct {
	execRows  []map[string]interface{}
	execErr   error
	lastQuery string
	lastSC    domain.SessionContext
}

func (f *fakeEngine) Exec(ctx context.Context, sql string, params []interface{}) ([]map[string]interface{}, error) {
	f.lastQuery = sql
	if f.execErr != nil {
		return nil, f.execErr
	}
	return f.execRows, nil
}

func (f *fakeEngine) WithSessionContext(ctx context.Context, sc domain.SessionContext, fn func(ctx context.Context, tx domain.Tx) error) error {
	f.lastSC = sc
	return fn(ctx, f)
}

func (f *fakeEngine) Ping(ctx context.Context) error { return nil }
func (f *fakeEngine) Close() error                   { return nil }

var _ domain.EngineAdapter = (*fakeEngine)(nil)
var _ domain.Tx = (*fakeEngine)(nil)

// fakeRegistry resolves every project to a single pre-wired fakeEngine.
type fakeRegistry struct {
	project *domain.Project
	engine  *fakeEngine
}

func (f *fakeRegistry) Active(ctx context.Context) (*domain.Project, error) { return f.project, nil }
func (f *fakeRegistry) Get(ctx context.Context, id string) (*domain.Project, error) {
	return f.project, nil
}
func (f *fakeRegistry) List(ctx context.Context) ([]*domain.Project, error) {
	return []*domain.Project{f.project}, nil
}
func (f *fakeRegistry) Create(ctx context.Context, name string) (*domain.Project, error) {
	return f.project, nil
}
func (f *fakeRegistry) Switch(ctx context.Context, id string) error { return nil }
func (f *fakeRegistry) Delete(ctx context.Context, id string) error { return nil }
func (f *fakeRegistry) Engine(ctx context.Context, projectID string) (domain.EngineAdapter, error) {
	return f.engine, nil
}

var _ domain.ProjectRegistry = (*fakeRegistry)(nil)

// fakeCodec is a no-op TokenCodec for tests that don't exercise token
// verification directly.
type fakeCodec struct {
	classifyRole domain.Role
	classifyErr  error
	verifyClaims domain.TokenClaims
	verifyErr    error
}

func (f *fakeCodec) Sign(claims domain.TokenClaims) (string, error) { return "signed", nil }
func (f *fakeCodec) Verify(token string) (domain.TokenClaims, error) {
	if f.verifyErr != nil {
		return domain.TokenClaims{}, f.verifyErr
	}
	return f.verifyClaims, nil
}
func (f *fakeCodec) JWKS() (map[string]interface{}, error) {
	return map[string]interface{}{"keys": []interface{}{}}, nil
}
func (f *fakeCodec) ClassifyAPIKey(key string) (domain.Role, error) {
	if f.classifyErr != nil {
		return "", f.classifyErr
	}
	return f.classifyRole, nil
}

var _ domain.TokenCodec = (*fakeCodec)(nil)

// fakeAuthStore is a minimal in-memory domain.AuthStore for exercising the
// auth executor's HTTP layer without a live Postgres connection.
type fakeAuthStore struct {
	usersByID    map[uuid.UUID]*domain.User
	usersByEmail map[string]*domain.User
	sessions     map[uuid.UUID]*domain.Session
	refreshByTok map[string]*domain.RefreshToken
	failures     map[uuid.UUID]int
	mfaFactors   map[uuid.UUID]*domain.MFAFactor
	mfaChal      map[uuid.UUID]*domain.MFAChallenge
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{
		usersByID:    map[uuid.UUID]*domain.User{},
		usersByEmail: map[string]*domain.User{},
		sessions:     map[uuid.UUID]*domain.Session{},
		refreshByTok: map[string]*domain.RefreshToken{},
		failures:     map[uuid.UUID]int{},
		mfaFactors:   map[uuid.UUID]*domain.MFAFactor{},
		mfaChal:      map[uuid.UUID]*domain.MFAChallenge{},
	}
}

func (f *fakeAuthStore) CreateUser(ctx context.Context, u *domain.User) error {
	if _, exists := f.usersByEmail[u.Email]; u.Email != "" && exists {
		return domain.NewConflictError(domain.ConflictAlreadyExists, domain.CodeUserExists, "user already registered")
	}
	f.usersByID[u.ID] = u
	if u.Email != "" {
		f.usersByEmail[u.Email] = u
	}
	return nil
}
func (f *fakeAuthStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := f.usersByID[id]
	if !ok {
		return nil, domain.NewNotFoundError("user not found")
	}
	return u, nil
}
func (f *fakeAuthStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, ok := f.usersByEmail[email]
	if !ok {
		return nil, domain.NewNotFoundError("user not found")
	}
	return u, nil
}
func (f *fakeAuthStore) GetUserByPhone(ctx context.Context, phone string) (*domain.User, error) {
	for _, u := range f.usersByID {
		if u.Phone == phone {
			return u, nil
		}
	}
	return nil, domain.NewNotFoundError("user not found")
}
func (f *fakeAuthStore) UpdateUser(ctx context.Context, u *domain.User) error {
	f.usersByID[u.ID] = u
	if u.Email != "" {
		f.usersByEmail[u.Email] = u
	}
	return nil
}

func (f *fakeAuthStore) CreateSession(ctx context.Context, s *domain.Session) error {
	f.sessions[s.ID] = s
	return nil
}
func (f *fakeAuthStore) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.NewNotFoundError("session not found")
	}
	return s, nil
}
func (f *fakeAuthStore) ListSessionsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	var out []*domain.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}
func (f *fakeAuthStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	delete(f.sessions, id)
	return nil
}
func (f *fakeAuthStore) DeleteSessionsByUser(ctx context.Context, userID uuid.UUID, except *uuid.UUID) error {
	for id, s := range f.sessions {
		if s.UserID == userID && (except == nil || id != *except) {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *fakeAuthStore) CreateRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	f.refreshByTok[t.Token] = t
	return nil
}
func (f *fakeAuthStore) GetRefreshToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	t, ok := f.refreshByTok[token]
	if !ok {
		return nil, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "refresh token not found")
	}
	return t, nil
}
func (f *fakeAuthStore) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	for _, t := range f.refreshByTok {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}
func (f *fakeAuthStore) RevokeRefreshTokensBySession(ctx context.Context, sessionID uuid.UUID) error {
	for _, t := range f.refreshByTok {
		if t.SessionID == sessionID {
			t.Revoked = true
		}
	}
	return nil
}

func (f *fakeAuthStore) RecordRefreshFailure(ctx context.Context, rf domain.RefreshFailure) error {
	f.failures[rf.SessionID]++
	return nil
}
func (f *fakeAuthStore) CountRecentRefreshFailures(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return f.failures[sessionID], nil
}

func (f *fakeAuthStore) CreateMFAFactor(ctx context.Context, mf *domain.MFAFactor) error {
	f.mfaFactors[mf.ID] = mf
	return nil
}
func (f *fakeAuthStore) GetMFAFactor(ctx context.Context, id uuid.UUID) (*domain.MFAFactor, error) {
	mf, ok := f.mfaFactors[id]
	if !ok {
		return nil, domain.NewNotFoundError("mfa factor not found")
	}
	return mf, nil
}
func (f *fakeAuthStore) ListMFAFactorsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.MFAFactor, error) {
	var out []*domain.MFAFactor
	for _, mf := range f.mfaFactors {
		if mf.UserID == userID {
			out = append(out, mf)
		}
	}
	return out, nil
}
func (f *fakeAuthStore) UpdateMFAFactor(ctx context.Context, mf *domain.MFAFactor) error {
	f.mfaFactors[mf.ID] = mf
	return nil
}
func (f *fakeAuthStore) DeleteMFAFactor(ctx context.Context, id uuid.UUID) error {
	delete(f.mfaFactors, id)
	return nil
}

func (f *fakeAuthStore) CreateMFAChallenge(ctx context.Context, c *domain.MFAChallenge) error {
	f.mfaChal[c.ID] = c
	return nil
}
func (f *fakeAuthStore) GetMFAChallenge(ctx context.Context, id uuid.UUID) (*domain.MFAChallenge, error) {
	c, ok := f.mfaChal[id]
	if !ok {
		return nil, domain.NewNotFoundError("mfa challenge not found")
	}
	return c, nil
}
func (f *fakeAuthStore) MarkMFAChallengeVerified(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	f.mfaChal[id].VerifiedAt = &now
	return nil
}

var _ domain.AuthStore = (*fakeAuthStore)(nil)
