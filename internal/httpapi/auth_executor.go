// Package httpapi hosts the three endpoint families (data API, auth API,
// debug API) as chi handlers dispatching into internal/authcore,
// internal/querylang, and internal/rls, in a handler-wraps-use-case style.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/litepg/litepg-core/internal/authcore"
	"github.com/litepg/litepg-core/internal/domain"
	"github.com/litepg/litepg-core/internal/kernel"
)

type AuthExecutor struct {
	service   *authcore.Service
	validate  *validator.Validate
}

func NewAuthExecutor(service *authcore.Service) *AuthExecutor {
	return &AuthExecutor{service: service, validate: validator.New()}
}

func (h *AuthExecutor) RegisterRoutes(r chi.Router) {
	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/token", h.Token)
		r.Post("/logout", h.SignOut)
		r.Put("/user", h.UpdateUser)
		r.Post("/recover", h.RecoverPassword)
		r.Post("/verify", h.Verify)
		r.Post("/factors", h.EnrollMFA)
		r.Post("/factors/{factorId}/challenge", h.ChallengeMFA)
		r.Post("/factors/{factorId}/verify", h.VerifyMFA)
	})
}

func (h *AuthExecutor) SignUp(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, err.Error()))
		return
	}

	user, err := h.service.SignUp(r.Context(), req)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}
	kernel.WriteAuthResult(w, http.StatusCreated, user)
}

// Token handles both password grant (`grant_type=password`) and refresh
// grant (`grant_type=refresh_token`) through a single endpoint, matching
// Supabase/GoTrue's `/token` shape rather than separate /login and
// /refresh routes.
func (h *AuthExecutor) Token(w http.ResponseWriter, r *http.Request) {
	grantType := r.URL.Query().Get("grant_type")

	switch grantType {
	case "refresh_token":
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid request body"))
			return
		}
		result, err := h.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			kernel.WriteError(w, err)
			return
		}
		kernel.WriteAuthResult(w, http.StatusOK, result)

	case "password", "":
		var req domain.SignInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid request body"))
			return
		}
		if err := h.validate.Struct(req); err != nil {
			kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, err.Error()))
			return
		}
		result, err := h.service.SignIn(r.Context(), req)
		if err != nil {
			kernel.WriteError(w, err)
			return
		}
		kernel.WriteAuthResult(w, http.StatusOK, result)

	default:
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "unsupported grant_type"))
	}
}

func (h *AuthExecutor) SignOut(w http.ResponseWriter, r *http.Request) {
	rc := kernel.FromContext(r.Context())
	if rc.SessionContext.UserID == nil {
		kernel.WriteError(w, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "not authenticated"))
		return
	}

	scope := domain.SignOutScope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = domain.ScopeLocal
	}

	sessionID, _ := uuid.Parse(r.URL.Query().Get("session_id"))
	if err := h.service.SignOut(r.Context(), *rc.SessionContext.UserID, sessionID, scope); err != nil {
		kernel.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthExecutor) UpdateUser(w http.ResponseWriter, r *http.Request) {
	rc := kernel.FromContext(r.Context())
	if rc.SessionContext.UserID == nil {
		kernel.WriteError(w, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "not authenticated"))
		return
	}

	var req domain.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid request body"))
		return
	}

	user, err := h.service.UpdateUser(r.Context(), *rc.SessionContext.UserID, req)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}
	kernel.WriteAuthResult(w, http.StatusOK, user)
}

func (h *AuthExecutor) RecoverPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.RecoverPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid request body"))
		return
	}
	_ = h.service.RecoverPassword(r.Context(), req.Email)
	w.WriteHeader(http.StatusOK)
}

func (h *AuthExecutor) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid request body"))
		return
	}
	user, err := h.service.VerifyUser(r.Context(), req)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}
	kernel.WriteAuthResult(w, http.StatusOK, user)
}

func (h *AuthExecutor) EnrollMFA(w http.ResponseWriter, r *http.Request) {
	rc := kernel.FromContext(r.Context())
	if rc.SessionContext.UserID == nil {
		kernel.WriteError(w, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "not authenticated"))
		return
	}

	var body struct {
		FriendlyName string `json:"friendly_name"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	factor, err := h.service.EnrollMFA(r.Context(), *rc.SessionContext.UserID, rc.SessionContext.UserID.String(), body.FriendlyName)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}
	kernel.WriteAuthResult(w, http.StatusOK, factor)
}

func (h *AuthExecutor) ChallengeMFA(w http.ResponseWriter, r *http.Request) {
	factorID, err := uuid.Parse(chi.URLParam(r, "factorId"))
	if err != nil {
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid factor id"))
		return
	}
	challenge, err := h.service.ChallengeMFA(r.Context(), factorID)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}
	kernel.WriteAuthResult(w, http.StatusOK, challenge)
}

func (h *AuthExecutor) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ChallengeID string `json:"challenge_id"`
		Code        string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid request body"))
		return
	}
	challengeID, err := uuid.Parse(body.ChallengeID)
	if err != nil {
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid challenge id"))
		return
	}
	if err := h.service.VerifyMFA(r.Context(), challengeID, body.Code); err != nil {
		kernel.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
