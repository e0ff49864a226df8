package kernel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litepg/litepg-core/internal/domain"
)

func TestWriteErrorValidation(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.NewValidationError(domain.CodeParseError, "bad filter"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.CodeParseError, body.Code)
	assert.Equal(t, "bad filter", body.Message)
}

func TestWriteErrorAuthDefaultsToUnauthorized(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.NewAuthError(domain.AuthSubUnauthorized, domain.CodeInvalidGrant, "bad creds"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWriteErrorAuthForbidden(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.NewAuthError(domain.AuthSubForbidden, "forbidden", "no access"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWriteErrorRLSDeniedAnonymousIsUnauthorized(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.NewRLSDeniedError(true))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWriteErrorRLSDeniedAuthenticatedIsForbidden(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.NewRLSDeniedError(false))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWriteErrorEngineUndefinedTableIsNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.NewEngineError(domain.CodeUndefinedTable, "no such table", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWriteErrorEngineUniqueViolationIsConflict(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.NewEngineError(domain.CodeUniqueViolation, "duplicate", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWriteErrorEngineOtherIsBadGateway(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.NewEngineError("55000", "not ready", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestWriteErrorConflictValidationIsUnprocessable(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.NewConflictError(domain.ConflictValidation, "x", "bad state"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestWriteErrorTimeoutIsGatewayTimeout(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, domain.NewTimeoutError("statement timeout"))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestWriteErrorUnknownErrorNeverLeaksText(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, assertPlainError("raw driver internals"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Message)
	assert.NotContains(t, w.Body.String(), "raw driver internals")
}

type assertPlainError string

func (e assertPlainError) Error() string { return string(e) }
