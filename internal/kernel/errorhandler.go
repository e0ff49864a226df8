package kernel

import (
	"encoding/json"
	"net/http"

	"github.com/litepg/litepg-core/internal/domain"
)

// errorBody mirrors PostgREST's {code, message, details, hint} error shape.
// This is the only place in the codebase an AppError is translated into a
// wire representation — status code and body are decided here and nowhere
// else.
type errorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// WriteError maps any error into an HTTP response. Non-AppError values are
// treated as internal errors and never leak their text to the client.
func WriteError(w http.ResponseWriter, err error) {
	appErr := domain.AsAppError(err)
	status, body := mapAppError(appErr)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func mapAppError(e *domain.AppError) (int, errorBody) {
	body := errorBody{Code: e.Code, Message: e.Message, Details: e.Details, Hint: e.Hint}

	switch e.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest, body

	case domain.KindAuth:
		switch e.AuthSubKind {
		case domain.AuthSubBadRequest:
			return http.StatusBadRequest, body
		case domain.AuthSubForbidden:
			return http.StatusForbidden, body
		case domain.AuthSubUnprocessable:
			return http.StatusUnprocessableEntity, body
		default:
			return http.StatusUnauthorized, body
		}

	case domain.KindNotFound:
		return http.StatusNotFound, body

	case domain.KindConflict:
		switch e.ConflictOrigin {
		case domain.ConflictValidation:
			return http.StatusUnprocessableEntity, body
		default:
			return http.StatusConflict, body
		}

	case domain.KindRLSDenied:
		if e.Anonymous {
			return http.StatusUnauthorized, body
		}
		return http.StatusForbidden, body

	case domain.KindEngine:
		switch e.Code {
		case domain.CodeUndefinedTable, domain.CodeUndefinedColumn:
			return http.StatusNotFound, body
		case domain.CodeUniqueViolation:
			return http.StatusConflict, body
		default:
			return http.StatusBadGateway, body
		}

	case domain.KindTimeout:
		return http.StatusGatewayTimeout, body

	default:
		return http.StatusInternalServerError, errorBody{
			Code:    domain.CodeInternal,
			Message: "internal server error",
		}
	}
}
