package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ritahq/rita/internal/member"
	"github.com/ritahq/rita/internal/passreset"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v interface{}) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

// writeMemberError maps a member service error kind to an HTTP status and
// machine code. Unknown errors become a generic 500 with structured logging
// for diagnosis.
func writeMemberError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, member.ErrCannotModifySelf):
		writeError(w, http.StatusBadRequest, "CANNOT_MODIFY_SELF", err.Error())
	case errors.Is(err, member.ErrCannotRemoveSelf):
		writeError(w, http.StatusBadRequest, "CANNOT_REMOVE_SELF", err.Error())
	case errors.Is(err, member.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "MEMBER_NOT_FOUND", err.Error())
	case errors.Is(err, member.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", err.Error())
	case errors.Is(err, member.ErrLastOwner):
		writeError(w, http.StatusConflict, "LAST_OWNER", err.Error())
	case errors.Is(err, member.ErrNotImplemented):
		slog.Warn("caller attempted unimplemented operation",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
		)
		writeError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "this operation is not available yet")
	default:
		slog.Error("member operation failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
	}
}

// resetErrorCode maps token lifecycle errors to their stable machine codes.
// Returns "" for errors outside the reset taxonomy.
func resetErrorCode(err error) string {
	switch {
	case errors.Is(err, passreset.ErrInvalidToken):
		return "PWD_RESET_001"
	case errors.Is(err, passreset.ErrTokenAlreadyUsed):
		return "PWD_RESET_002"
	case errors.Is(err, passreset.ErrTokenExpired):
		return "PWD_RESET_003"
	case errors.Is(err, passreset.ErrWeakPassword):
		return "PWD_RESET_005"
	}
	return ""
}
