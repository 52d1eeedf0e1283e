package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ritahq/rita/internal/audit"
)

// AuditReader is the read surface of the audit trail.
type AuditReader interface {
	ListByOrganization(ctx context.Context, orgID string, limit, offset int) ([]*audit.Entry, error)
}

// auditHandler exposes the organization audit trail to owners.
type auditHandler struct {
	audits AuditReader
}

func newAuditHandler(audits AuditReader) *auditHandler {
	return &auditHandler{audits: audits}
}

// ListAuditLogs handles GET /organizations/{orgID}/audit-logs.
func (h *auditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = l
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		o, err := strconv.Atoi(offsetStr)
		if err != nil || o < 0 {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be a non-negative integer")
			return
		}
		offset = o
	}

	entries, err := h.audits.ListByOrganization(r.Context(), orgID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list audit logs")
		return
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}
