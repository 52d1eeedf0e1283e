package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ritahq/rita/internal/auth"
	"github.com/ritahq/rita/internal/member"
	"github.com/ritahq/rita/internal/metrics"
)

// MemberService is the membership surface the handlers depend on.
type MemberService interface {
	List(ctx context.Context, orgID string, p member.ListParams) ([]*member.Member, int, error)
	Get(ctx context.Context, orgID, userID string) (*member.Member, error)
	UpdateRole(ctx context.Context, orgID, userID string, newRole member.Role, performedBy string) (*member.Member, error)
	UpdateStatus(ctx context.Context, orgID, userID string, isActive bool, performedBy string) (*member.Member, error)
	Remove(ctx context.Context, orgID, userID, performedBy string) (*member.RemovedMember, error)
	HardDelete(ctx context.Context, orgID, userID, performedBy string) error
	DeleteSelf(ctx context.Context, orgID, userID string) error
}

// memberHandler groups organization-member HTTP handlers.
type memberHandler struct {
	members MemberService
	metrics *metrics.Metrics
}

func newMemberHandler(members MemberService, m *metrics.Metrics) *memberHandler {
	return &memberHandler{members: members, metrics: m}
}

func (h *memberHandler) record(action, outcome string) {
	if h.metrics != nil {
		h.metrics.MemberMutationsTotal.WithLabelValues(action, outcome).Inc()
	}
}

// ListMembers handles GET /organizations/{orgID}/members.
func (h *memberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	params := member.ListParams{
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
	}

	if roleStr := r.URL.Query().Get("role"); roleStr != "" {
		role, ok := member.ParseRole(roleStr)
		if !ok {
			writeError(w, http.StatusBadRequest, "INVALID_ROLE", "role must be owner, admin or user")
			return
		}
		params.Role = &role
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		params.Limit = l
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		o, err := strconv.Atoi(offsetStr)
		if err != nil || o < 0 {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be a non-negative integer")
			return
		}
		params.Offset = o
	}

	members, total, err := h.members.List(r.Context(), orgID, params)
	if err != nil {
		writeMemberError(w, r, err)
		return
	}
	if members == nil {
		members = []*member.Member{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"members": members,
		"total":   total,
	})
}

// GetMember handles GET /organizations/{orgID}/members/{userID}.
func (h *memberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")
	userID := chi.URLParam(r, "userID")

	m, err := h.members.Get(r.Context(), orgID, userID)
	if err != nil {
		writeMemberError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"member": m,
	})
}

// UpdateRole handles PATCH /organizations/{orgID}/members/{userID}/role.
// Route middleware restricts this to owners.
func (h *memberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	orgID := chi.URLParam(r, "orgID")
	userID := chi.URLParam(r, "userID")

	var req struct {
		Role string `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	role, ok := member.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_ROLE", "role must be owner, admin or user")
		return
	}

	m, err := h.members.UpdateRole(r.Context(), orgID, userID, role, u.ID)
	if err != nil {
		h.record("update_role", "rejected")
		writeMemberError(w, r, err)
		return
	}
	h.record("update_role", "success")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"member":  m,
	})
}

// UpdateStatus handles PATCH /organizations/{orgID}/members/{userID}/status.
func (h *memberHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	orgID := chi.URLParam(r, "orgID")
	userID := chi.URLParam(r, "userID")

	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "INVALID_STATUS", "is_active must be a boolean")
		return
	}

	m, err := h.members.UpdateStatus(r.Context(), orgID, userID, *req.IsActive, u.ID)
	if err != nil {
		h.record("update_status", "rejected")
		writeMemberError(w, r, err)
		return
	}
	h.record("update_status", "success")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"member":  m,
	})
}

// RemoveMember handles DELETE /organizations/{orgID}/members/{userID}.
func (h *memberHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	orgID := chi.URLParam(r, "orgID")
	userID := chi.URLParam(r, "userID")

	removed, err := h.members.Remove(r.Context(), orgID, userID, u.ID)
	if err != nil {
		h.record("remove_member", "rejected")
		writeMemberError(w, r, err)
		return
	}
	h.record("remove_member", "success")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        "member removed from organization",
		"removed_member": removed,
	})
}

// HardDeleteMember handles DELETE /organizations/{orgID}/members/{userID}/permanent.
// Deferred: always responds 501.
func (h *memberHandler) HardDeleteMember(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	orgID := chi.URLParam(r, "orgID")
	userID := chi.URLParam(r, "userID")

	if err := h.members.HardDelete(r.Context(), orgID, userID, u.ID); err != nil {
		writeMemberError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSelfPermanent handles DELETE /organizations/{orgID}/members/self/permanent.
// Deferred: always responds 501.
func (h *memberHandler) DeleteSelfPermanent(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	orgID := chi.URLParam(r, "orgID")

	if err := h.members.DeleteSelf(r.Context(), orgID, u.ID); err != nil {
		writeMemberError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
