package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ritahq/rita/internal/auth"
	"github.com/ritahq/rita/internal/member"
	"github.com/ritahq/rita/internal/notify"
	"github.com/ritahq/rita/internal/passreset"
	"github.com/ritahq/rita/internal/user"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeSessions maps bearer tokens to users.
type fakeSessions struct {
	users map[string]*auth.User
}

func (f *fakeSessions) LookupSession(_ context.Context, token string) (*auth.User, error) {
	u, ok := f.users[token]
	if !ok {
		return nil, errors.New("unknown session")
	}
	return u, nil
}

// fakeMemberships maps orgID+userID to membership rows.
type fakeMemberships struct {
	rows map[string]*member.Membership
}

func (f *fakeMemberships) GetMembership(_ context.Context, orgID, userID string) (*member.Membership, error) {
	m, ok := f.rows[orgID+"/"+userID]
	if !ok {
		return nil, member.ErrMemberNotFound
	}
	return m, nil
}

// fakeMemberService returns canned results per method.
type fakeMemberService struct {
	listMembers  []*member.Member
	listTotal    int
	getMember    *member.Member
	updated      *member.Member
	removed      *member.RemovedMember
	err          error
	lastUserID   string
	lastNewRole  member.Role
	lastIsActive bool
}

func (f *fakeMemberService) List(_ context.Context, _ string, _ member.ListParams) ([]*member.Member, int, error) {
	return f.listMembers, f.listTotal, f.err
}

func (f *fakeMemberService) Get(_ context.Context, _, _ string) (*member.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.getMember, nil
}

func (f *fakeMemberService) UpdateRole(_ context.Context, _, userID string, newRole member.Role, _ string) (*member.Member, error) {
	f.lastUserID, f.lastNewRole = userID, newRole
	if f.err != nil {
		return nil, f.err
	}
	return f.updated, nil
}

func (f *fakeMemberService) UpdateStatus(_ context.Context, _, userID string, isActive bool, _ string) (*member.Member, error) {
	f.lastUserID, f.lastIsActive = userID, isActive
	if f.err != nil {
		return nil, f.err
	}
	return f.updated, nil
}

func (f *fakeMemberService) Remove(_ context.Context, _, userID, _ string) (*member.RemovedMember, error) {
	f.lastUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.removed, nil
}

func (f *fakeMemberService) HardDelete(_ context.Context, _, _, _ string) error {
	return member.ErrNotImplemented
}

func (f *fakeMemberService) DeleteSelf(_ context.Context, _, _ string) error {
	return member.ErrNotImplemented
}

// fakeResetService drives the password-reset handlers.
type fakeResetService struct {
	requestErr  error
	verifyEmail string
	verifyErr   error
	resetResult *passreset.ResetResult
	resetErr    error
	deleted     []string
}

func (f *fakeResetService) RequestReset(_ context.Context, in passreset.RequestResetInput) (*passreset.ResetRequest, error) {
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &passreset.ResetRequest{
		Token:     strings.Repeat("ab", 32),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (f *fakeResetService) VerifyToken(_ context.Context, _ string) (string, error) {
	return f.verifyEmail, f.verifyErr
}

func (f *fakeResetService) ResetPassword(_ context.Context, _ passreset.ResetPasswordInput) (*passreset.ResetResult, error) {
	if f.resetErr != nil {
		return nil, f.resetErr
	}
	return f.resetResult, nil
}

func (f *fakeResetService) DeleteToken(_ context.Context, token string) error {
	f.deleted = append(f.deleted, token)
	return nil
}

// fakeCredentials backs login and credential updates.
type fakeCredentials struct {
	updatedEmail    string
	updatedPassword string
	updateErr       error
}

func (f *fakeCredentials) GetByID(_ context.Context, id string) (*user.Profile, error) {
	orgID := "org-1"
	return &user.Profile{ID: id, Email: "member@x.dev", ActiveOrganizationID: &orgID}, nil
}

func (f *fakeCredentials) GetByEmail(_ context.Context, _ string) (*user.Profile, error) {
	return nil, user.ErrNotFound
}

func (f *fakeCredentials) UpdatePasswordByEmail(_ context.Context, email, password string) error {
	f.updatedEmail, f.updatedPassword = email, password
	return f.updateErr
}

func (f *fakeCredentials) CreateSession(_ context.Context, _ string) (string, *user.Session, error) {
	return "", nil, errors.New("not supported")
}

func (f *fakeCredentials) DeleteSession(_ context.Context, _ string) error { return nil }

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, email, _ string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

type testEnv struct {
	members *fakeMemberService
	resets  *fakeResetService
	users   *fakeCredentials
	mailer  *fakeMailer
	handler http.Handler
}

// newTestEnv builds a router over fakes. Tokens "owner-token", "admin-token"
// and "user-token" map to members of org-1 with the matching role;
// "outsider-token" maps to a user with no membership.
func newTestEnv() *testEnv {
	sessions := &fakeSessions{users: map[string]*auth.User{
		"owner-token":    {ID: "owner-1", Email: "owner@x.dev"},
		"admin-token":    {ID: "admin-1", Email: "admin@x.dev"},
		"user-token":     {ID: "user-1", Email: "user@x.dev"},
		"inactive-token": {ID: "inactive-1", Email: "inactive@x.dev"},
		"outsider-token": {ID: "outsider-1", Email: "out@x.dev"},
	}}

	memberships := &fakeMemberships{rows: map[string]*member.Membership{
		"org-1/owner-1":    {OrganizationID: "org-1", UserID: "owner-1", Role: member.RoleOwner, IsActive: true},
		"org-1/admin-1":    {OrganizationID: "org-1", UserID: "admin-1", Role: member.RoleAdmin, IsActive: true},
		"org-1/user-1":     {OrganizationID: "org-1", UserID: "user-1", Role: member.RoleUser, IsActive: true},
		"org-1/inactive-1": {OrganizationID: "org-1", UserID: "inactive-1", Role: member.RoleAdmin, IsActive: false},
	}}

	env := &testEnv{
		members: &fakeMemberService{},
		resets:  &fakeResetService{},
		users:   &fakeCredentials{},
		mailer:  &fakeMailer{},
	}
	env.handler = NewRouter(RouterDeps{
		Members:        env.members,
		Memberships:    memberships,
		Resets:         env.resets,
		Users:          env.users,
		Sessions:       sessions,
		Hub:            notify.NewHub(),
		Mailer:         env.mailer,
		AllowedOrigins: []string{"*"},
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error.Code
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	env := newTestEnv()
	handler := NewRouter(RouterDeps{
		Members:     env.members,
		Memberships: &fakeMemberships{},
		Resets:      env.resets,
		Users:       env.users,
		Sessions:    &fakeSessions{},
		Hub:         notify.NewHub(),
		Mailer:      env.mailer,
		DB:          &fakePinger{err: errors.New("connection refused")},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["database"] != "unreachable" {
		t.Errorf("expected database=unreachable, got %q", body["database"])
	}
}

// ---------------------------------------------------------------------------
// Authentication and route gating
// ---------------------------------------------------------------------------

func TestMe_ReturnsCurrentProfile(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/v1/auth/me", "owner-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body struct {
		ID                   string  `json:"id"`
		ActiveOrganizationID *string `json:"active_organization_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.ID != "owner-1" {
		t.Errorf("expected id owner-1, got %q", body.ID)
	}
	if body.ActiveOrganizationID == nil || *body.ActiveOrganizationID != "org-1" {
		t.Errorf("expected active_organization_id org-1, got %v", body.ActiveOrganizationID)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without a session, got %d", rec.Code)
	}
}

func TestMemberRoutes_RequireSession(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/api/v1/organizations/org-1/members", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/organizations/org-1/members", "bogus-token", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for unknown token, got %d", rec.Code)
	}
}

func TestMemberRoutes_RoleGating(t *testing.T) {
	env := newTestEnv()
	env.members.updated = &member.Member{UserID: "user-1", Role: member.RoleAdmin}

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		wantStatus int
	}{
		{"plain user cannot list", http.MethodGet, "/api/v1/organizations/org-1/members", "user-token", "", http.StatusForbidden},
		{"admin can list", http.MethodGet, "/api/v1/organizations/org-1/members", "admin-token", "", http.StatusOK},
		{"owner can list", http.MethodGet, "/api/v1/organizations/org-1/members", "owner-token", "", http.StatusOK},
		{"admin cannot change roles", http.MethodPatch, "/api/v1/organizations/org-1/members/user-1/role", "admin-token", `{"role":"admin"}`, http.StatusForbidden},
		{"owner can change roles", http.MethodPatch, "/api/v1/organizations/org-1/members/user-1/role", "owner-token", `{"role":"admin"}`, http.StatusOK},
		{"deactivated member is locked out", http.MethodGet, "/api/v1/organizations/org-1/members", "inactive-token", "", http.StatusForbidden},
		{"non-member is locked out", http.MethodGet, "/api/v1/organizations/org-1/members", "outsider-token", "", http.StatusForbidden},
		{"admin cannot read audit logs", http.MethodGet, "/api/v1/organizations/org-1/audit-logs", "admin-token", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d (body %s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Member error mapping
// ---------------------------------------------------------------------------

func TestMemberErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"self modification", member.ErrCannotModifySelf, http.StatusBadRequest, "CANNOT_MODIFY_SELF"},
		{"not found", member.ErrMemberNotFound, http.StatusNotFound, "MEMBER_NOT_FOUND"},
		{"permission denied", member.ErrPermissionDenied, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
		{"last owner", member.ErrLastOwner, http.StatusConflict, "LAST_OWNER"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.members.err = tt.err

			rec := env.do(t, http.MethodPatch, "/api/v1/organizations/org-1/members/user-1/role", "owner-token", `{"role":"admin"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
		})
	}
}

func TestRemoveSelfMapping(t *testing.T) {
	env := newTestEnv()
	env.members.err = member.ErrCannotRemoveSelf

	rec := env.do(t, http.MethodDelete, "/api/v1/organizations/org-1/members/owner-1", "owner-token", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "CANNOT_REMOVE_SELF" {
		t.Errorf("expected code CANNOT_REMOVE_SELF, got %s", code)
	}
}

func TestInvalidRoleBody(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPatch, "/api/v1/organizations/org-1/members/user-1/role", "owner-token", `{"role":"superadmin"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_ROLE" {
		t.Errorf("expected code INVALID_ROLE, got %s", code)
	}
}

func TestUpdateStatus_MissingFlag(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPatch, "/api/v1/organizations/org-1/members/user-1/status", "admin-token", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_STATUS" {
		t.Errorf("expected code INVALID_STATUS, got %s", code)
	}
}

func TestRemoveMember_Response(t *testing.T) {
	env := newTestEnv()
	env.members.removed = &member.RemovedMember{UserID: "user-1", Email: "user@x.dev", Role: member.RoleUser}

	rec := env.do(t, http.MethodDelete, "/api/v1/organizations/org-1/members/user-1", "admin-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Success       bool `json:"success"`
		RemovedMember struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"removed_member"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Success {
		t.Error("expected success=true")
	}
	if body.RemovedMember.ID != "user-1" || body.RemovedMember.Email != "user@x.dev" {
		t.Errorf("unexpected removed_member: %+v", body.RemovedMember)
	}
}

func TestPermanentDeletion_NotImplemented(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodDelete, "/api/v1/organizations/org-1/members/user-1/permanent", "owner-token", "")
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected status 501, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "NOT_IMPLEMENTED" {
		t.Errorf("expected code NOT_IMPLEMENTED, got %s", code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/organizations/org-1/members/self/permanent", "user-token", "")
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected status 501 for self deletion, got %d", rec.Code)
	}

	// Self deletion is gated on the session alone; a deactivated member or a
	// user with no membership still reaches the placeholder.
	for _, token := range []string{"inactive-token", "outsider-token"} {
		rec = env.do(t, http.MethodDelete, "/api/v1/organizations/org-1/members/self/permanent", token, "")
		if rec.Code != http.StatusNotImplemented {
			t.Errorf("%s: expected status 501 for self deletion, got %d", token, rec.Code)
		}
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/organizations/org-1/members/self/permanent", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without a session, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Password reset flow
// ---------------------------------------------------------------------------

func TestForgotPassword_GenericResponse(t *testing.T) {
	// Known and unknown emails produce byte-identical responses.
	known := newTestEnv()
	recKnown := known.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", `{"email":"a@x.dev"}`)

	unknown := newTestEnv()
	unknown.resets.requestErr = passreset.ErrUserNotFound
	recUnknown := unknown.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", `{"email":"ghost@x.dev"}`)

	if recKnown.Code != http.StatusOK || recUnknown.Code != http.StatusOK {
		t.Fatalf("expected 200 for both, got %d and %d", recKnown.Code, recUnknown.Code)
	}
	if recKnown.Body.String() != recUnknown.Body.String() {
		t.Errorf("responses differ between known and unknown email:\n%s\n%s",
			recKnown.Body.String(), recUnknown.Body.String())
	}

	if len(known.mailer.sent) != 1 {
		t.Errorf("expected one mail for the known email, got %d", len(known.mailer.sent))
	}
	if len(unknown.mailer.sent) != 0 {
		t.Errorf("no mail should be sent for an unknown email, got %d", len(unknown.mailer.sent))
	}
}

func TestForgotPassword_MailFailureRollsBackToken(t *testing.T) {
	env := newTestEnv()
	env.mailer.err = errors.New("smtp down")

	rec := env.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", `{"email":"a@x.dev"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 despite delivery failure, got %d", rec.Code)
	}
	if len(env.resets.deleted) != 1 {
		t.Fatalf("expected the undeliverable token to be deleted, got %d deletions", len(env.resets.deleted))
	}
}

func TestVerifyResetToken(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		err       error
		wantValid bool
		wantCode  string
	}{
		{"valid", "a@x.dev", nil, true, ""},
		{"invalid", "", passreset.ErrInvalidToken, false, "PWD_RESET_001"},
		{"already used", "", passreset.ErrTokenAlreadyUsed, false, "PWD_RESET_002"},
		{"expired", "", passreset.ErrTokenExpired, false, "PWD_RESET_003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.resets.verifyEmail = tt.email
			env.resets.verifyErr = tt.err

			body := fmt.Sprintf(`{"token":"%s"}`, strings.Repeat("ab", 32))
			rec := env.do(t, http.MethodPost, "/api/v1/auth/verify-reset-token", "", body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}

			var resp struct {
				Valid bool   `json:"valid"`
				Code  string `json:"code"`
				Email string `json:"email"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Valid != tt.wantValid {
				t.Errorf("expected valid=%v, got %v", tt.wantValid, resp.Valid)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
			if tt.wantValid && resp.Email != tt.email {
				t.Errorf("expected email %q, got %q", tt.email, resp.Email)
			}
		})
	}
}

func TestResetPassword_Success(t *testing.T) {
	env := newTestEnv()
	env.resets.resetResult = &passreset.ResetResult{TokenID: "tok-1", Email: "a@x.dev"}

	body := fmt.Sprintf(`{"token":"%s","new_password":"Str0ngPass"}`, strings.Repeat("ab", 32))
	rec := env.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (body %s)", rec.Code, rec.Body.String())
	}

	if env.users.updatedEmail != "a@x.dev" {
		t.Errorf("expected credential update for a@x.dev, got %q", env.users.updatedEmail)
	}
	if env.users.updatedPassword != "Str0ngPass" {
		t.Errorf("expected the new password to be applied, got %q", env.users.updatedPassword)
	}
}

func TestResetPassword_Failures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"weak password", passreset.ErrWeakPassword, "PWD_RESET_005"},
		{"invalid token", passreset.ErrInvalidToken, "PWD_RESET_001"},
		{"already used", passreset.ErrTokenAlreadyUsed, "PWD_RESET_002"},
		{"expired", passreset.ErrTokenExpired, "PWD_RESET_003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.resets.resetErr = tt.err

			body := fmt.Sprintf(`{"token":"%s","new_password":"x"}`, strings.Repeat("ab", 32))
			rec := env.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}

			if env.users.updatedEmail != "" {
				t.Error("credential must not change on a failed reset")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/health", "", "")
	if id := rec.Header().Get("X-Request-ID"); len(id) != 32 {
		t.Errorf("expected a generated 32-char request id, got %q", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	rec2 := httptest.NewRecorder()
	env.handler.ServeHTTP(rec2, req)
	if id := rec2.Header().Get("X-Request-ID"); id != "client-supplied" {
		t.Errorf("expected the client request id to be echoed, got %q", id)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard allow-origin, got %q", got)
	}
}
