package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/daco-workflow/internal/application/validation"
	"github.com/garyjia/daco-workflow/internal/application/workflow"
	"github.com/garyjia/daco-workflow/internal/container"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/daco-workflow/internal/domain/workflow"
)

type apiResponse struct {
	Success bool                    `json:"success"`
	Data    json.RawMessage         `json:"data"`
	Error   string                  `json:"error"`
	Code    string                  `json:"code"`
	Fields  []validation.FieldError `json:"fields"`
}

type testServer struct {
	t      *testing.T
	server *Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := container.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "http.db")
	cfg.Reminder.Enabled = false

	c, err := container.NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background(), false))
	t.Cleanup(func() { c.Close() })

	repos := c.Repositories()
	server := NewServer(DefaultServerConfig(), Deps{
		Engine:       c.WorkflowEngine(),
		AuditLog:     c.Services().AuditLog,
		Revisions:    c.Services().Revisions,
		Applications: repos.Application,
		Ledger:       repos.Ledger,
		Health: func(ctx context.Context) (bool, interface{}) {
			h := c.Health(ctx)
			return h.Overall, h.Components
		},
	}, c.ServiceLogger())

	return &testServer{t: t, server: server}
}

func (s *testServer) do(method, path, userID string, role entity.Role, body string, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
		req.Header.Set(HeaderUserRole, string(role))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.server.Router().ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func (s *testServer) create(content string) *entity.Application {
	s.t.Helper()
	w, resp := s.do(http.MethodPost, "/api/applications", "u-applicant", entity.RoleApplicant, content)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var app entity.Application
	require.NoError(s.t, json.Unmarshal(resp.Data, &app))
	return &app
}

const completeBody = `{"content":{
	"applicant":{"name":"Ada Lovelace","institution":"Analytical Institute","email":"ada@example.org","position":"PI"},
	"representative":{"name":"Charles Babbage","institution":"Analytical Institute","email":"charles@example.org","position":"Director"},
	"collaborators":[],
	"project":{"title":"Somatic variant recurrence","background":"b","aims":"a","methodology":"m","summary":"s"},
	"requested_studies":["PACA-CA"],
	"agreements":["data-access-agreement-v2"]
}}`

func TestHandlers_CreateAndGet(t *testing.T) {
	s := newTestServer(t)
	app := s.create(completeBody)

	assert.Equal(t, domainwf.StateDraft, app.State)
	assert.Equal(t, int64(1), app.Version)

	w, resp := s.do(http.MethodGet, "/api/applications/"+app.ID, "u-applicant", entity.RoleApplicant, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("ETag"))

	var got ApplicationResponse
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, app.ID, got.ID)
	assert.ElementsMatch(t, []domainwf.Trigger{domainwf.TriggerSubmit, domainwf.TriggerEdit, domainwf.TriggerClose}, got.PermittedTriggers)
}

func TestHandlers_MissingIdentity(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(http.MethodGet, "/api/applications", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_actor", resp.Code)

	w, _ = s.do(http.MethodGet, "/api/applications", "u-1", entity.Role("JANITOR"), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlers_SubmitIncompleteReturnsFields(t *testing.T) {
	s := newTestServer(t)
	app := s.create("")

	w, resp := s.do(http.MethodPost, "/api/applications/"+app.ID+"/submit", "u-applicant", entity.RoleApplicant, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "incomplete_application", resp.Code)
	assert.NotEmpty(t, resp.Fields)
}

func TestHandlers_TransitionFlow(t *testing.T) {
	s := newTestServer(t)
	app := s.create(completeBody)
	base := "/api/applications/" + app.ID

	w, resp := s.do(http.MethodPost, base+"/submit", "u-applicant", entity.RoleApplicant, "", "If-Match", `"1"`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "2", w.Header().Get("ETag"))

	var tr TransitionResponse
	require.NoError(t, json.Unmarshal(resp.Data, &tr))
	assert.Equal(t, domainwf.StateInstitutionalRepReview, tr.Application.State)
	assert.Equal(t, domainwf.StateDraft, tr.Action.StateBefore)

	// stale version
	w, resp = s.do(http.MethodPost, base+"/edit", "u-applicant", entity.RoleApplicant, "", "If-Match", "1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "concurrent_modification", resp.Code)

	// not allowed from INSTITUTIONAL_REP_REVIEW
	w, resp = s.do(http.MethodPost, base+"/approve", "u-dac", entity.RoleDAC, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", resp.Code)

	// nothing flagged
	w, resp = s.do(http.MethodPost, base+"/revision-requests", "u-rep", entity.RoleInstitutionalRep,
		`{"comments":"","applicant":{"approved":true},"representative":{"approved":true},"collaborators":{"approved":true},"project":{"approved":true},"requested_studies":{"approved":true}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_revision_request", resp.Code)

	w, _ = s.do(http.MethodGet, base+"/revision-requests/latest", "u-rep", entity.RoleInstitutionalRep, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = s.do(http.MethodPost, base+"/revision-requests", "u-rep", entity.RoleInstitutionalRep,
		`{"comments":"fix the aims","applicant":{"approved":true},"representative":{"approved":true},"collaborators":{"approved":true},"project":{"approved":false,"notes":"too vague"},"requested_studies":{"approved":true}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(resp.Data, &tr))
	assert.Equal(t, domainwf.StateRepRevision, tr.Application.State)
	require.NotNil(t, tr.RevisionRequest)
	assert.Equal(t, []string{entity.SectionProject}, tr.RevisionRequest.SectionsNeedingWork())

	w, resp = s.do(http.MethodGet, base+"/revision-requests/latest", "u-rep", entity.RoleInstitutionalRep, "")
	require.Equal(t, http.StatusOK, w.Code)
	var rr entity.RevisionRequest
	require.NoError(t, json.Unmarshal(resp.Data, &rr))
	assert.Equal(t, tr.RevisionRequest.ID, rr.ID)

	w, resp = s.do(http.MethodGet, base+"/actions?sort=desc&pageSize=1", "u-rep", entity.RoleInstitutionalRep, "")
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Items []*entity.ApplicationAction `json:"items"`
		Total int                         `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domainwf.StateRepRevision, page.Items[0].StateAfter)

	w, resp = s.do(http.MethodGet, "/api/applications?state=REP_REVISION", "u-dac", entity.RoleDAC, "")
	require.Equal(t, http.StatusOK, w.Code)
	var apps []*entity.Application
	require.NoError(t, json.Unmarshal(resp.Data, &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, app.ID, apps[0].ID)

	w, resp = s.do(http.MethodGet, base+"/notifications", "u-dac", entity.RoleDAC, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(resp.Data))
}

func TestHandlers_Export(t *testing.T) {
	s := newTestServer(t)
	app := s.create(completeBody)

	w, _ := s.do(http.MethodGet, "/api/applications/"+app.ID+"/actions/export", "u-dac", entity.RoleDAC, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), app.ID)
	// xlsx files are zip archives
	assert.Equal(t, "PK", w.Body.String()[:2])

	w, resp := s.do(http.MethodGet, "/api/applications/missing/actions/export", "u-dac", entity.RoleDAC, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", resp.Code)
}

func TestHandlers_BadInput(t *testing.T) {
	s := newTestServer(t)
	app := s.create(completeBody)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		header []string
		status int
	}{
		{"unknown application", http.MethodGet, "/api/applications/missing", "", nil, http.StatusNotFound},
		{"unknown state filter", http.MethodGet, "/api/applications?state=PENDING", "", nil, http.StatusBadRequest},
		{"malformed If-Match", http.MethodPost, "/api/applications/" + app.ID + "/close", "", []string{"If-Match", "v1"}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/applications/" + app.ID + "/submit", "{", nil, http.StatusBadRequest},
		{"missing revision body", http.MethodPost, "/api/applications/" + app.ID + "/revision-requests", "", nil, http.StatusBadRequest},
		{"unknown application notifications", http.MethodGet, "/api/applications/missing/notifications", "", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := s.do(tt.method, tt.path, "u-applicant", entity.RoleApplicant, tt.body, tt.header...)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestHandlers_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(http.MethodGet, "/health", "", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), `"reminder":{"healthy":true,"message":"last run: scanned=0`)

	w, _ = s.do(http.MethodGet, "/metrics", "", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: x", domainwf.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{fmt.Errorf("%w: x", domainwf.ErrConcurrentModification), http.StatusConflict, "concurrent_modification"},
		{&validation.Error{Fields: []validation.FieldError{{Field: "project.title", Rule: "required"}}}, http.StatusUnprocessableEntity, "incomplete_application"},
		{fmt.Errorf("%w: x", domainwf.ErrApplicationNotFound), http.StatusNotFound, "not_found"},
		{workflow.ErrInvalidActor, http.StatusBadRequest, "bad_request"},
		{fmt.Errorf("%w: %w", domainwf.ErrPersistence, errors.New("disk full")), http.StatusInternalServerError, "internal_error"},
		{fmt.Errorf("%w: application stored in %q", domainwf.ErrInvalidState, "LIMBO"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestParseIfMatch(t *testing.T) {
	v, err := parseIfMatch(`W/"7"`)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, int64(7), *v)

	v, err = parseIfMatch("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = parseIfMatch("*")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = parseIfMatch("abc")
	assert.Error(t, err)
}
