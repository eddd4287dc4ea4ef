package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/daco-workflow/internal/application/service"
	"github.com/garyjia/daco-workflow/internal/application/validation"
	"github.com/garyjia/daco-workflow/internal/application/workflow"
	"github.com/garyjia/daco-workflow/internal/domain/entity"
	domainwf "github.com/garyjia/daco-workflow/internal/domain/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Deps
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Deps, logger Logger) *Handlers {
	return &Handlers{
		deps:   deps,
		logger: logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool                    `json:"success"`
	Data    interface{}             `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Code    string                  `json:"code,omitempty"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// ApplicationResponse is an application with the triggers its state accepts
type ApplicationResponse struct {
	*entity.Application
	PermittedTriggers []domainwf.Trigger `json:"permitted_triggers"`
}

// TransitionResponse is the outcome of an accepted transition
type TransitionResponse struct {
	Application     *entity.Application       `json:"application"`
	Action          *entity.ApplicationAction `json:"action"`
	RevisionRequest *entity.RevisionRequest   `json:"revision_request,omitempty"`
}

// CreateApplicationRequest is the body of POST /api/applications
type CreateApplicationRequest struct {
	Content entity.ApplicationContent `json:"content"`
}

// ContentRequest is the optional body of submit and edit
type ContentRequest struct {
	Content *entity.ApplicationContent `json:"content"`
}

// ListActionsRequest represents query parameters for listing history
type ListActionsRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
	Sort     string `form:"sort"`
	UserID   string `form:"userId"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy := true
	var components interface{}
	if h.deps.Health != nil {
		healthy, components = h.deps.Health(c.Request.Context())
	}

	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, Response{
		Success: healthy,
		Data:    response,
	})
}

// CreateApplication handles POST /api/applications
func (h *Handlers) CreateApplication(c *gin.Context) {
	var req CreateApplicationRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	app, err := h.deps.Engine.Create(c.Request.Context(), actorFrom(c), req.Content)
	if err != nil {
		h.writeError(c, "Failed to create application", err)
		return
	}

	c.Header("ETag", strconv.FormatInt(app.Version, 10))
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    app,
	})
}

// ListApplications handles GET /api/applications?state=...
func (h *Handlers) ListApplications(c *gin.Context) {
	states := domainwf.AllStates
	if raw := c.QueryArray("state"); len(raw) > 0 {
		states = make([]domainwf.State, 0, len(raw))
		for _, r := range raw {
			s, err := domainwf.ParseState(r)
			if err != nil {
				h.badRequest(c, "invalid state filter", err)
				return
			}
			states = append(states, s)
		}
	}

	apps, err := h.deps.Applications.ListByStates(c.Request.Context(), states)
	if err != nil {
		h.writeError(c, "Failed to list applications", fmt.Errorf("%w: %w", domainwf.ErrPersistence, err))
		return
	}
	if apps == nil {
		apps = []*entity.Application{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    apps,
	})
}

// GetApplication handles GET /api/applications/:id
func (h *Handlers) GetApplication(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	app, err := h.deps.Engine.GetApplication(ctx, id)
	if err != nil {
		h.writeError(c, "Failed to get application", err)
		return
	}

	triggers := domainwf.NewStateMachine(app.State).PermittedTriggers()

	c.Header("ETag", strconv.FormatInt(app.Version, 10))
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    ApplicationResponse{Application: app, PermittedTriggers: triggers},
	})
}

// Submit handles POST /api/applications/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	var req ContentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}
	h.transition(c, domainwf.TriggerSubmit, workflow.EventInput{Content: req.Content})
}

// Edit handles POST /api/applications/:id/edit
func (h *Handlers) Edit(c *gin.Context) {
	var req ContentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}
	h.transition(c, domainwf.TriggerEdit, workflow.EventInput{Content: req.Content})
}

// Close handles POST /api/applications/:id/close
func (h *Handlers) Close(c *gin.Context) {
	h.transition(c, domainwf.TriggerClose, workflow.EventInput{})
}

// RequestRevision handles POST /api/applications/:id/revision-requests
func (h *Handlers) RequestRevision(c *gin.Context) {
	var input service.RevisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "invalid revision request body", err)
		return
	}
	h.transition(c, domainwf.TriggerRevisionRequest, workflow.EventInput{Revision: &input})
}

// Approve handles POST /api/applications/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	h.transition(c, domainwf.TriggerApprove, workflow.EventInput{})
}

// Reject handles POST /api/applications/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	h.transition(c, domainwf.TriggerReject, workflow.EventInput{})
}

// Revoke handles POST /api/applications/:id/revoke
func (h *Handlers) Revoke(c *gin.Context) {
	h.transition(c, domainwf.TriggerRevoked, workflow.EventInput{})
}

func (h *Handlers) transition(c *gin.Context, trigger domainwf.Trigger, input workflow.EventInput) {
	expected, err := parseIfMatch(c.GetHeader("If-Match"))
	if err != nil {
		h.badRequest(c, "invalid If-Match header", err)
		return
	}

	req := workflow.TransitionRequest{
		ApplicationID:   c.Param("id"),
		Actor:           actorFrom(c),
		ExpectedVersion: expected,
	}

	result, err := h.deps.Engine.ApplyEvent(c.Request.Context(), req, trigger, input)
	if err != nil {
		h.writeError(c, "Transition refused", err, "trigger", trigger, "application_id", req.ApplicationID)
		return
	}

	h.logger.Info("Transition applied",
		"application_id", req.ApplicationID,
		"trigger", trigger,
		"state", result.Application.State)

	c.Header("ETag", strconv.FormatInt(result.Application.Version, 10))
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: TransitionResponse{
			Application:     result.Application,
			Action:          result.Action,
			RevisionRequest: result.RevisionRequest,
		},
	})
}

// ListActions handles GET /api/applications/:id/actions
func (h *Handlers) ListActions(c *gin.Context) {
	var req ListActionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}

	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.deps.Engine.GetApplication(ctx, id); err != nil {
		h.writeError(c, "Failed to get application", err)
		return
	}

	page, err := h.deps.AuditLog.ListByApplication(ctx, id, service.ActionQuery{
		UserID:   req.UserID,
		Page:     req.Page,
		PageSize: req.PageSize,
		Sort:     service.SortOrder(strings.ToLower(req.Sort)),
	})
	if err != nil {
		h.writeError(c, "Failed to list actions", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    page,
	})
}

// ExportActions handles GET /api/applications/:id/actions/export
func (h *Handlers) ExportActions(c *gin.Context) {
	id := c.Param("id")

	var buf bytes.Buffer
	if err := h.deps.AuditLog.ExportHistory(c.Request.Context(), id, &buf); err != nil {
		h.writeError(c, "Failed to export history", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="history-%s.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ListRevisionRequests handles GET /api/applications/:id/revision-requests
func (h *Handlers) ListRevisionRequests(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.deps.Engine.GetApplication(ctx, id); err != nil {
		h.writeError(c, "Failed to get application", err)
		return
	}

	requests, err := h.deps.Revisions.ListFor(ctx, id)
	if err != nil {
		h.writeError(c, "Failed to list revision requests", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    requests,
	})
}

// LatestRevisionRequest handles GET /api/applications/:id/revision-requests/latest
func (h *Handlers) LatestRevisionRequest(c *gin.Context) {
	id := c.Param("id")

	rr, err := h.deps.Revisions.LatestFor(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to get revision request", err)
		return
	}
	if rr == nil {
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "no revision request for application",
			Code:    "not_found",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    rr,
	})
}

// ListNotifications handles GET /api/applications/:id/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.deps.Engine.GetApplication(ctx, id); err != nil {
		h.writeError(c, "Failed to get application", err)
		return
	}

	entries, err := h.deps.Ledger.ListByApplication(ctx, id)
	if err != nil {
		h.writeError(c, "Failed to list notifications", fmt.Errorf("%w: %w", domainwf.ErrPersistence, err))
		return
	}
	if entries == nil {
		entries = []*entity.NotificationLedgerEntry{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entries,
	})
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
		Code:    "bad_request",
	})
}

// writeError maps workflow errors onto status codes
func (h *Handlers) writeError(c *gin.Context, msg string, err error, keysAndValues ...interface{}) {
	status, code := statusFor(err)
	resp := Response{
		Success: false,
		Error:   err.Error(),
		Code:    code,
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, append(keysAndValues, "error", err)...)
		resp.Error = msg
	} else {
		h.logger.Info(msg, append(keysAndValues, "error", err)...)
	}

	c.JSON(status, resp)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domainwf.ErrConcurrentModification):
		return http.StatusConflict, "concurrent_modification"
	case errors.Is(err, domainwf.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domainwf.ErrIncompleteApplication):
		return http.StatusUnprocessableEntity, "incomplete_application"
	case errors.Is(err, domainwf.ErrApplicationNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domainwf.ErrInvalidRevisionRequest):
		return http.StatusBadRequest, "invalid_revision_request"
	case errors.Is(err, domainwf.ErrInvalidTrigger),
		errors.Is(err, workflow.ErrInvalidActor):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// bindOptionalJSON decodes the body when one is present
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// parseIfMatch reads the expected version from an If-Match header such as `"3"` or `3`
func parseIfMatch(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "*" {
		return nil, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	raw = strings.Trim(raw, `"`)

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func actorFrom(c *gin.Context) entity.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(entity.Actor); ok {
			return actor
		}
	}
	return entity.Actor{}
}
