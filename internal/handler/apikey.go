package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/penshort/teamkeys/internal/apperr"
	"github.com/penshort/teamkeys/internal/audit"
	"github.com/penshort/teamkeys/internal/auth"
	"github.com/penshort/teamkeys/internal/handler/dto"
	"github.com/penshort/teamkeys/internal/middleware"
	"github.com/penshort/teamkeys/internal/model"
	"github.com/penshort/teamkeys/internal/service"
)

// APIKeyService is the business layer behind the API key endpoints.
type APIKeyService interface {
	Create(ctx context.Context, actor service.Actor, in service.CreateInput) (*service.CreateResult, error)
	List(ctx context.Context, actor service.Actor, in service.ListInput, page model.Page) (*service.ListResult, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
}

// APIKeyHandler handles the apiKeys.* RPC endpoints.
type APIKeyHandler struct {
	svc    APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(svc APIKeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		svc:    svc,
		logger: logger.With("component", "handler.apikey"),
	}
}

// Create handles POST /api/apiKeys.create.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	req, ok := middleware.InputFromContext[dto.CreateAPIKeyRequest](r.Context())
	if !ok {
		h.writeError(w, r, apperr.Validation("Invalid request", nil))
		return
	}

	res, err := h.svc.Create(r.Context(), actor, service.CreateInput{
		Name:      req.Name,
		ExpiresAt: req.ExpiresAt,
		Scope:     req.Scope,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	presented := dto.PresentAPIKey(res.Key)
	presented.Value = res.Secret
	writeJSON(w, http.StatusOK, dto.DataResponse[dto.APIKey]{Data: presented})
}

// List handles POST /api/apiKeys.list.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	req, ok := middleware.InputFromContext[dto.ListAPIKeysRequest](r.Context())
	if !ok {
		req = &dto.ListAPIKeysRequest{}
	}
	page := middleware.PageFromContext(r.Context())

	res, err := h.svc.List(r.Context(), actor, service.ListInput{UserID: req.UserID}, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[dto.APIKey]{
		Pagination: dto.NewPagination(r.URL.Path, page, res.Total),
		Data:       dto.PresentAPIKeys(res.Keys),
	})
}

// Delete handles POST /api/apiKeys.delete.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	req, ok := middleware.InputFromContext[dto.DeleteAPIKeyRequest](r.Context())
	if !ok {
		h.writeError(w, r, apperr.Validation("Invalid request", nil))
		return
	}

	if err := h.svc.Delete(r.Context(), actor, req.ID); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

// actor builds the service actor from the authenticated request.
func (h *APIKeyHandler) actor(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil || authCtx.User == nil {
		h.writeError(w, r, apperr.Unauthenticated("Authentication required"))
		return service.Actor{}, false
	}
	return service.Actor{
		User: authCtx.User,
		Source: audit.Source{
			RequestID: middleware.GetRequestID(r.Context()),
			IP:        middleware.ClientIP(r),
			AuthType:  authCtx.Type,
		},
	}, true
}

func (h *APIKeyHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.Write(w, err)
	if e.Kind == apperr.KindInternal {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}
