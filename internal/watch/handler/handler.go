// Package handler exposes the domain tracking endpoints. Handlers validate
// input, delegate to the service, and translate results to JSON; no business
// logic lives here.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"domainwatch/internal/watch/models"
	id "domainwatch/pkg/domain"
	"domainwatch/pkg/platform/httputil"
	"domainwatch/pkg/platform/middleware/identity"
	"domainwatch/pkg/requestcontext"
)

// Service defines the domain tracking operations the handler needs.
type Service interface {
	AddDomains(ctx context.Context, userID id.UserID, raws []string) (*models.AddResult, error)
	ListDomains(ctx context.Context, userID id.UserID) ([]*models.DomainRecord, error)
	RemoveDomain(ctx context.Context, userID id.UserID, domainID id.DomainID) error
	Refresh(ctx context.Context, userID id.UserID, domainID id.DomainID, force bool) (*models.RefreshResult, error)
}

// AddDomainsRequest is the batch add payload.
type AddDomainsRequest struct {
	Domains []string `json:"domains"`
}

// ListDomainsResponse wraps the list so the payload stays extensible.
type ListDomainsResponse struct {
	Domains []*models.DomainRecord `json:"domains"`
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register mounts the domain routes. Every route requires a caller identity.
func (h *Handler) Register(r chi.Router) {
	r.Route("/domains", func(r chi.Router) {
		r.Use(identity.RequireUser)
		r.Post("/", h.handleAddDomains)
		r.Get("/", h.handleListDomains)
		r.Delete("/{domainID}", h.handleRemoveDomain)
		r.Post("/{domainID}/refresh", h.handleRefresh)
	})
}

func (h *Handler) handleAddDomains(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	req, ok := httputil.Decode[AddDomainsRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.AddDomains(ctx, userID, req.Domains)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListDomains(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.service.ListDomains(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "list domains failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []*models.DomainRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, ListDomainsResponse{Domains: records})
}

func (h *Handler) handleRemoveDomain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domainID, err := id.ParseDomainID(chi.URLParam(r, "domainID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RemoveDomain(ctx, requestcontext.UserID(ctx), domainID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefresh runs a registry refresh. Cooldown is reported as 429 with the
// remaining window, not as an error; an upstream failure keeps the stale
// record in the body so the caller can keep rendering it.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	domainID, err := id.ParseDomainID(chi.URLParam(r, "domainID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	force := r.URL.Query().Get("force") == "true"

	result, err := h.service.Refresh(ctx, requestcontext.UserID(ctx), domainID, force)
	switch {
	case err != nil && result != nil:
		httputil.WriteJSON(w, httputil.StatusOf(err), result)
	case err != nil:
		httputil.WriteError(w, err)
	case result.OnCooldown:
		httputil.WriteJSON(w, http.StatusTooManyRequests, result)
	default:
		httputil.WriteJSON(w, http.StatusOK, result)
	}
}
