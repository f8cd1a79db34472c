package transport

import (
	"net/http"

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/catalog"
	"catalog-admin/internal/listing"
	"catalog-admin/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SearchRequest represents a typed search
type SearchRequest struct {
	Search string `json:"search" validate:"max=200"`
	// Immediate applies the text without waiting for the debounce
	Immediate bool `json:"immediate"`
}

// SortRequest represents a click on a column header
type SortRequest struct {
	Field string `json:"field" validate:"required"`
}

// DeleteResponse represents the outcome of a delete
type DeleteResponse struct {
	Notice catalog.Notice `json:"notice"`
	View   listing.View   `json:"view"`
}

// APIHandler exposes the list controller of a session as JSON, for
// scripts and a richer front end
type APIHandler struct {
	workspaces *Workspaces
	cookie     middleware.SessionCookie
	logger     *zap.Logger
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(workspaces *Workspaces, cookie middleware.SessionCookie, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		workspaces: workspaces,
		cookie:     cookie,
		logger:     logger,
	}
}

// RegisterRoutes registers the API under /api. The middlewares wrap the
// whole subtree, preflight requests included.
func (h *APIHandler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Use(middlewares...)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/search", h.Search)
			r.Post("/sort", h.Sort)
			r.Get("/{key}", h.Detail)
			r.Delete("/{key}", h.Delete)
		})
	})
}

// List handles GET /api/products
func (h *APIHandler) List(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(r)

	if err := applyListParams(ws.List, r.URL.Query()); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ws.List.Load(r.Context()); err != nil && h.loadFailed(w, r, err) {
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ws.List.View())
}

// Search handles POST /api/products/search. Without immediate the text is
// debounced and 202 is returned with the pending search.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	ws := h.workspace(r)
	if !req.Immediate {
		ws.List.SetSearch(req.Search)
		middleware.RespondWithJSON(w, http.StatusAccepted, ws.List.View())
		return
	}

	ws.List.SearchNow(req.Search)
	if err := ws.List.Load(r.Context()); err != nil && h.loadFailed(w, r, err) {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ws.List.View())
}

// Sort handles POST /api/products/sort, cycling the field through
// ascending, descending and unsorted
func (h *APIHandler) Sort(w http.ResponseWriter, r *http.Request) {
	var req SortRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithDecodeError(w, err)
		return
	}

	ws := h.workspace(r)
	if err := ws.List.ToggleSort(req.Field); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if ws.List.View().Loaded && !ws.Service.ServerSort() {
		middleware.RespondWithJSON(w, http.StatusOK, ws.List.View())
		return
	}
	if err := ws.List.Load(r.Context()); err != nil && h.loadFailed(w, r, err) {
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ws.List.View())
}

// Detail handles GET /api/products/{key}
func (h *APIHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(r)
	key := chi.URLParam(r, "key")

	product, err := ws.Service.Detail(r.Context(), key)
	if err == nil && product == nil {
		err = &apperror.NotFoundError{Identifier: key}
	}
	if err != nil {
		h.failed(w, r, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{key}
func (h *APIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(r)

	if err := deleteProduct(r, ws, chi.URLParam(r, "key")); err != nil {
		h.failed(w, r, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, DeleteResponse{
		Notice: catalog.DeletedNotice(),
		View:   ws.List.View(),
	})
}

func (h *APIHandler) workspace(r *http.Request) *Workspace {
	sess, _ := middleware.GetSession(r.Context())
	return h.workspaces.For(sess)
}

// loadFailed handles a list load error. Only an expired session ends the
// request; other failures are carried by the view.
func (h *APIHandler) loadFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	if apperror.IsAuth(err) {
		sessionExpired(w, r, h.workspaces, h.cookie, err)
		return true
	}
	h.logger.Warn("Failed to load products", zap.Error(err))
	return false
}

func (h *APIHandler) failed(w http.ResponseWriter, r *http.Request, err error) {
	if apperror.IsAuth(err) {
		sessionExpired(w, r, h.workspaces, h.cookie, err)
		return
	}
	middleware.RespondWithAppError(w, err)
}
