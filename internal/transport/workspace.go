package transport

import (
	"net/http"
	"time"

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/catalog"
	"catalog-admin/internal/domain"
	"catalog-admin/internal/listing"
	"catalog-admin/internal/middleware"
	"catalog-admin/internal/session"

	"go.uber.org/zap"
)

// Workspace is the live state of one signed-in session: its token
// source, its cached product service and its list controller.
type Workspace struct {
	Tokens  *session.Tokens
	Service *catalog.Service
	List    *listing.Controller
}

// Close stops the list controller and drops cached reads
func (w *Workspace) Close() {
	w.List.Close()
	w.Service.Reset()
}

// WorkspaceConfig tunes the workspaces created per session
type WorkspaceConfig struct {
	CacheMaxAge time.Duration
	Debounce    time.Duration
	AutoLoad    bool
	LoadTimeout time.Duration
}

// Workspaces hands out one Workspace per session id
type Workspaces struct {
	api      *catalog.ProductAPI
	store    session.Store
	config   WorkspaceConfig
	registry *session.Registry[*Workspace]
	logger   *zap.Logger
}

// NewWorkspaces creates an empty set of workspaces over api
func NewWorkspaces(api *catalog.ProductAPI, store session.Store, config WorkspaceConfig, logger *zap.Logger) *Workspaces {
	return &Workspaces{
		api:      api,
		store:    store,
		config:   config,
		registry: session.NewRegistry[*Workspace](),
		logger:   logger,
	}
}

// For returns the workspace of sess, creating it on first use. A
// workspace whose tokens were cleared is replaced.
func (ws *Workspaces) For(sess *domain.Session) *Workspace {
	id := sess.ID.String()
	create := func() *Workspace { return ws.newWorkspace(sess) }

	w := ws.registry.Get(id, create)
	if w.Tokens.Cleared() {
		ws.registry.Drop(id)
		w = ws.registry.Get(id, create)
	}
	return w
}

func (ws *Workspaces) newWorkspace(sess *domain.Session) *Workspace {
	logger := ws.logger.With(zap.String("session_id", sess.ID.String()))
	tokens := session.NewTokens(ws.store, sess)
	service := catalog.NewService(ws.api, tokens, catalog.NewQueryCache(ws.config.CacheMaxAge), logger)

	opts := []listing.Option{listing.WithLogger(logger)}
	if ws.config.Debounce > 0 {
		opts = append(opts, listing.WithDebounce(ws.config.Debounce))
	}
	if ws.config.AutoLoad {
		opts = append(opts, listing.WithAutoLoad(ws.config.LoadTimeout))
	}

	return &Workspace{
		Tokens:  tokens,
		Service: service,
		List:    listing.NewController(service, opts...),
	}
}

// Drop closes the workspace of a session
func (ws *Workspaces) Drop(sessionID string) {
	ws.registry.Drop(sessionID)
}

// Sweep closes workspaces idle for longer than maxIdle
func (ws *Workspaces) Sweep(maxIdle time.Duration) int {
	return ws.registry.Sweep(maxIdle)
}

// Len returns the number of live workspaces
func (ws *Workspaces) Len() int {
	return ws.registry.Len()
}

// sessionExpired ends a session whose refresh failed. The browser is sent
// back to the sign-in page, or gets a 401 on the API.
func sessionExpired(w http.ResponseWriter, r *http.Request, ws *Workspaces, cookie middleware.SessionCookie, err error) {
	if sess, ok := middleware.GetSession(r.Context()); ok {
		ws.Drop(sess.ID.String())
	}
	cookie.Clear(w)

	if middleware.WantsJSON(r) {
		middleware.RespondWithAppError(w, err)
		return
	}
	setFlash(w, catalog.Notice{
		Kind:  catalog.NoticeError,
		Title: "Session Expired",
		Text:  apperror.SessionExpiredMessage,
	})
	middleware.RedirectToSignIn(w, r)
}
