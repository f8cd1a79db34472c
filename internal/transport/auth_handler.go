package transport

import (
	"errors"
	"net/http"

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/catalog"
	"catalog-admin/internal/middleware"
	"catalog-admin/internal/session"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HomePath is where a signed-in user lands
const HomePath = "/products"

// SignInRequest represents the sign-in form
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signInPage struct {
	Next   string
	Email  string
	Errors map[string]string
}

// AuthHandler handles signing in and out of the console
type AuthHandler struct {
	auth       *catalog.AuthAPI
	store      session.Store
	workspaces *Workspaces
	renderer   *Renderer
	cookie     middleware.SessionCookie
	logger     *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth *catalog.AuthAPI, store session.Store, workspaces *Workspaces, renderer *Renderer, cookie middleware.SessionCookie, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       auth,
		store:      store,
		workspaces: workspaces,
		renderer:   renderer,
		cookie:     cookie,
		logger:     logger,
	}
}

// RegisterRoutes registers the sign-in routes. limit guards the sign-in
// POST against credential guessing.
func (h *AuthHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RedirectIfAuthenticated(HomePath))
		r.Get(middleware.SignInPath, h.SignInForm)
		r.With(limit).Post(middleware.SignInPath, h.SignIn)
	})
	r.Post("/signout", h.SignOut)
}

// SignInForm handles GET /signin
func (h *AuthHandler) SignInForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, signInPage{Next: r.URL.Query().Get("next")}, popFlash(w, r))
}

// SignIn handles POST /signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, signInPage{}, nil)
		return
	}

	req := SignInRequest{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	page := signInPage{Next: r.PostForm.Get("next"), Email: req.Email, Errors: map[string]string{}}

	if err := middleware.ValidateRequest(req); err != nil {
		for _, fe := range middleware.FormatValidationErrors(err) {
			page.Errors[fe.Field] = fe.Message
		}
		h.render(w, http.StatusUnprocessableEntity, page, nil)
		return
	}

	ctx := r.Context()
	tokens, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.Info("Sign-in failed", zap.String("email", req.Email), zap.Error(err))

		var formErr *apperror.FormValidationError
		if errors.As(err, &formErr) {
			for field, msg := range formErr.Fields {
				page.Errors[field] = msg
			}
		}
		notice := catalog.FailureNotice(catalog.ActionLogin, err)
		h.render(w, middleware.StatusFor(err), page, &notice)
		return
	}

	sess, err := h.store.Create(ctx, tokens, req.Email)
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		notice := catalog.Notice{Kind: catalog.NoticeError, Title: "Login Failed", Text: "An unexpected error occurred."}
		h.render(w, http.StatusInternalServerError, page, &notice)
		return
	}

	h.logger.Info("User signed in", zap.String("email", sess.Email), zap.String("session_id", sess.ID.String()))

	h.cookie.Set(w, sess)
	setFlash(w, catalog.LoginNotice())
	http.Redirect(w, r, middleware.SafeNext(page.Next, HomePath), http.StatusSeeOther)
}

// SignOut handles POST /signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if sess, ok := middleware.GetSession(r.Context()); ok {
		h.workspaces.Drop(sess.ID.String())
		if err := h.auth.Logout(r.Context(), session.NewTokens(h.store, sess)); err != nil {
			h.logger.Error("Failed to delete session", zap.Error(err))
		}
		h.logger.Info("User signed out", zap.String("email", sess.Email))
	}

	h.cookie.Clear(w)
	setFlash(w, catalog.LogoutNotice())
	http.Redirect(w, r, middleware.SignInPath, http.StatusSeeOther)
}

// TooManyAttempts answers a rate limited sign-in
func (h *AuthHandler) TooManyAttempts(w http.ResponseWriter, r *http.Request) {
	notice := catalog.Notice{
		Kind:  catalog.NoticeError,
		Title: "Too Many Attempts",
		Text:  "Too many sign-in attempts. Please wait a moment and try again.",
	}
	h.render(w, http.StatusTooManyRequests, signInPage{Email: r.PostFormValue("email")}, &notice)
}

func (h *AuthHandler) render(w http.ResponseWriter, status int, page signInPage, notice *catalog.Notice) {
	h.renderer.Render(w, status, "signin.html", Page{
		Title:   "Sign In",
		Notice:  notice,
		Content: page,
	})
}
