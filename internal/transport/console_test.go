package transport

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"catalog-admin/internal/catalog"
	"catalog-admin/internal/catalog/catalogtest"
	"catalog-admin/internal/client"
	"catalog-admin/internal/middleware"
	"catalog-admin/internal/session"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var testCookie = middleware.SessionCookie{Name: "catalog_session"}

// console is a running admin console in front of a fake catalog backend
type console struct {
	backend    *catalogtest.Backend
	store      *session.MemoryStore
	workspaces *Workspaces
	auth       *AuthHandler
	server     *httptest.Server
	browser    *http.Client
}

func newConsole(t *testing.T, seed int) *console {
	t.Helper()

	backend := catalogtest.New()
	backend.Seed(seed)
	api := backend.Start(t)

	logger := zap.NewNop()
	c := client.New(api.URL, client.WithLogger(logger))
	store := session.NewMemoryStore(time.Hour)
	workspaces := NewWorkspaces(catalog.NewProductAPI(c, false), store, WorkspaceConfig{Debounce: time.Hour}, logger)

	renderer, err := NewRenderer(logger)
	if err != nil {
		t.Fatalf("NewRenderer returned error: %v", err)
	}

	authHandler := NewAuthHandler(catalog.NewAuthAPI(c), store, workspaces, renderer, testCookie, logger)
	requireSession := middleware.RequireSession(logger)

	r := chi.NewRouter()
	r.Use(middleware.SessionMiddleware(store, testCookie, logger))
	authHandler.RegisterRoutes(r, func(next http.Handler) http.Handler { return next })
	NewProductHandler(workspaces, renderer, testCookie, logger).RegisterRoutes(r, requireSession)
	NewAPIHandler(workspaces, testCookie, logger).RegisterRoutes(r, requireSession)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { workspaces.Sweep(-time.Hour) })

	jar, _ := cookiejar.New(nil)
	browser := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &console{
		backend:    backend,
		store:      store,
		workspaces: workspaces,
		auth:       authHandler,
		server:     srv,
		browser:    browser,
	}
}

func (c *console) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := c.browser.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (c *console) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, c.server.URL+path, nil)
	return c.do(t, req)
}

func (c *console) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, c.server.URL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(t, req)
}

func (c *console) sendJSON(t *testing.T, method, path, body string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(method, c.server.URL+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return c.do(t, req)
}

func (c *console) signIn(t *testing.T) {
	t.Helper()
	resp, _ := c.post(t, "/signin", url.Values{
		"email":    {catalogtest.Email},
		"password": {catalogtest.Password},
	})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("sign-in status = %d, want 303", resp.StatusCode)
	}
}

// follow requests the page a redirect points to
func (c *console) follow(t *testing.T, resp *http.Response) (*http.Response, string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want a redirect", resp.StatusCode)
	}
	return c.get(t, resp.Header.Get("Location"))
}

func assertContains(t *testing.T, body string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body does not contain %q", w)
		}
	}
}
