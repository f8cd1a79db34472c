package transport

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/catalog"
	"catalog-admin/internal/domain"
	"catalog-admin/internal/form"
	"catalog-admin/internal/listing"
	"catalog-admin/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type listPage struct {
	View      listing.View
	PageSizes []int
	Columns   []Column
}

type detailPage struct {
	Product *domain.Product
}

type formPage struct {
	Values  form.Values
	Errors  map[string]string
	Editing bool
	Action  string
	Cancel  string
}

type deletePage struct {
	Name string
	Key  string
}

type errorPage struct {
	Message string
}

// ProductHandler serves the product pages of the console
type ProductHandler struct {
	workspaces *Workspaces
	renderer   *Renderer
	cookie     middleware.SessionCookie
	logger     *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(workspaces *Workspaces, renderer *Renderer, cookie middleware.SessionCookie, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		workspaces: workspaces,
		renderer:   renderer,
		cookie:     cookie,
		logger:     logger,
	}
}

// RegisterRoutes registers the product pages behind requireSession
func (h *ProductHandler) RegisterRoutes(r chi.Router, requireSession func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
		})
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.List)
			r.Get("/new", h.New)
			r.Post("/", h.Create)
			r.Get("/{key}", h.Detail)
			r.Get("/{key}/edit", h.Edit)
			r.Post("/{key}", h.Update)
			r.Get("/{key}/delete", h.ConfirmDelete)
			r.Post("/{key}/delete", h.Delete)
		})
	})
}

// List handles GET /products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ws, sess := h.workspace(r)

	if err := applyListParams(ws.List, r.URL.Query()); err != nil {
		h.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := ws.List.Load(r.Context()); err != nil {
		if apperror.IsAuth(err) {
			sessionExpired(w, r, h.workspaces, h.cookie, err)
			return
		}
		h.logger.Warn("Failed to load products", zap.Error(err))
	}

	h.renderer.Render(w, http.StatusOK, "products.html", Page{
		Title:  "Products",
		User:   sess.Email,
		Notice: popFlash(w, r),
		Content: listPage{
			View:      ws.List.View(),
			PageSizes: domain.PageSizes,
			Columns:   ProductColumns,
		},
	})
}

// applyListParams moves the controller to the query in the URL. Absent
// parameters keep the controller's current state.
func applyListParams(c *listing.Controller, params url.Values) error {
	if raw := params.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return listing.ErrInvalidPageSize
		}
		if err := c.SetPageSize(n); err != nil {
			return err
		}
	}

	if _, ok := params["search"]; ok {
		c.SearchNow(params.Get("search"))
	}

	if _, ok := params["sort"]; ok {
		if err := c.SetSort(params.Get("sort"), domain.SortDirection(params.Get("dir"))); err != nil {
			return err
		}
	}

	if raw := params.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid page %q", raw)
		}
		c.SetPage(n)
	}
	return nil
}

// Detail handles GET /products/{key}
func (h *ProductHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ws, sess := h.workspace(r)

	product, ok := h.load(w, r, ws, chi.URLParam(r, "key"))
	if !ok {
		return
	}

	h.renderer.Render(w, http.StatusOK, "product_detail.html", Page{
		Title:   product.Name,
		User:    sess.Email,
		Notice:  popFlash(w, r),
		Content: detailPage{Product: product},
	})
}

// New handles GET /products/new
func (h *ProductHandler) New(w http.ResponseWriter, r *http.Request) {
	ws, sess := h.workspace(r)
	h.renderForm(w, http.StatusOK, sess, nil, formPage{
		Values: form.Initial(),
		Action: "/products",
		Cancel: ListURL(ws.List.Query()),
	})
}

// Create handles POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ws, sess := h.workspace(r)

	page := formPage{Action: "/products", Cancel: ListURL(ws.List.Query())}
	values, ok := h.decodeForm(w, r, sess, &page)
	if !ok {
		return
	}

	product, err := ws.Service.Create(r.Context(), form.Payload(values))
	if err != nil {
		h.writeFailed(w, r, sess, page, catalog.ActionAdd, err)
		return
	}

	setFlash(w, catalog.AddedNotice(product))
	http.Redirect(w, r, ListURL(ws.List.Query()), http.StatusSeeOther)
}

// Edit handles GET /products/{key}/edit
func (h *ProductHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ws, sess := h.workspace(r)
	key := chi.URLParam(r, "key")

	product, ok := h.load(w, r, ws, key)
	if !ok {
		return
	}

	h.renderForm(w, http.StatusOK, sess, nil, formPage{
		Values:  form.FromProduct(*product),
		Editing: true,
		Action:  "/products/" + url.PathEscape(key),
		Cancel:  ListURL(ws.List.Query()),
	})
}

// Update handles POST /products/{key}. Only the fields that changed are
// sent to the backend.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ws, sess := h.workspace(r)
	key := chi.URLParam(r, "key")

	original, ok := h.load(w, r, ws, key)
	if !ok {
		return
	}

	page := formPage{
		Editing: true,
		Action:  "/products/" + url.PathEscape(key),
		Cancel:  ListURL(ws.List.Query()),
	}
	values, ok := h.decodeForm(w, r, sess, &page)
	if !ok {
		return
	}

	changes := form.Diff(*original, values)
	if changes.IsEmpty() {
		setFlash(w, catalog.Notice{Kind: catalog.NoticeInfo, Title: "No Changes", Text: "No changes to save."})
		http.Redirect(w, r, "/products/"+url.PathEscape(key), http.StatusSeeOther)
		return
	}

	product, err := ws.Service.Update(r.Context(), key, changes)
	if err != nil {
		h.writeFailed(w, r, sess, page, catalog.ActionUpdate, err)
		return
	}

	setFlash(w, catalog.UpdatedNotice(product))
	http.Redirect(w, r, ListURL(ws.List.Query()), http.StatusSeeOther)
}

// ConfirmDelete handles GET /products/{key}/delete
func (h *ProductHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	ws, sess := h.workspace(r)
	key := chi.URLParam(r, "key")

	product, ok := h.load(w, r, ws, key)
	if !ok {
		return
	}

	h.renderer.Render(w, http.StatusOK, "product_delete.html", Page{
		Title:   "Delete Product",
		User:    sess.Email,
		Content: deletePage{Name: product.Name, Key: product.Key()},
	})
}

// Delete handles POST /products/{key}/delete
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ws, _ := h.workspace(r)

	err := deleteProduct(r, ws, chi.URLParam(r, "key"))
	if apperror.IsAuth(err) {
		sessionExpired(w, r, h.workspaces, h.cookie, err)
		return
	}

	if err != nil {
		h.logger.Info("Failed to delete product", zap.Error(err))
		setFlash(w, catalog.FailureNotice(catalog.ActionDelete, err))
	} else {
		setFlash(w, catalog.DeletedNotice())
	}
	http.Redirect(w, r, ListURL(ws.List.Query()), http.StatusSeeOther)
}

// deleteProduct removes key optimistically from the visible page, or
// straight through the service when it is not on that page
func deleteProduct(r *http.Request, ws *Workspace, key string) error {
	_, err := ws.List.Delete(r.Context(), key)

	var notFound *apperror.NotFoundError
	if errors.As(err, &notFound) {
		return ws.Service.Delete(r.Context(), key)
	}
	return err
}

func (h *ProductHandler) workspace(r *http.Request) (*Workspace, *domain.Session) {
	sess, _ := middleware.GetSession(r.Context())
	return h.workspaces.For(sess), sess
}

// load fetches a product for a page, answering the request itself when
// that fails
func (h *ProductHandler) load(w http.ResponseWriter, r *http.Request, ws *Workspace, key string) (*domain.Product, bool) {
	product, err := ws.Service.Detail(r.Context(), key)
	if err == nil && product == nil {
		err = &apperror.NotFoundError{Identifier: key}
	}
	if err == nil {
		return product, true
	}

	if apperror.IsAuth(err) {
		sessionExpired(w, r, h.workspaces, h.cookie, err)
		return nil, false
	}

	h.logger.Info("Failed to fetch product", zap.String("key", key), zap.Error(err))
	h.renderError(w, r, middleware.StatusFor(err), apperror.Message(err))
	return nil, false
}

// decodeForm reads and checks the submitted product form. An invalid form
// is rendered again with its field errors.
func (h *ProductHandler) decodeForm(w http.ResponseWriter, r *http.Request, sess *domain.Session, page *formPage) (form.Values, bool) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
		return form.Values{}, false
	}

	values, errs := form.Decode(r.PostForm)
	for field, msg := range form.Validate(values) {
		if _, seen := errs[field]; !seen {
			errs[field] = msg
		}
	}

	page.Values = values
	page.Errors = errs
	if len(errs) > 0 {
		h.renderForm(w, http.StatusUnprocessableEntity, sess, nil, *page)
		return values, false
	}
	return values, true
}

// writeFailed answers a create or update the backend refused
func (h *ProductHandler) writeFailed(w http.ResponseWriter, r *http.Request, sess *domain.Session, page formPage, action catalog.Action, err error) {
	if apperror.IsAuth(err) {
		sessionExpired(w, r, h.workspaces, h.cookie, err)
		return
	}

	var formErr *apperror.FormValidationError
	if errors.As(err, &formErr) {
		for field, msg := range formErr.Fields {
			page.Errors[field] = msg
		}
	}

	h.logger.Info("Product write failed", zap.String("action", string(action)), zap.Error(err))
	notice := catalog.FailureNotice(action, err)
	h.renderForm(w, middleware.StatusFor(err), sess, &notice, page)
}

func (h *ProductHandler) renderForm(w http.ResponseWriter, status int, sess *domain.Session, notice *catalog.Notice, page formPage) {
	title := "Add Product"
	if page.Editing {
		title = "Edit Product"
	}
	h.renderer.Render(w, status, "product_form.html", Page{
		Title:   title,
		User:    sess.Email,
		Notice:  notice,
		Content: page,
	})
}

func (h *ProductHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	var user string
	if sess, ok := middleware.GetSession(r.Context()); ok {
		user = sess.Email
	}
	h.renderer.Render(w, status, "error.html", Page{
		Title:   http.StatusText(status),
		User:    user,
		Content: errorPage{Message: message},
	})
}
