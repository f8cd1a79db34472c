// Package catalog is the typed query and mutation layer over the catalog
// backend: sign-in, product list, detail, create, update and delete.
package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/client"
	"catalog-admin/internal/domain"
)

const (
	LoginPath    = "/token/"
	ProductsPath = "/product"
)

// Fallback messages used when the backend gives no usable reason
const (
	msgListFailed   = "Failed to fetch products."
	msgDetailFailed = "Failed to fetch product details."
	msgCreateFailed = "Failed to add product."
	msgUpdateFailed = "Failed to update product."
	msgDeleteFailed = "Failed to delete product."
	msgLoginFailed  = "Login failed. Please check your credentials."
)

var ErrMissingTokens = errors.New("sign-in response carried no tokens")

func productPath(id string) string {
	return ProductsPath + "/" + url.PathEscape(id)
}

// AuthAPI signs users in against the backend
type AuthAPI struct {
	client *client.Client
}

// NewAuthAPI creates an AuthAPI
func NewAuthAPI(c *client.Client) *AuthAPI {
	return &AuthAPI{client: c}
}

// Login exchanges credentials for a token pair
func (a *AuthAPI) Login(ctx context.Context, email, password string) (domain.Tokens, error) {
	resp, err := a.client.Do(ctx, nil, client.Request{
		Method: http.MethodPost,
		Path:   LoginPath,
		Body:   map[string]string{"email": email, "password": password},
		Public: true,
	})
	if err != nil {
		return domain.Tokens{}, err
	}
	if !resp.OK() {
		return domain.Tokens{}, apperror.Normalize(resp.Status, resp.Body, msgLoginFailed)
	}

	var tokens domain.Tokens
	if err := resp.Decode(&tokens); err != nil {
		return domain.Tokens{}, &apperror.RequestError{Status: resp.Status, Message: msgLoginFailed, Err: err}
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return domain.Tokens{}, &apperror.RequestError{Status: resp.Status, Message: msgLoginFailed, Err: ErrMissingTokens}
	}
	return tokens, nil
}

// Logout drops the session's tokens. The backend keeps no sign-in state
// that needs revoking.
func (a *AuthAPI) Logout(ctx context.Context, ts client.TokenSource) error {
	return ts.Clear(ctx)
}

// ProductAPI is the typed product resource
type ProductAPI struct {
	client     *client.Client
	serverSort bool
}

// NewProductAPI creates a ProductAPI. With serverSort the sort field and
// direction are sent to the backend instead of being applied per page.
func NewProductAPI(c *client.Client, serverSort bool) *ProductAPI {
	return &ProductAPI{client: c, serverSort: serverSort}
}

// ServerSort reports whether sorting is delegated to the backend
func (a *ProductAPI) ServerSort() bool {
	return a.serverSort
}

// ListParams returns the query string sent for q
func (a *ProductAPI) ListParams(q domain.ListQuery) url.Values {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("page_size", strconv.Itoa(q.PageSize))
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if a.serverSort && q.SortField != "" && q.SortDirection != domain.SortNone {
		params.Set("sort_by", q.SortField)
		params.Set("sort_order", string(q.SortDirection))
	}
	return params
}

// List fetches one page of products
func (a *ProductAPI) List(ctx context.Context, ts client.TokenSource, q domain.ListQuery) (*domain.ListResult, error) {
	resp, err := a.client.Do(ctx, ts, client.Request{
		Method: http.MethodGet,
		Path:   ProductsPath,
		Query:  a.ListParams(q),
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apperror.Normalize(resp.Status, resp.Body, msgListFailed)
	}

	var result domain.ListResult
	if err := resp.Decode(&result); err != nil {
		return nil, &apperror.RequestError{Status: resp.Status, Message: msgListFailed}
	}
	if result.Products == nil {
		result.Products = []domain.Product{}
	}
	return &result, nil
}

// Detail fetches one product. An empty id fetches nothing.
func (a *ProductAPI) Detail(ctx context.Context, ts client.TokenSource, id string) (*domain.Product, error) {
	if id == "" {
		return nil, nil
	}

	resp, err := a.client.Do(ctx, ts, client.Request{Method: http.MethodGet, Path: productPath(id)})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apperror.Normalize(resp.Status, resp.Body, msgDetailFailed)
	}
	return decodeProduct(resp, msgDetailFailed)
}

// Create adds a product
func (a *ProductAPI) Create(ctx context.Context, ts client.TokenSource, in domain.ProductInput) (*domain.Product, error) {
	resp, err := a.client.Do(ctx, ts, client.Request{Method: http.MethodPost, Path: ProductsPath, Body: in})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apperror.NormalizeForm(resp.Status, resp.Body, msgCreateFailed)
	}
	return decodeProduct(resp, msgCreateFailed)
}

// Update sends the changed fields of a product
func (a *ProductAPI) Update(ctx context.Context, ts client.TokenSource, id string, in domain.ProductInput) (*domain.Product, error) {
	resp, err := a.client.Do(ctx, ts, client.Request{Method: http.MethodPatch, Path: productPath(id), Body: in})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, apperror.NormalizeForm(resp.Status, resp.Body, msgUpdateFailed)
	}
	return decodeProduct(resp, msgUpdateFailed)
}

// Delete removes a product
func (a *ProductAPI) Delete(ctx context.Context, ts client.TokenSource, id string) error {
	resp, err := a.client.Do(ctx, ts, client.Request{Method: http.MethodDelete, Path: productPath(id)})
	if err != nil {
		return err
	}
	if !resp.OK() {
		return apperror.Normalize(resp.Status, resp.Body, msgDeleteFailed)
	}
	return nil
}

func decodeProduct(resp *client.Response, fallback string) (*domain.Product, error) {
	var product domain.Product
	if err := resp.Decode(&product); err != nil {
		return nil, &apperror.RequestError{Status: resp.Status, Message: fallback}
	}
	return &product, nil
}
