// Package catalogtest provides an in-memory catalog backend for tests.
package catalogtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"catalog-admin/internal/domain"

	"github.com/go-chi/chi/v5"
)

const (
	Email    = "admin@example.com"
	Password = "secret-password"
)

// Backend mimics the catalog REST API closely enough to drive the client,
// the query layer and the console handlers.
type Backend struct {
	mu           sync.Mutex
	products     []domain.Product
	nextID       int64
	accessToken  string
	refreshToken string
	rotation     int

	FailDeletes bool
	FailLists   bool

	listCalls    int
	refreshCalls int
	deleteCalls  int
}

// New returns an empty backend accepting Email/Password
func New() *Backend {
	return &Backend{
		nextID:       1,
		accessToken:  "access-0",
		refreshToken: "refresh-0",
	}
}

// Start serves the backend until the test ends
func (b *Backend) Start(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

// Tokens returns the currently valid token pair
func (b *Backend) Tokens() domain.Tokens {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.Tokens{AccessToken: b.accessToken, RefreshToken: b.refreshToken}
}

// ExpireAccessToken makes the current access token invalid; the refresh
// token keeps working.
func (b *Backend) ExpireAccessToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rotation++
	b.accessToken = fmt.Sprintf("expired-%d", b.rotation)
}

// RevokeRefreshToken makes refreshes fail
func (b *Backend) RevokeRefreshToken() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshToken = "revoked"
}

// Seed adds n products named "Product 01", "Product 02", ...
func (b *Backend) Seed(n int) {
	for i := 1; i <= n; i++ {
		b.Add(domain.Product{
			Name:           fmt.Sprintf("Product %02d", i),
			Description:    "Seeded product",
			Price:          fmt.Sprintf("%d.99", i),
			Quantity:       i,
			Category:       "General",
			Brand:          "Acme",
			Rating:         strconv.FormatFloat(float64(i%5)+0.5, 'f', 1, 64),
			InStock:        i%2 == 0,
			SKU:            fmt.Sprintf("SKU-%03d", i),
			ShippingWeight: "1.0",
		})
	}
}

// Add stores p, assigning id, slug and creation time
func (b *Backend) Add(p domain.Product) domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(p)
}

func (b *Backend) addLocked(p domain.Product) domain.Product {
	p.ID = b.nextID
	b.nextID++
	slug := fmt.Sprintf("%s-%d", strings.ReplaceAll(strings.ToLower(p.Name), " ", "-"), p.ID)
	p.Slug = &slug
	p.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(p.ID) * time.Hour)
	b.products = append(b.products, p)
	return p
}

// Len returns the number of stored products
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.products)
}

func (b *Backend) ListCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listCalls
}

func (b *Backend) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

func (b *Backend) DeleteCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteCalls
}

// Handler returns the HTTP surface of the backend
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/token/", b.login)
	r.Post("/token/refresh/", b.refresh)

	r.Group(func(r chi.Router) {
		r.Use(b.requireToken)
		r.Get("/product", b.list)
		r.Post("/product", b.create)
		r.Get("/product/{id}", b.detail)
		r.Patch("/product/{id}", b.update)
		r.Delete("/product/{id}", b.remove)
	})
	return r
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		valid := "Bearer " + b.accessToken
		b.mu.Unlock()
		if r.Header.Get("Authorization") != valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string][]string{"email": {"This field is required."}}})
		return
	}
	if req.Email != Email || req.Password != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": b.Tokens()})
}

func (b *Backend) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshCalls++
	if req.RefreshToken == "" || req.RefreshToken != b.refreshToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token is invalid or expired"})
		return
	}
	b.rotation++
	b.accessToken = fmt.Sprintf("access-%d", b.rotation)
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"access_token": b.accessToken}})
}

func (b *Backend) list(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listCalls++

	if b.FailLists {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database unavailable"})
		return
	}

	page := atoiDefault(r.URL.Query().Get("page"), 1)
	size := atoiDefault(r.URL.Query().Get("page_size"), 10)
	search := strings.ToLower(r.URL.Query().Get("search"))

	matched := make([]domain.Product, 0, len(b.products))
	for _, p := range b.products {
		if search == "" || strings.Contains(strings.ToLower(p.Name), search) || strings.Contains(strings.ToLower(p.Description), search) {
			matched = append(matched, p)
		}
	}

	if sortBy := r.URL.Query().Get("sort_by"); sortBy == "product_name" {
		desc := r.URL.Query().Get("sort_order") == "desc"
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return matched[i].Name > matched[j].Name
			}
			return matched[i].Name < matched[j].Name
		})
	}

	total := len(matched)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	totalPages := (total + size - 1) / size
	writeJSON(w, http.StatusOK, map[string]any{"data": domain.ListResult{
		Products:    matched[start:end],
		TotalItems:  total,
		ActivePage:  page,
		CurrentPage: page,
		TotalPages:  totalPages,
		PageSize:    size,
	}})
}

func (b *Backend) find(id string) int {
	for i, p := range b.products {
		if p.Matches(id) {
			return i
		}
	}
	return -1
}

func (b *Backend) detail(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.find(chi.URLParam(r, "id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": b.products[i]})
}

func (b *Backend) create(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if in.SKU != nil {
		for _, p := range b.products {
			if p.SKU == *in.SKU {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"message": "Validation failed",
					"errors":  map[string][]string{"sku": {"product with this sku already exists."}},
				})
				return
			}
		}
	}

	var p domain.Product
	apply(&p, in)
	writeJSON(w, http.StatusCreated, map[string]any{"data": b.addLocked(p)})
}

func (b *Backend) update(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.find(chi.URLParam(r, "id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
		return
	}
	if in.Price != nil && strings.HasPrefix(*in.Price, "-") {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string][]string{"product_price": {"Ensure this value is greater than or equal to 0."}}})
		return
	}
	apply(&b.products[i], in)
	writeJSON(w, http.StatusOK, map[string]any{"data": b.products[i]})
}

func (b *Backend) remove(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteCalls++

	if b.FailDeletes {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database unavailable"})
		return
	}
	i := b.find(chi.URLParam(r, "id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
		return
	}
	b.products = append(b.products[:i], b.products[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func apply(p *domain.Product, in domain.ProductInput) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Quantity != nil {
		p.Quantity = *in.Quantity
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Brand != nil {
		p.Brand = *in.Brand
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
	if in.InStock != nil {
		p.InStock = *in.InStock
	}
	if in.SKU != nil {
		p.SKU = *in.SKU
	}
	if in.DiscountPercentage != nil {
		p.DiscountPercentage = *in.DiscountPercentage
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	if in.ShippingWeight != nil {
		p.ShippingWeight = *in.ShippingWeight
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
