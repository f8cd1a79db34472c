package transport

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"catalog-admin/internal/domain"
	"catalog-admin/internal/listing"
)

func productForm(name, sku string) url.Values {
	return url.Values{
		"product_name":        {name},
		"product_description": {"A new product"},
		"product_price":       {"12.50"},
		"product_quantity":    {"4"},
		"product_category":    {"Tools"},
		"product_brand":       {"Acme"},
		"rating":              {"4.5"},
		"in_stock":            {"on"},
		"sku":                 {sku},
		"discount_percentage": {"0"},
		"shipping_weight":     {"1.0"},
	}
}

func TestProductList(t *testing.T) {
	c := newConsole(t, 25)
	c.signIn(t)

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"first page", "/products", []string{"Product 01", "Product 10", "Showing 1 to 10 of 25 entries"}},
		{"last page", "/products?page=3", []string{"Product 25", "Showing 21 to 25 of 25 entries"}},
		{"page size", "/products?page_size=30", []string{"Showing 1 to 25 of 25 entries"}},
		{"search", "/products?search=product+2&page_size=10", []string{"Product 20", "Showing 1 to 6 of 6 entries"}},
		{"no match", "/products?search=nothing", []string{"No data found", "Showing 0 to 0 of 0 entries"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := c.get(t, tt.path)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			assertContains(t, body, tt.want...)
		})
	}
}

func TestProductList_SortsCurrentPage(t *testing.T) {
	c := newConsole(t, 25)
	c.signIn(t)

	_, body := c.get(t, "/products?sort=product_price&dir=desc")
	first, last := strings.Index(body, "Product 10"), strings.Index(body, "Product 01")
	if first < 0 || last < 0 || first > last {
		t.Error("rows not sorted by price descending")
	}
	assertContains(t, body, "▼")

	_, body = c.get(t, "/products?sort=&dir=")
	if strings.Index(body, "Product 01") > strings.Index(body, "Product 10") {
		t.Error("clearing the sort did not restore server order")
	}
}

func TestProductList_BadParams(t *testing.T) {
	c := newConsole(t, 5)
	c.signIn(t)

	for _, path := range []string{"/products?page_size=15", "/products?sort=bogus&dir=asc", "/products?page=x"} {
		if resp, _ := c.get(t, path); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s: status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestProductList_LoadFailureIsShownInline(t *testing.T) {
	c := newConsole(t, 5)
	c.signIn(t)
	c.backend.FailLists = true

	resp, body := c.get(t, "/products")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	assertContains(t, body, "Error: database unavailable")
}

func TestProductDetail(t *testing.T) {
	c := newConsole(t, 3)
	c.signIn(t)

	resp, body := c.get(t, "/products/product-02-2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	assertContains(t, body, "Product 02", "SKU-002", "Acme")

	resp, body = c.get(t, "/products/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing product status = %d, want 404", resp.StatusCode)
	}
	assertContains(t, body, "Product not found")
}

func TestCreateProduct(t *testing.T) {
	c := newConsole(t, 3)
	c.signIn(t)

	resp, body := c.get(t, "/products/new")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("new form status = %d", resp.StatusCode)
	}
	assertContains(t, body, `value="0.0"`)

	resp, _ = c.post(t, "/products", productForm("Hammer", "SKU-H"))
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("create status = %d, want 303", resp.StatusCode)
	}
	if c.backend.Len() != 4 {
		t.Errorf("backend holds %d products, want 4", c.backend.Len())
	}
	_, body = c.follow(t, resp)
	assertContains(t, body, "Product Added", "Hammer has been successfully added.", "Showing 1 to 4 of 4 entries")
}

func TestCreateProduct_Invalid(t *testing.T) {
	c := newConsole(t, 3)
	c.signIn(t)

	bad := productForm("", "SKU-H")
	bad.Set("product_quantity", "lots")
	resp, body := c.post(t, "/products", bad)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
	assertContains(t, body, "Product name is required", "Quantity must be a whole number")

	resp, body = c.post(t, "/products", productForm("Copy", "SKU-001"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate sku status = %d, want 400", resp.StatusCode)
	}
	assertContains(t, body, "Validation Failed", "product with this sku already exists.")
	if c.backend.Len() != 3 {
		t.Errorf("rejected products were stored")
	}
}

func TestUpdateProduct(t *testing.T) {
	c := newConsole(t, 3)
	c.signIn(t)

	_, body := c.get(t, "/products/product-01-1/edit")
	assertContains(t, body, `value="Product 01"`, `action="/products/product-01-1"`)

	unchanged := productForm("Product 01", "SKU-001")
	unchanged.Set("product_description", "Seeded product")
	unchanged.Set("product_price", "1.990")
	unchanged.Set("product_quantity", "1")
	unchanged.Set("product_category", "General")
	unchanged.Set("rating", "1.5")
	unchanged.Del("in_stock")

	resp, _ := c.post(t, "/products/product-01-1", unchanged)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/products/product-01-1" {
		t.Fatalf("no-op update: %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
	_, body = c.follow(t, resp)
	assertContains(t, body, "No changes to save.")

	changed := url.Values{}
	for k, v := range unchanged {
		changed[k] = v
	}
	changed.Set("product_price", "3.25")
	resp, _ = c.post(t, "/products/product-01-1", changed)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	_, body = c.follow(t, resp)
	assertContains(t, body, "Product Updated", "$3.25")

	changed.Set("product_price", "-1")
	resp, body = c.post(t, "/products/product-01-1", changed)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("negative price status = %d, want 422", resp.StatusCode)
	}
	assertContains(t, body, "Price must be a positive number")
}

func TestDeleteProduct(t *testing.T) {
	c := newConsole(t, 12)
	c.signIn(t)
	c.get(t, "/products")

	_, body := c.get(t, "/products/product-03-3/delete")
	assertContains(t, body, "Product 03")

	resp, _ := c.post(t, "/products/product-03-3/delete", nil)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	_, body = c.follow(t, resp)
	assertContains(t, body, "Product Deleted", "Showing 1 to 10 of 11 entries")
	if strings.Contains(body, "Product 03") {
		t.Error("deleted product still listed")
	}

	// not on the visible page
	resp, _ = c.post(t, "/products/product-12-12/delete", nil)
	if resp.StatusCode != http.StatusSeeOther || c.backend.Len() != 10 {
		t.Errorf("off-page delete: %d, %d products left", resp.StatusCode, c.backend.Len())
	}
}

func TestDeleteProduct_LastRowStepsBack(t *testing.T) {
	c := newConsole(t, 11)
	c.signIn(t)
	c.get(t, "/products?page=2")

	resp, _ := c.post(t, "/products/product-11-11/delete", nil)
	if loc := resp.Header.Get("Location"); loc != "/products?page=1&page_size=10" {
		t.Errorf("Location = %q, want the first page", loc)
	}
}

func TestDeleteProduct_FailureRollsBack(t *testing.T) {
	c := newConsole(t, 5)
	c.signIn(t)
	c.get(t, "/products")
	c.backend.FailDeletes = true

	resp, _ := c.post(t, "/products/product-02-2/delete", nil)
	_, body := c.follow(t, resp)
	assertContains(t, body, "Delete Failed", "database unavailable", "Product 02")
	if c.backend.Len() != 5 {
		t.Error("failed delete removed a product")
	}
}

func TestApplyListParams(t *testing.T) {
	ctrl := listing.NewController(nil)
	defer ctrl.Close()

	err := applyListParams(ctrl, url.Values{
		"page_size": {"20"},
		"search":    {"shoe"},
		"sort":      {"product_name"},
		"dir":       {"desc"},
		"page":      {"2"},
	})
	if err != nil {
		t.Fatalf("applyListParams returned error: %v", err)
	}

	want := domain.ListQuery{Page: 2, PageSize: 20, Search: "shoe", SortField: "product_name", SortDirection: domain.SortDesc}
	if got := ctrl.Query(); got != want {
		t.Errorf("query = %+v, want %+v", got, want)
	}

	if err := applyListParams(ctrl, url.Values{"page": {"3"}}); err != nil {
		t.Fatal(err)
	}
	if got := ctrl.Query(); got.Search != "shoe" || got.Page != 3 {
		t.Errorf("absent parameters were reset: %+v", got)
	}
}
