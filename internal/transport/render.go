package transport

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"catalog-admin/internal/catalog"
	"catalog-admin/internal/domain"
	"catalog-admin/internal/listing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"signin.html",
	"products.html",
	"product_detail.html",
	"product_form.html",
	"product_delete.html",
	"error.html",
}

// Page is what every template receives
type Page struct {
	Title   string
	User    string
	Notice  *catalog.Notice
	Content any
}

// Column is one sortable column of the product table
type Column struct {
	Key   string
	Label string
}

// ProductColumns are the columns of the product table
var ProductColumns = []Column{
	{Key: "product_name", Label: "Product"},
	{Key: "product_category", Label: "Category"},
	{Key: "product_price", Label: "Price"},
	{Key: "product_quantity", Label: "Quantity"},
	{Key: "in_stock", Label: "Status"},
	{Key: "rating", Label: "Rating"},
}

// Renderer executes the embedded page templates
type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

// NewRenderer parses every page with the shared layout
func NewRenderer(logger *zap.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes page with status. The page is executed into a buffer
// first so a template failure still produces a clean 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	t, ok := r.pages[name]
	if !ok {
		r.logger.Error("Unknown template", zap.String("template", name))
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.logger.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

var templateFuncs = template.FuncMap{
	"price":    displayPrice,
	"rating":   displayRating,
	"stars":    stars,
	"lowStock": func(q int) bool { return q <= 10 },
	"inc":      func(n int) int { return n + 1 },
	"dec":      func(n int) int { return n - 1 },
	"listURL":  listURLWith,
	"pageURL":  pageURL,
	"sortURL":  sortURL,
	"sortIcon": sortIcon,
}

// PriceDisplay is a price after discount, with the original when they differ
type PriceDisplay struct {
	Final      string
	Original   string
	Discounted bool
}

var hundred = decimal.NewFromInt(100)

func displayPrice(p domain.Product) PriceDisplay {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return PriceDisplay{Final: p.Price, Original: p.Price}
	}

	out := PriceDisplay{Final: price.StringFixed(2), Original: price.StringFixed(2)}
	if p.DiscountPercentage > 0 {
		factor := hundred.Sub(decimal.NewFromInt(int64(p.DiscountPercentage))).Div(hundred)
		out.Final = price.Mul(factor).StringFixed(2)
		out.Discounted = true
	}
	return out
}

func displayRating(s string) string {
	r, err := decimal.NewFromString(s)
	if err != nil {
		return "0.0"
	}
	return r.StringFixed(1)
}

func stars(s string) []bool {
	r, err := decimal.NewFromString(s)
	if err != nil {
		r = decimal.Zero
	}
	out := make([]bool, 5)
	for i := range out {
		out[i] = r.GreaterThan(decimal.NewFromInt(int64(i)))
	}
	return out
}

// ListURL is the product list address that reproduces q
func ListURL(q domain.ListQuery) string {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortField != "" && q.SortDirection != domain.SortNone {
		v.Set("sort", q.SortField)
		v.Set("dir", string(q.SortDirection))
	}
	return "/products?" + v.Encode()
}

func listURLWith(q domain.ListQuery, key, value string) string {
	switch key {
	case "search":
		q.Search = value
		q.Page = 1
	}
	return ListURL(q)
}

func pageURL(q domain.ListQuery, page int) string {
	q.Page = page
	return ListURL(q)
}

func sortURL(q domain.ListQuery, field string) string {
	q.SortField, q.SortDirection = listing.NextSort(field, q.SortField, q.SortDirection)
	return ListURL(q)
}

func sortIcon(q domain.ListQuery, field string) string {
	if q.SortField != field {
		return ""
	}
	switch q.SortDirection {
	case domain.SortAsc:
		return "▲"
	case domain.SortDesc:
		return "▼"
	}
	return ""
}
