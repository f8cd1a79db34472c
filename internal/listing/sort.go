package listing

import (
	"sort"
	"strings"
	"time"

	"catalog-admin/internal/domain"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortValues maps a product JSON key to the value it sorts by
var sortValues = map[string]func(domain.Product) any{
	"id":                  func(p domain.Product) any { return p.ID },
	"product_name":        func(p domain.Product) any { return p.Name },
	"slug":                func(p domain.Product) any { return optional(p.Slug) },
	"product_description": func(p domain.Product) any { return p.Description },
	"product_price":       func(p domain.Product) any { return p.Price },
	"product_quantity":    func(p domain.Product) any { return p.Quantity },
	"product_category":    func(p domain.Product) any { return p.Category },
	"product_brand":       func(p domain.Product) any { return p.Brand },
	"rating":              func(p domain.Product) any { return p.Rating },
	"in_stock":            func(p domain.Product) any { return p.InStock },
	"created_at":          func(p domain.Product) any { return p.CreatedAt },
	"sku":                 func(p domain.Product) any { return p.SKU },
	"discount_percentage": func(p domain.Product) any { return p.DiscountPercentage },
	"is_featured":         func(p domain.Product) any { return p.IsFeatured },
	"shipping_weight":     func(p domain.Product) any { return p.ShippingWeight },
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Sortable reports whether field can be sorted on
func Sortable(field string) bool {
	_, ok := sortValues[field]
	return ok
}

// SortProducts returns a sorted copy of rows. Numeric values, including
// numeric text such as prices, compare as numbers and come before other
// text, which compares by the collation of tag; booleans put false first.
// Rows whose value cannot be compared at all, such as a missing slug, keep
// their positions while the others are sorted around them.
func SortProducts(rows []domain.Product, field string, dir domain.SortDirection, tag language.Tag) []domain.Product {
	out := make([]domain.Product, len(rows))
	copy(out, rows)

	value, ok := sortValues[field]
	if !ok || dir == domain.SortNone || len(out) < 2 {
		return out
	}

	type keyed struct {
		key     sortKey
		product domain.Product
	}
	var (
		slots    []int
		sortable []keyed
	)
	for i, p := range out {
		if key, ok := keyOf(value(p)); ok {
			slots = append(slots, i)
			sortable = append(sortable, keyed{key: key, product: p})
		}
	}

	col := collate.New(tag)
	sort.SliceStable(sortable, func(i, j int) bool {
		c := sortable[i].key.compare(col, sortable[j].key)
		if dir == domain.SortDesc {
			return c > 0
		}
		return c < 0
	})
	for i, slot := range slots {
		out[slot] = sortable[i].product
	}
	return out
}

// Key classes in ascending order. Values of different classes never share
// a column except numbers and text, so ordering by class keeps the
// comparison transitive.
const (
	classNumber = iota
	classText
	classBool
	classTime
)

type sortKey struct {
	class int
	num   decimal.Decimal
	text  string
	flag  bool
	at    time.Time
}

func keyOf(v any) (sortKey, bool) {
	if n, ok := numeric(v); ok {
		return sortKey{class: classNumber, num: n}, true
	}
	switch tv := v.(type) {
	case string:
		return sortKey{class: classText, text: tv}, true
	case bool:
		return sortKey{class: classBool, flag: tv}, true
	case time.Time:
		return sortKey{class: classTime, at: tv}, true
	}
	return sortKey{}, false
}

func (k sortKey) compare(col *collate.Collator, other sortKey) int {
	if k.class != other.class {
		if k.class < other.class {
			return -1
		}
		return 1
	}

	switch k.class {
	case classNumber:
		return k.num.Cmp(other.num)
	case classText:
		return col.CompareString(k.text, other.text)
	case classBool:
		switch {
		case k.flag == other.flag:
			return 0
		case !k.flag:
			return -1
		default:
			return 1
		}
	default:
		return k.at.Compare(other.at)
	}
}

func numeric(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}
