package listing

import (
	"testing"

	"catalog-admin/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/text/language"
)

func ids(rows []domain.Product) []int64 {
	out := make([]int64, len(rows))
	for i, p := range rows {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSortProducts_Rating(t *testing.T) {
	rows := []domain.Product{
		{ID: 1, Rating: "4.5"},
		{ID: 2, Rating: "2.0"},
		{ID: 3, Rating: "4.5"},
	}

	tests := []struct {
		name string
		dir  domain.SortDirection
		want []int64
	}{
		{"ascending", domain.SortAsc, []int64{2, 1, 3}},
		{"descending", domain.SortDesc, []int64{1, 3, 2}},
		{"none keeps server order", domain.SortNone, []int64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(SortProducts(rows, "rating", tt.dir, language.English))
			if !equalIDs(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}

	if !equalIDs(ids(rows), []int64{1, 2, 3}) {
		t.Error("SortProducts modified its input")
	}
}

func TestSortProducts_NumericText(t *testing.T) {
	rows := []domain.Product{
		{ID: 1, Price: "10.00"},
		{ID: 2, Price: "9.50"},
		{ID: 3, Price: "100"},
	}
	got := ids(SortProducts(rows, "product_price", domain.SortAsc, language.English))
	if want := []int64{2, 1, 3}; !equalIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSortProducts_Text(t *testing.T) {
	rows := []domain.Product{
		{ID: 1, Name: "cherry"},
		{ID: 2, Name: "Banana"},
		{ID: 3, Name: "apple"},
	}
	got := ids(SortProducts(rows, "product_name", domain.SortAsc, language.English))
	if want := []int64{3, 2, 1}; !equalIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSortProducts_Booleans(t *testing.T) {
	rows := []domain.Product{
		{ID: 1, InStock: true},
		{ID: 2, InStock: false},
		{ID: 3, InStock: true},
	}
	got := ids(SortProducts(rows, "in_stock", domain.SortAsc, language.English))
	if want := []int64{2, 1, 3}; !equalIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSortProducts_UncomparableKeepsOrder(t *testing.T) {
	slug := "b"
	rows := []domain.Product{
		{ID: 1},
		{ID: 2, Slug: &slug},
		{ID: 3},
	}
	got := ids(SortProducts(rows, "slug", domain.SortAsc, language.English))
	if want := []int64{1, 2, 3}; !equalIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	got = ids(SortProducts(rows, "no_such_field", domain.SortAsc, language.English))
	if want := []int64{1, 2, 3}; !equalIDs(got, want) {
		t.Errorf("unknown field order = %v, want %v", got, want)
	}
}

func TestSortProducts_MissingValuesKeepPositions(t *testing.T) {
	a, b := "a", "b"
	rows := []domain.Product{
		{ID: 1},
		{ID: 2, Slug: &b},
		{ID: 3},
		{ID: 4, Slug: &a},
	}
	got := ids(SortProducts(rows, "slug", domain.SortAsc, language.English))
	if want := []int64{1, 4, 3, 2}; !equalIDs(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestSortProducts_MixedNumbersAndText(t *testing.T) {
	rows := []domain.Product{
		{ID: 1, ShippingWeight: "1a"},
		{ID: 2, ShippingWeight: "10"},
		{ID: 3, ShippingWeight: "heavy"},
		{ID: 4, ShippingWeight: "9"},
	}

	tests := []struct {
		name string
		dir  domain.SortDirection
		want []int64
	}{
		{"numbers first ascending", domain.SortAsc, []int64{4, 2, 1, 3}},
		{"text first descending", domain.SortDesc, []int64{3, 1, 2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(SortProducts(rows, "shipping_weight", tt.dir, language.English))
			if !equalIDs(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

// Property: a column mixing numbers and text sorts to the same order
// whatever order the rows arrive in
func TestProperty_MixedColumnOrderIsDeterministic(t *testing.T) {
	values := []string{"9", "10", "1a", "2.5", "abc", "B", "100"}
	properties := gopter.NewProperties(nil)

	properties.Property("sorted weights do not depend on input order", prop.ForAll(
		func(perm []int) bool {
			rows := make([]domain.Product, len(values))
			for i, v := range values {
				rows[i] = domain.Product{ID: int64(i), ShippingWeight: v}
			}
			shuffled := make([]domain.Product, 0, len(rows))
			used := make(map[int]bool, len(rows))
			for _, n := range perm {
				idx := n % len(rows)
				for used[idx] {
					idx = (idx + 1) % len(rows)
				}
				used[idx] = true
				shuffled = append(shuffled, rows[idx])
			}
			for i := range rows {
				if !used[i] {
					shuffled = append(shuffled, rows[i])
				}
			}

			want := SortProducts(rows, "shipping_weight", domain.SortAsc, language.English)
			got := SortProducts(shuffled, "shipping_weight", domain.SortAsc, language.English)
			for i := range want {
				if want[i].ShippingWeight != got[i].ShippingWeight {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(len(values), gen.IntRange(0, 100)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: sorting is a permutation and ascending order is non-decreasing
func TestProperty_SortQuantityAscending(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ascending sort orders quantities", prop.ForAll(
		func(quantities []int) bool {
			rows := make([]domain.Product, len(quantities))
			for i, q := range quantities {
				rows[i] = domain.Product{ID: int64(i), Quantity: q}
			}

			sorted := SortProducts(rows, "product_quantity", domain.SortAsc, language.English)
			if len(sorted) != len(rows) {
				return false
			}
			for i := 1; i < len(sorted); i++ {
				prev, cur := sorted[i-1], sorted[i]
				if prev.Quantity > cur.Quantity {
					return false
				}
				// stable: equal keys keep their original order
				if prev.Quantity == cur.Quantity && prev.ID > cur.ID {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 20)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
