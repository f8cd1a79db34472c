package listing

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{25, 10, 3},
		{30, 10, 3},
		{0, 10, 1},
		{1, 30, 1},
		{31, 30, 2},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestShowingRange(t *testing.T) {
	tests := []struct {
		name                    string
		page, size, rows, total int
		from, to                int
	}{
		{"last partial page", 3, 10, 5, 25, 21, 25},
		{"first page", 1, 10, 10, 25, 1, 10},
		{"empty", 1, 10, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := ShowingRange(tt.page, tt.size, tt.rows, tt.total)
			if from != tt.from || to != tt.to {
				t.Errorf("ShowingRange = %d..%d, want %d..%d", from, to, tt.from, tt.to)
			}
		})
	}
}

func TestPageWindow(t *testing.T) {
	gap := PageItem{Ellipsis: true}
	tests := []struct {
		name        string
		page, total int
		want        []PageItem
	}{
		{"single page", 1, 1, []PageItem{{Number: 1, Current: true}}},
		{"three pages", 2, 3, []PageItem{{Number: 1}, {Number: 2, Current: true}, {Number: 3}}},
		{"middle of many", 5, 10, []PageItem{
			{Number: 1}, gap, {Number: 4}, {Number: 5, Current: true}, {Number: 6}, gap, {Number: 10},
		}},
		{"last of many", 10, 10, []PageItem{
			{Number: 1}, gap, {Number: 9}, {Number: 10, Current: true},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageWindow(tt.page, tt.total); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PageWindow(%d, %d) = %+v, want %+v", tt.page, tt.total, got, tt.want)
			}
		})
	}
}

// Property: the showing range stays within the total count
func TestProperty_ShowingRangeWithinTotal(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("range never exceeds total", prop.ForAll(
		func(total, sizeStep, page int) bool {
			size := sizeStep * 10
			totalPages := TotalPages(total, size)
			if page > totalPages {
				page = totalPages
			}
			rows := 0
			if start := (page - 1) * size; start < total {
				rows = min(size, total-start)
			}

			from, to := ShowingRange(page, size, rows, total)
			return to <= total && from <= to && (rows == 0 || from >= 1)
		},
		gen.IntRange(0, 500),
		gen.IntRange(1, 3),
		gen.IntRange(1, 60),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
