package listing

import (
	"catalog-admin/internal/apperror"
	"catalog-admin/internal/domain"
)

// OptimisticDelete removes the product identified by idOrSlug from the
// current page before the server has confirmed anything. It returns the
// remaining rows, the decremented total and the removed product. When the
// product is not on the page it fails with *apperror.NotFoundError and
// nothing changes. Restoring rows and total after a failed server delete
// is up to the caller.
func OptimisticDelete(rows []domain.Product, total int, idOrSlug string) ([]domain.Product, int, domain.Product, error) {
	idx := -1
	for i, p := range rows {
		if p.Matches(idOrSlug) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return rows, total, domain.Product{}, &apperror.NotFoundError{Identifier: idOrSlug}
	}

	target := rows[idx]
	remaining := make([]domain.Product, 0, len(rows)-1)
	for _, p := range rows {
		if sameProduct(p, target) {
			continue
		}
		remaining = append(remaining, p)
	}

	if total > 0 {
		total--
	}
	return remaining, total, target, nil
}

func sameProduct(a, b domain.Product) bool {
	if a.ID == b.ID {
		return true
	}
	return a.Slug != nil && b.Slug != nil && *a.Slug == *b.Slug
}
