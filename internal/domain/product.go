package domain

import (
	"strconv"
	"time"
)

// Product represents a product record as served by the catalog backend
type Product struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"product_name"`
	Slug               *string   `json:"slug"`
	Description        string    `json:"product_description"`
	Price              string    `json:"product_price"`
	Quantity           int       `json:"product_quantity"`
	Category           string    `json:"product_category"`
	Brand              string    `json:"product_brand"`
	Rating             string    `json:"rating"`
	InStock            bool      `json:"in_stock"`
	CreatedAt          time.Time `json:"created_at"`
	SKU                string    `json:"sku"`
	DiscountPercentage int       `json:"discount_percentage"`
	IsFeatured         bool      `json:"is_featured"`
	ShippingWeight     string    `json:"shipping_weight"`
}

// Key returns the external identifier used in detail, update and delete
// URLs: the slug when the product has one, the numeric id otherwise.
func (p Product) Key() string {
	if p.Slug != nil && *p.Slug != "" {
		return *p.Slug
	}
	return strconv.FormatInt(p.ID, 10)
}

// Matches reports whether idOrSlug identifies this product.
func (p Product) Matches(idOrSlug string) bool {
	if idOrSlug == "" {
		return false
	}
	if p.Slug != nil && *p.Slug == idOrSlug {
		return true
	}
	return strconv.FormatInt(p.ID, 10) == idOrSlug
}

// ProductInput is the create/update payload. Nil fields are omitted so that
// an update only carries what changed.
type ProductInput struct {
	Name               *string `json:"product_name,omitempty"`
	Description        *string `json:"product_description,omitempty"`
	Price              *string `json:"product_price,omitempty"`
	Quantity           *int    `json:"product_quantity,omitempty"`
	Category           *string `json:"product_category,omitempty"`
	Brand              *string `json:"product_brand,omitempty"`
	Rating             *string `json:"rating,omitempty"`
	InStock            *bool   `json:"in_stock,omitempty"`
	SKU                *string `json:"sku,omitempty"`
	DiscountPercentage *int    `json:"discount_percentage,omitempty"`
	IsFeatured         *bool   `json:"is_featured,omitempty"`
	ShippingWeight     *string `json:"shipping_weight,omitempty"`
}

// IsEmpty reports whether the payload carries no field at all
func (in ProductInput) IsEmpty() bool {
	return in.Name == nil && in.Description == nil && in.Price == nil &&
		in.Quantity == nil && in.Category == nil && in.Brand == nil &&
		in.Rating == nil && in.InStock == nil && in.SKU == nil &&
		in.DiscountPercentage == nil && in.IsFeatured == nil && in.ShippingWeight == nil
}
