// Package form validates the product form and turns it into the payload
// the backend expects.
package form

import (
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"catalog-admin/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
}

var maxRating = decimal.NewFromInt(5)

// Values is the product form as typed by the user. Decimal fields stay
// text until they are validated.
type Values struct {
	Name               string `form:"product_name" validate:"required"`
	Description        string `form:"product_description"`
	Price              string `form:"product_price" validate:"required"`
	Quantity           int    `form:"product_quantity" validate:"gte=0"`
	Category           string `form:"product_category" validate:"required"`
	Brand              string `form:"product_brand" validate:"required"`
	Rating             string `form:"rating"`
	InStock            bool   `form:"in_stock"`
	SKU                string `form:"sku" validate:"required"`
	DiscountPercentage int    `form:"discount_percentage" validate:"gte=0,lte=100"`
	IsFeatured         bool   `form:"is_featured"`
	ShippingWeight     string `form:"shipping_weight"`
}

// Initial returns the values of an empty create form
func Initial() Values {
	return Values{
		Rating:         "0.0",
		InStock:        true,
		ShippingWeight: "0",
	}
}

// FromProduct pre-fills the edit form
func FromProduct(p domain.Product) Values {
	return Values{
		Name:               p.Name,
		Description:        p.Description,
		Price:              p.Price,
		Quantity:           p.Quantity,
		Category:           p.Category,
		Brand:              p.Brand,
		Rating:             p.Rating,
		InStock:            p.InStock,
		SKU:                p.SKU,
		DiscountPercentage: p.DiscountPercentage,
		IsFeatured:         p.IsFeatured,
		ShippingWeight:     p.ShippingWeight,
	}
}

// Decode reads a submitted form. Integer fields that do not parse are
// reported with the returned field errors.
func Decode(form url.Values) (Values, map[string]string) {
	errs := map[string]string{}
	v := Values{
		Name:           strings.TrimSpace(form.Get("product_name")),
		Description:    strings.TrimSpace(form.Get("product_description")),
		Price:          strings.TrimSpace(form.Get("product_price")),
		Category:       strings.TrimSpace(form.Get("product_category")),
		Brand:          strings.TrimSpace(form.Get("product_brand")),
		Rating:         strings.TrimSpace(form.Get("rating")),
		InStock:        checked(form.Get("in_stock")),
		SKU:            strings.TrimSpace(form.Get("sku")),
		IsFeatured:     checked(form.Get("is_featured")),
		ShippingWeight: strings.TrimSpace(form.Get("shipping_weight")),
	}

	if n, ok := parseInt(form.Get("product_quantity")); ok {
		v.Quantity = n
	} else {
		errs["product_quantity"] = "Quantity must be a whole number"
	}
	if n, ok := parseInt(form.Get("discount_percentage")); ok {
		v.DiscountPercentage = n
	} else {
		errs["discount_percentage"] = "Discount must be between 0 and 100"
	}

	return v, errs
}

func checked(s string) bool {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

var messages = map[string]string{
	"product_name":        "Product name is required",
	"product_category":    "Category is required",
	"product_brand":       "Brand is required",
	"sku":                 "SKU is required",
	"product_price":       "Price is required",
	"product_quantity":    "Quantity cannot be negative",
	"discount_percentage": "Discount must be between 0 and 100",
}

// Validate returns the first error per field; an empty map means the form
// can be submitted.
func Validate(v Values) map[string]string {
	errs := map[string]string{}

	trimmed := v
	trimmed.Name = strings.TrimSpace(v.Name)
	trimmed.Category = strings.TrimSpace(v.Category)
	trimmed.Brand = strings.TrimSpace(v.Brand)
	trimmed.SKU = strings.TrimSpace(v.SKU)
	trimmed.Price = strings.TrimSpace(v.Price)

	if err := validate.Struct(trimmed); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				if _, seen := errs[fe.Field()]; !seen {
					errs[fe.Field()] = messages[fe.Field()]
				}
			}
		}
	}

	if _, missing := errs["product_price"]; !missing {
		if d, err := decimal.NewFromString(trimmed.Price); err != nil || d.IsNegative() {
			errs["product_price"] = "Price must be a positive number"
		}
	}

	if rating := strings.TrimSpace(v.Rating); rating != "" {
		if d, err := decimal.NewFromString(rating); err != nil || d.IsNegative() || d.GreaterThan(maxRating) {
			errs["rating"] = "Rating must be between 0 and 5"
		}
	}

	if weight := strings.TrimSpace(v.ShippingWeight); weight != "" {
		if d, err := decimal.NewFromString(weight); err != nil || d.IsNegative() {
			errs["shipping_weight"] = "Shipping weight must be a positive number"
		}
	}

	return errs
}

// Payload converts validated values into a full create payload. Decimal
// text is normalized, so "4.50" is sent as "4.5".
func Payload(v Values) domain.ProductInput {
	name := strings.TrimSpace(v.Name)
	description := strings.TrimSpace(v.Description)
	price := normalizeDecimal(v.Price)
	category := strings.TrimSpace(v.Category)
	brand := strings.TrimSpace(v.Brand)
	rating := normalizeDecimal(v.Rating)
	sku := strings.TrimSpace(v.SKU)
	weight := normalizeDecimal(v.ShippingWeight)
	quantity := v.Quantity
	discount := v.DiscountPercentage
	inStock := v.InStock
	featured := v.IsFeatured

	return domain.ProductInput{
		Name:               &name,
		Description:        &description,
		Price:              &price,
		Quantity:           &quantity,
		Category:           &category,
		Brand:              &brand,
		Rating:             &rating,
		InStock:            &inStock,
		SKU:                &sku,
		DiscountPercentage: &discount,
		IsFeatured:         &featured,
		ShippingWeight:     &weight,
	}
}

// Diff returns the partial update payload holding only the fields of v
// that differ from original.
func Diff(original domain.Product, v Values) domain.ProductInput {
	full := Payload(v)
	var in domain.ProductInput

	if *full.Name != original.Name {
		in.Name = full.Name
	}
	if *full.Description != original.Description {
		in.Description = full.Description
	}
	if !sameDecimal(*full.Price, original.Price) {
		in.Price = full.Price
	}
	if *full.Quantity != original.Quantity {
		in.Quantity = full.Quantity
	}
	if *full.Category != original.Category {
		in.Category = full.Category
	}
	if *full.Brand != original.Brand {
		in.Brand = full.Brand
	}
	if !sameDecimal(*full.Rating, original.Rating) {
		in.Rating = full.Rating
	}
	if *full.InStock != original.InStock {
		in.InStock = full.InStock
	}
	if *full.SKU != original.SKU {
		in.SKU = full.SKU
	}
	if *full.DiscountPercentage != original.DiscountPercentage {
		in.DiscountPercentage = full.DiscountPercentage
	}
	if *full.IsFeatured != original.IsFeatured {
		in.IsFeatured = full.IsFeatured
	}
	if !sameDecimal(*full.ShippingWeight, original.ShippingWeight) {
		in.ShippingWeight = full.ShippingWeight
	}

	return in
}

func normalizeDecimal(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "0"
	}
	return d.String()
}

func sameDecimal(a, b string) bool {
	da, errA := decimal.NewFromString(strings.TrimSpace(a))
	db, errB := decimal.NewFromString(strings.TrimSpace(b))
	if errA != nil || errB != nil {
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	}
	return da.Equal(db)
}
