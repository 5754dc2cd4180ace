package product

import "context"

// Product is a fully resolved catalog record as served by the CMS.
type Product struct {
	ID       string
	Title    string
	Slug     string
	Category string
	// Price is the unit price in minor currency units (cents).
	Price           int64
	Image           Media
	StripeProductID string
}

// Media is the product's primary image.
type Media struct {
	URL string
	Alt string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
