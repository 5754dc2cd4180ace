package cart

import "github.com/xenking/storefront-cart/internal/domain/product"

// ProductRef points at a product either by bare id or by a resolved record.
// The zero value is an empty bare reference.
type ProductRef struct {
	id       string
	resolved *product.Product
}

// ByID returns a bare reference to the product with the given id.
func ByID(id string) ProductRef {
	return ProductRef{id: id}
}

// Resolved returns a reference carrying the full product record.
func Resolved(p product.Product) ProductRef {
	return ProductRef{resolved: &p}
}

// ID returns the product id regardless of representation.
func (r ProductRef) ID() string {
	if r.resolved != nil {
		return r.resolved.ID
	}
	return r.id
}

// Product returns the resolved record, if present.
func (r ProductRef) Product() (product.Product, bool) {
	if r.resolved == nil {
		return product.Product{}, false
	}
	return *r.resolved, true
}

// IsResolved reports whether r holds a full product record.
func (r ProductRef) IsResolved() bool {
	return r.resolved != nil
}

// Same reports whether both references point at the same product.
func (r ProductRef) Same(other ProductRef) bool {
	return r.ID() == other.ID()
}

// Flatten drops the resolved record, keeping only the id.
func (r ProductRef) Flatten() ProductRef {
	return ByID(r.ID())
}

// unitPrice is the price contributed to the total; bare references are not
// hydrated yet and count as zero.
func (r ProductRef) unitPrice() int64 {
	if r.resolved == nil {
		return 0
	}
	return r.resolved.Price
}
