// Package cart holds the shopping cart value and the pure operations on it.
//
// Every operation returns a new Cart and leaves the receiver untouched, so a
// Cart handed to a reader is never mutated underneath it. Two invariants hold
// for every Cart produced here: at most one Item per product id, and every
// quantity is positive.
package cart

import "slices"

// Item is a single product line in the cart.
type Item struct {
	Product  ProductRef
	Quantity int
}

// Cart is an ordered list of items. Order is insertion order.
type Cart struct {
	Items []Item
}

// Empty returns a cart without items.
func Empty() Cart {
	return Cart{Items: []Item{}}
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}

// IsEmpty reports whether the cart has no items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Count returns the number of distinct products in the cart.
func (c Cart) Count() int {
	return len(c.Items)
}

// Index returns the position of the item for the given product, or -1.
func (c Cart) Index(ref ProductRef) int {
	return slices.IndexFunc(c.Items, func(it Item) bool {
		return it.Product.Same(ref)
	})
}

// Contains reports whether the product is in the cart.
func (c Cart) Contains(ref ProductRef) bool {
	return c.Index(ref) >= 0
}

// Quantity returns the quantity held for the product, 0 when absent.
func (c Cart) Quantity(ref ProductRef) int {
	if i := c.Index(ref); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// Add appends the product or, when it is already present, increments its
// quantity. Quantities below 1 are clamped to 1.
func (c Cart) Add(ref ProductRef, quantity int) Cart {
	if quantity < 1 {
		quantity = 1
	}
	out := c.Clone()
	if i := out.Index(ref); i >= 0 {
		out.Items[i].Quantity += quantity
		return out
	}
	out.Items = append(out.Items, Item{Product: ref, Quantity: quantity})
	return out
}

// SetQuantity overwrites the quantity of the product, appending it when
// absent. A quantity of zero or less removes the product.
func (c Cart) SetQuantity(ref ProductRef, quantity int) Cart {
	if quantity <= 0 {
		return c.Remove(ref)
	}
	out := c.Clone()
	if i := out.Index(ref); i >= 0 {
		out.Items[i].Quantity = quantity
		return out
	}
	out.Items = append(out.Items, Item{Product: ref, Quantity: quantity})
	return out
}

// Remove deletes the product's item outright. Removing an absent product
// returns an unchanged copy.
func (c Cart) Remove(ref ProductRef) Cart {
	out := c.Clone()
	if i := out.Index(ref); i >= 0 {
		out.Items = slices.Delete(out.Items, i, i+1)
	}
	return out
}

// Flatten returns a copy with every product reduced to its bare id.
func (c Cart) Flatten() Cart {
	out := c.Clone()
	for i := range out.Items {
		out.Items[i].Product = out.Items[i].Product.Flatten()
	}
	return out
}

// Unresolved returns the ids of products that are held by bare id only.
func (c Cart) Unresolved() []string {
	var ids []string
	for _, it := range c.Items {
		if !it.Product.IsResolved() {
			ids = append(ids, it.Product.ID())
		}
	}
	return ids
}

// Total returns the sum of unit price times quantity in minor units. Items
// held by bare id contribute nothing.
func (c Cart) Total() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.Product.unitPrice() * int64(it.Quantity)
	}
	return total
}

// Normalize folds duplicate products together and drops items without an id
// or with a non-positive quantity. It is used on data read from storage.
func Normalize(c Cart) Cart {
	return fold(c.Items)
}
