package cart

// Merge combines the anonymous local cart with the cart saved for the signed-in
// user. Items are folded by product id, local items first: the first
// occurrence of a product keeps its position and product record, later
// occurrences add their quantity to it.
func Merge(local, server Cart) Cart {
	items := make([]Item, 0, len(local.Items)+len(server.Items))
	items = append(items, local.Items...)
	items = append(items, server.Items...)
	return fold(items)
}

func fold(items []Item) Cart {
	out := Cart{Items: make([]Item, 0, len(items))}
	seen := make(map[string]int, len(items))
	for _, it := range items {
		id := it.Product.ID()
		if id == "" || it.Quantity <= 0 {
			continue
		}
		if i, ok := seen[id]; ok {
			out.Items[i].Quantity += it.Quantity
			// A bare id never wins over a record we already hold, but a
			// record can fill in for a bare id seen first.
			if !out.Items[i].Product.IsResolved() && it.Product.IsResolved() {
				out.Items[i].Product = it.Product
			}
			continue
		}
		seen[id] = len(out.Items)
		out.Items = append(out.Items, it)
	}
	return out
}
