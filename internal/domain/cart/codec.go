package cart

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-cart/internal/domain/product"
)

// Encode writes c as {"items":[...]}. Resolved products are written as
// objects and bare references as id strings.
func (c Cart) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range c.Items {
		it.Encode(e)
	}
	e.ArrEnd()
	e.ObjEnd()
}

// Decode reads a cart snapshot. A null cart or null items decode as empty.
func (c *Cart) Decode(d *jx.Decoder) error {
	*c = Empty()
	if d.Next() == jx.Null {
		return d.Null()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var it Item
			if err := it.Decode(d); err != nil {
				return errors.Wrapf(err, "item %d", len(c.Items))
			}
			c.Items = append(c.Items, it)
			return nil
		})
	})
}

// MarshalJSON implements json.Marshaler.
func (c Cart) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	c.Encode(&e)
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cart) UnmarshalJSON(data []byte) error {
	return c.Decode(jx.DecodeBytes(data))
}

// Encode writes the item as {"product":...,"quantity":n}.
func (it Item) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("product")
	it.Product.Encode(e)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.ObjEnd()
}

// Decode reads an item. Quantities sent as numeric strings are accepted.
func (it *Item) Decode(d *jx.Decoder) error {
	*it = Item{}
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product":
			return it.Product.Decode(d)
		case "quantity":
			q, err := decodeQuantity(d)
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			it.Quantity = q
			return nil
		default:
			return d.Skip()
		}
	})
}

// Encode writes the reference as an id string or a product object.
func (r ProductRef) Encode(e *jx.Encoder) {
	if p, ok := r.Product(); ok {
		p.Encode(e)
		return
	}
	e.Str(r.id)
}

// Decode reads either representation of a product reference. A null
// reference, sent for a deleted product, decodes as the zero value and is
// dropped when the cart is normalized.
func (r *ProductRef) Decode(d *jx.Decoder) error {
	switch d.Next() {
	case jx.Null:
		*r = ProductRef{}
		return d.Null()
	case jx.String:
		id, err := d.Str()
		if err != nil {
			return err
		}
		*r = ByID(id)
		return nil
	case jx.Object:
		var p product.Product
		if err := p.Decode(d); err != nil {
			return errors.Wrap(err, "product")
		}
		*r = Resolved(p)
		return nil
	default:
		return errors.Errorf("unexpected product reference type %s", d.Next())
	}
}

func decodeQuantity(d *jx.Decoder) (int, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		return strconv.Atoi(s)
	}
	return d.Int()
}
