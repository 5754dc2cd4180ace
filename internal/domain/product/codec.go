package product

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Encode writes p as a JSON object.
func (p Product) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("title")
	e.Str(p.Title)
	if p.Slug != "" {
		e.FieldStart("slug")
		e.Str(p.Slug)
	}
	if p.Category != "" {
		e.FieldStart("category")
		e.Str(p.Category)
	}
	e.FieldStart("price")
	e.Int64(p.Price)
	if p.Image != (Media{}) {
		e.FieldStart("image")
		e.ObjStart()
		e.FieldStart("url")
		e.Str(p.Image.URL)
		e.FieldStart("alt")
		e.Str(p.Image.Alt)
		e.ObjEnd()
	}
	if p.StripeProductID != "" {
		e.FieldStart("stripeProductID")
		e.Str(p.StripeProductID)
	}
	e.ObjEnd()
}

// Decode reads a product document. Unknown fields are skipped, and the
// image may be given either directly or under "meta".
func (p *Product) Decode(d *jx.Decoder) error {
	*p = Product{}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = decodeID(d)
		case "title":
			p.Title, err = optStr(d)
		case "slug":
			p.Slug, err = optStr(d)
		case "category":
			p.Category, err = optStr(d)
		case "stripeProductID":
			p.StripeProductID, err = optStr(d)
		case "price":
			p.Price, err = decodePrice(d)
		case "image":
			err = p.Image.decode(d)
		case "meta":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				if key == "image" {
					return p.Image.decode(d)
				}
				return d.Skip()
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}
		return nil
	})
}

func (m *Media) decode(d *jx.Decoder) error {
	// At depth 0 the CMS sends the media document id instead of the object.
	if d.Next() != jx.Object {
		return d.Skip()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "url":
			m.URL, err = optStr(d)
		case "alt":
			m.Alt, err = optStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeID(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Number {
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	}
	return optStr(d)
}

func decodePrice(d *jx.Decoder) (int64, error) {
	switch d.Next() {
	case jx.Null:
		return 0, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		return strconv.ParseInt(s, 10, 64)
	default:
		return d.Int64()
	}
}

func optStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
