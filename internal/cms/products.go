package cms

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-cart/internal/domain/product"
)

var _ product.Repository = (*Client)(nil)

// GetByIDs returns the published products with the given ids. Unknown ids
// are left out of the result.
func (c *Client) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []product.Product
	err := c.do(ctx, request{
		op:     "get products",
		method: http.MethodGet,
		path:   "/api/products",
		query: url.Values{
			"where[id][in]": {strings.Join(ids, ",")},
			"depth":         {"1"},
			"limit":         {strconv.Itoa(len(ids))},
		},
		decode: func(d *jx.Decoder) error {
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "docs" {
					return d.Skip()
				}
				return d.Arr(func(d *jx.Decoder) error {
					var p product.Product
					if err := p.Decode(d); err != nil {
						return errors.Wrapf(err, "doc %d", len(products))
					}
					products = append(products, p)
					return nil
				})
			})
		},
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}
