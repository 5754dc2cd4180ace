package product

import (
	"testing"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_Decode(t *testing.T) {
	for _, tt := range []struct {
		name  string
		input string
		want  Product
	}{
		{
			name:  "Full",
			input: `{"id":"A","title":"Lamp","slug":"lamp","category":"Home","price":1999,"image":{"url":"/a.png","alt":"A lamp"},"stripeProductID":"prod_1"}`,
			want: Product{
				ID: "A", Title: "Lamp", Slug: "lamp", Category: "Home", Price: 1999,
				Image: Media{URL: "/a.png", Alt: "A lamp"}, StripeProductID: "prod_1",
			},
		},
		{
			name:  "NumericIDAndStringPrice",
			input: `{"id":42,"title":"Mug","price":"500","createdAt":"2024-01-01"}`,
			want:  Product{ID: "42", Title: "Mug", Price: 500},
		},
		{
			name:  "MetaImage",
			input: `{"id":"A","meta":{"title":"SEO","image":{"url":"/m.png"}}}`,
			want:  Product{ID: "A", Image: Media{URL: "/m.png"}},
		},
		{
			name:  "UnpopulatedImage",
			input: `{"id":"A","image":"media-1","price":null,"slug":null}`,
			want:  Product{ID: "A"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var p Product
			require.NoError(t, p.Decode(jx.DecodeStr(tt.input)))
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestProduct_DecodeInvalid(t *testing.T) {
	for _, input := range []string{
		`[]`,
		`{"id":"A","price":"cheap"}`,
		`{"id":"A","price":1.5}`,
		`{"id":true}`,
	} {
		var p Product
		assert.Error(t, p.Decode(jx.DecodeStr(input)), input)
	}
}

func TestProduct_EncodeDecode(t *testing.T) {
	in := Product{ID: "A", Title: "Lamp", Price: 1999, Image: Media{URL: "/a.png"}}

	var e jx.Encoder
	in.Encode(&e)
	assert.JSONEq(t, `{"id":"A","title":"Lamp","price":1999,"image":{"url":"/a.png","alt":""}}`, e.String())

	var out Product
	require.NoError(t, out.Decode(jx.DecodeBytes(e.Bytes())))
	assert.Equal(t, in, out)
}
