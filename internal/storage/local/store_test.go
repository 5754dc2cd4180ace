package local

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/product"
)

type mapKV map[string][]byte

func (m mapKV) Get(key string) ([]byte, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m mapKV) Set(key string, value []byte) error {
	m[key] = value
	return nil
}

func (m mapKV) Delete(key string) error {
	delete(m, key)
	return nil
}

func TestStore_RoundTrip(t *testing.T) {
	s := NewStore(NewFileKV(t.TempDir()))

	_, ok, err := s.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	in := cart.Empty().
		Add(cart.Resolved(product.Product{ID: "A", Title: "Lamp", Price: 1999}), 2).
		Add(cart.ByID("B"), 1)
	require.NoError(t, s.Save(in))

	out, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, out.Items, 2)
	assert.Equal(t, in.Total(), out.Total())
	p, resolved := out.Items[0].Product.Product()
	require.True(t, resolved)
	assert.Equal(t, "Lamp", p.Title)
	assert.Equal(t, "B", out.Items[1].Product.ID())

	require.NoError(t, s.Clear())
	_, ok, err = s.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LoadTolerance(t *testing.T) {
	for _, tt := range []struct {
		name  string
		data  string
		ok    bool
		items int
	}{
		{name: "Garbage", data: `not json`},
		{name: "WrongShape", data: `{"items":{"A":1}}`},
		{name: "Empty", data: ``},
		{name: "Null", data: `null`, ok: true},
		{name: "Duplicates", data: `{"items":[{"product":"A","quantity":1},{"product":"A","quantity":2}]}`, ok: true, items: 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(mapKV{CartKey: []byte(tt.data)})
			c, ok, err := s.Load()
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.NotNil(t, c.Items)
			assert.Len(t, c.Items, tt.items)
		})
	}
}

func TestStore_Unavailable(t *testing.T) {
	s := NewStore(Unavailable{})

	_, _, err := s.Load()
	require.ErrorIs(t, err, cart.ErrUnavailable)
	require.True(t, errors.Is(s.Save(cart.Empty()), cart.ErrUnavailable))
	require.ErrorIs(t, s.Clear(), cart.ErrUnavailable)
}

func TestCredentials(t *testing.T) {
	kv := mapKV{}
	c := NewCredentials(kv)

	token, err := c.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, c.SetToken("jwt-token"))
	token, err = c.Token()
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)

	require.NoError(t, c.ClearToken())
	token, err = c.Token()
	require.NoError(t, err)
	assert.Empty(t, token)

	token, err = NewCredentials(Unavailable{}).Token()
	require.NoError(t, err)
	assert.Empty(t, token)
}
