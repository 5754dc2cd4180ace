package cms

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/identity"
	"github.com/xenking/storefront-cart/internal/domain/product"
)

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

// newTestClient starts a CMS stub answering every request with status and
// body, and records the requests it receives.
func newTestClient(t *testing.T, token string, status int, body string) (*Client, *[]recorded) {
	t.Helper()
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		reqs = append(reqs, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   string(data),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", Tokens: staticToken(token)})
	require.NoError(t, err)
	return c, &reqs
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestClient_IdentityAnonymous(t *testing.T) {
	for _, tt := range []struct {
		name   string
		status int
		body   string
	}{
		{name: "NullUser", status: http.StatusOK, body: `{"user":null}`},
		{name: "Unauthorized", status: http.StatusUnauthorized, body: `{"errors":[{"message":"Unauthorized"}]}`},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, reqs := newTestClient(t, "", tt.status, tt.body)

			s, err := c.Identity(context.Background())
			require.NoError(t, err)
			assert.Equal(t, identity.Anonymous, s.Kind)

			require.Len(t, *reqs, 1)
			assert.Equal(t, "/api/users/me", (*reqs)[0].path)
			assert.Equal(t, "depth=1", (*reqs)[0].query)
			assert.Empty(t, (*reqs)[0].auth)
		})
	}
}

func TestClient_IdentityAuthenticated(t *testing.T) {
	c, reqs := newTestClient(t, "tkn", http.StatusOK, `{
		"user": {
			"id": 7,
			"email": "ann@example.com",
			"name": null,
			"roles": ["customer"],
			"cart": {"items": [
				{"product": {"id": "A", "title": "Lamp", "price": 1999}, "quantity": 2},
				{"product": "B", "quantity": "1"}
			]}
		},
		"exp": 1700000000
	}`)

	s, err := c.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, identity.Authenticated, s.Kind)
	assert.Equal(t, "7", s.ID)
	assert.Equal(t, "ann@example.com", s.Email)
	require.Len(t, s.Cart.Items, 2)
	assert.True(t, s.Cart.Items[0].Product.IsResolved())
	assert.Equal(t, "B", s.Cart.Items[1].Product.ID())
	assert.Equal(t, 1, s.Cart.Items[1].Quantity)

	assert.Equal(t, "JWT tkn", (*reqs)[0].auth)
}

func TestClient_IdentityDeletedProduct(t *testing.T) {
	c, _ := newTestClient(t, "tkn", http.StatusOK, `{
		"user": {
			"id": "u1",
			"email": "ann@example.com",
			"cart": {"items": [
				{"product": null, "quantity": 3},
				{"product": {"id": "A", "title": "Lamp", "price": 1999}, "quantity": 1}
			]}
		}
	}`)

	s, err := c.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, identity.Authenticated, s.Kind)
	require.Len(t, s.Cart.Items, 1)
	assert.Equal(t, "A", s.Cart.Items[0].Product.ID())
	assert.Equal(t, 1, s.Cart.Items[0].Quantity)
}

func TestClient_IdentityError(t *testing.T) {
	c, _ := newTestClient(t, "", http.StatusInternalServerError, `{"errors":[{"message":"db down"}]}`)

	s, err := c.Identity(context.Background())
	require.Error(t, err)
	assert.Equal(t, identity.Loading, s.Kind)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "db down", se.Message)
	assert.Equal(t, "get me: status 500: db down", se.Error())
}

func TestClient_Login(t *testing.T) {
	c, reqs := newTestClient(t, "", http.StatusOK,
		`{"message":"Auth Passed","user":{"id":"u1","email":"ann@example.com"},"token":"new-token"}`)

	u, token, err := c.Login(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "new-token", token)
	assert.Empty(t, u.Cart.Items)

	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodPost, (*reqs)[0].method)
	assert.Equal(t, "/api/users/login", (*reqs)[0].path)
	assert.JSONEq(t, `{"email":"ann@example.com","password":"secret"}`, (*reqs)[0].body)
}

func TestClient_LoginRejected(t *testing.T) {
	c, _ := newTestClient(t, "", http.StatusUnauthorized,
		`{"errors":[{"message":"The email or password provided is incorrect."}]}`)

	_, _, err := c.Login(context.Background(), "ann@example.com", "wrong")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "The email or password provided is incorrect.", se.Message)
}

func TestClient_Logout(t *testing.T) {
	c, reqs := newTestClient(t, "tkn", http.StatusOK, `{"message":"You have been logged out successfully."}`)

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, http.MethodPost, (*reqs)[0].method)
	assert.Equal(t, "/api/users/logout", (*reqs)[0].path)
	assert.Equal(t, "JWT tkn", (*reqs)[0].auth)
}

func TestClient_OverwriteCart(t *testing.T) {
	c, reqs := newTestClient(t, "tkn", http.StatusOK, `{"doc":{"id":"u1"}}`)

	v := cart.Empty().
		Add(cart.Resolved(product.Product{ID: "A", Title: "Lamp", Price: 1999}), 2).
		Add(cart.ByID("B"), 1)
	require.NoError(t, c.OverwriteCart(context.Background(), "u1", v))

	require.Len(t, *reqs, 1)
	r := (*reqs)[0]
	assert.Equal(t, http.MethodPatch, r.method)
	assert.Equal(t, "/api/users/u1", r.path)
	assert.Equal(t, "JWT tkn", r.auth)
	assert.JSONEq(t,
		`{"cart":{"items":[{"product":"A","quantity":2},{"product":"B","quantity":1}]}}`,
		r.body,
	)
}

func TestClient_OverwriteCartErrors(t *testing.T) {
	c, reqs := newTestClient(t, "tkn", http.StatusForbidden, `{"errors":[{"message":"You are not allowed to perform this action."}]}`)

	require.Error(t, c.OverwriteCart(context.Background(), "", cart.Empty()))
	assert.Empty(t, *reqs)

	err := c.OverwriteCart(context.Background(), "u1", cart.Empty())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestClient_GetByIDs(t *testing.T) {
	c, reqs := newTestClient(t, "", http.StatusOK, `{
		"docs": [
			{"id": "A", "title": "Lamp", "price": 1999, "meta": {"image": {"url": "/a.png", "alt": "lamp"}}},
			{"id": "B", "title": "Mug", "price": "500"}
		],
		"totalDocs": 2
	}`)

	products, err := c.GetByIDs(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1999), products[0].Price)
	assert.Equal(t, "/a.png", products[0].Image.URL)
	assert.Equal(t, int64(500), products[1].Price)

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/api/products", (*reqs)[0].path)
	assert.Equal(t, "depth=1&limit=3&where%5Bid%5D%5Bin%5D=A%2CB%2CC", (*reqs)[0].query)
}

func TestClient_GetByIDsEmpty(t *testing.T) {
	c, reqs := newTestClient(t, "", http.StatusOK, `{"docs":[]}`)

	products, err := c.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Empty(t, *reqs)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "first", errorMessage([]byte(`{"errors":[{"message":"first"},{"message":"second"}]}`)))
	assert.Empty(t, errorMessage([]byte(`<html>bad gateway</html>`)))
	assert.Empty(t, errorMessage(nil))
}
