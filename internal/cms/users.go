package cms

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/identity"
)

var _ cart.RemoteStore = (*Client)(nil)

// User is a storefront customer together with the cart saved for them.
type User struct {
	ID    string
	Email string
	Name  string
	Cart  cart.Cart
}

func (u *User) decode(d *jx.Decoder) error {
	*u = User{Cart: cart.Empty()}
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			u.ID, err = str(d)
		case "email":
			u.Email, err = str(d)
		case "name":
			u.Name, err = str(d)
		case "cart":
			if err = u.Cart.Decode(d); err == nil {
				u.Cart = cart.Normalize(u.Cart)
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %q", key)
		}
		return nil
	})
}

// decodeUserField reads the "user" member of a response object. A null user
// leaves *u nil.
func decodeUserField(u **User, token *string) func(d *jx.Decoder) error {
	return func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "user":
				if d.Next() == jx.Null {
					return d.Null()
				}
				var v User
				if err := v.decode(d); err != nil {
					return err
				}
				*u = &v
				return nil
			case "token":
				if token == nil {
					return d.Skip()
				}
				s, err := str(d)
				*token = s
				return err
			default:
				return d.Skip()
			}
		})
	}
}

// Me returns the signed-in user, or nil when the session is anonymous.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u *User
	err := c.do(ctx, request{
		op:     "get me",
		method: http.MethodGet,
		path:   "/api/users/me",
		query:  url.Values{"depth": {"1"}},
		decode: decodeUserField(&u, nil),
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// Identity resolves the current identity state.
func (c *Client) Identity(ctx context.Context) (identity.State, error) {
	u, err := c.Me(ctx)
	if err != nil {
		return identity.LoadingState(), err
	}
	if u == nil {
		return identity.AnonymousState(), nil
	}
	return identity.AuthenticatedState(u.ID, u.Email, u.Cart), nil
}

// Login signs in with email and password and returns the user with the
// session token.
func (c *Client) Login(ctx context.Context, email, password string) (*User, string, error) {
	var (
		u     *User
		token string
	)
	err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/api/users/login",
		body: func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("email")
			e.Str(email)
			e.FieldStart("password")
			e.Str(password)
			e.ObjEnd()
		},
		decode: decodeUserField(&u, &token),
	})
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		return nil, "", errors.New("login: response has no user")
	}
	return u, token, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{
		op:     "logout",
		method: http.MethodPost,
		path:   "/api/users/logout",
	})
}

// OverwriteCart replaces the saved cart of the user. Products are sent as
// bare ids.
func (c *Client) OverwriteCart(ctx context.Context, userID string, v cart.Cart) error {
	if userID == "" {
		return errors.New("overwrite cart: empty user id")
	}
	flat := v.Flatten()
	return c.do(ctx, request{
		op:     "overwrite cart",
		method: http.MethodPatch,
		path:   "/api/users/" + url.PathEscape(userID),
		body: func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("cart")
			flat.Encode(e)
			e.ObjEnd()
		},
	})
}

func str(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return d.Str()
	}
}
