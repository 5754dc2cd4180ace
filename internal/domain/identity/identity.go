// Package identity describes the authentication signal observed by the cart.
package identity

import "github.com/xenking/storefront-cart/internal/domain/cart"

// Kind enumerates the authentication states.
type Kind int

const (
	// Loading means the current user has not been resolved yet.
	Loading Kind = iota
	// Anonymous means nobody is signed in.
	Anonymous
	// Authenticated means a user is signed in.
	Authenticated
)

func (k Kind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is a single observation of the identity signal.
type State struct {
	Kind  Kind
	ID    string
	Email string
	// Cart is the server-held cart snapshot returned with the user.
	Cart cart.Cart
}

// LoadingState returns the initial, unresolved state.
func LoadingState() State {
	return State{Kind: Loading}
}

// AnonymousState returns the signed-out state.
func AnonymousState() State {
	return State{Kind: Anonymous}
}

// AuthenticatedState returns the signed-in state for the given user.
func AuthenticatedState(id, email string, c cart.Cart) State {
	return State{Kind: Authenticated, ID: id, Email: email, Cart: c}
}
