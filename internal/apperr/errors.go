// Package apperr holds the error taxonomy shared by the storefront core.
// Callers match with errors.Is; components wrap these with context.
package apperr

import "errors"

var (
	// ErrInvalidCredentials: the backend rejected a login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMalformedToken: a token was issued but carries no readable identity.
	// Login still succeeds with a placeholder identity when this is returned.
	ErrMalformedToken = errors.New("malformed token")
	// ErrRegistrationFailed wraps whatever broke account creation or the login after it.
	ErrRegistrationFailed = errors.New("registration failed")
	// ErrSessionExpired: refresh was impossible or rejected; the local session is gone.
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden: the backend answered 403; the local session is gone.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidQuantity: quantities must be >= 1.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrCartUnavailable: no session or no active cart to operate on.
	ErrCartUnavailable = errors.New("cart unavailable")
	// ErrItemNotFound: the line item is not part of the active cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrNetworkFailure: transport-level failure, nothing was received.
	ErrNetworkFailure = errors.New("network failure")
)
