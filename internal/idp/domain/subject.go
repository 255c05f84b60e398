package domain

import "time"

// Subject is the authenticated end user a request acts on behalf of.
// Client-only grants (client_credentials) have no subject.
type Subject struct {
	// ID is the stable subject identifier ("sub" claim).
	ID string

	// Name is an optional display name.
	Name string

	// AuthenticationMethod is the amr value, e.g. "password".
	AuthenticationMethod string

	// AuthenticationTime is when the user last authenticated.
	AuthenticationTime time.Time

	// IdentityProvider identifies where the user authenticated. Local
	// logins use LocalIdentityProvider.
	IdentityProvider string

	// SessionID identifies the browser session, when known.
	SessionID string

	// ACR is the authentication context class reference, if any.
	ACR string
}
