// Package domain contains core business types and interfaces.
//
// This file defines the Principal type: the resolved identity a request
// acts on behalf of, either a registered account or an anonymous guest.
package domain

import "github.com/google/uuid"

// PrincipalKind distinguishes registered accounts from guest identities.
type PrincipalKind string

const (
	// PrincipalRegistered is an account authenticated via bearer token.
	PrincipalRegistered PrincipalKind = "registered"

	// PrincipalGuest is an anonymous identity provisioned server-side and
	// held by the client between requests.
	PrincipalGuest PrincipalKind = "guest"
)

// Principal is the identity a request acts on behalf of. Entitlements,
// readings, and subscriptions are all keyed by Principal.ID, so a guest
// that later registers keeps its history.
//
// A Principal is resolved fresh per request and never cached beyond
// request scope.
type Principal struct {
	ID   uuid.UUID
	Kind PrincipalKind
}

// IsRegistered returns true if the principal authenticated with a token.
func (p Principal) IsRegistered() bool {
	return p.Kind == PrincipalRegistered
}
