// Package auth resolves the acting principal for each request from an
// optional bearer token and an optional client-supplied user id.
package auth

import (
	"log/slog"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"

	"github.com/fortunia-app/fortunia-api/internal/domain"
)

// Resolution is the outcome of identity resolution. When a valid token
// and a client-supplied id disagree, Principal carries the authenticated
// identity and TokenMismatch is set so handlers can decide whether to
// reject (quota lookups) or proceed on the token (readings).
type Resolution struct {
	Principal     domain.Principal
	TokenMismatch bool
}

// Resolver verifies HS256 bearer tokens against a shared signing secret
// and falls back to client-held guest ids.
type Resolver struct {
	secret []byte
	logger *slog.Logger
}

// NewResolver creates a Resolver using the given JWT signing secret.
func NewResolver(secret string, logger *slog.Logger) *Resolver {
	return &Resolver{
		secret: []byte(secret),
		logger: logger,
	}
}

// Resolve determines the acting principal.
//
// A valid bearer token is authoritative: its subject claim is the user
// id, and any conflicting supplied id is logged and flagged, never
// silently trusted (quota bypass via spoofed ids). With no token, a
// supplied id resolves to a guest principal. With neither, resolution
// fails with EUNAUTHORIZED.
func (r *Resolver) Resolve(authHeader, suppliedUserID string) (Resolution, error) {
	const op = "auth.Resolver.Resolve"

	if token := bearerToken(authHeader); token != "" {
		userID, err := r.verify(token)
		if err != nil {
			return Resolution{}, domain.Wrap(err, domain.EUNAUTHORIZED, op, "Invalid or expired token")
		}

		res := Resolution{
			Principal: domain.Principal{ID: userID, Kind: domain.PrincipalRegistered},
		}
		if suppliedUserID != "" && suppliedUserID != userID.String() {
			r.logger.Warn("supplied user id conflicts with authenticated identity",
				"authenticated_id", userID,
				"supplied_id", suppliedUserID)
			res.TokenMismatch = true
		}
		return res, nil
	}

	if suppliedUserID != "" {
		id, err := uuid.Parse(suppliedUserID)
		if err != nil {
			return Resolution{}, domain.Invalid(op, "user_id must be a valid UUID")
		}
		return Resolution{
			Principal: domain.Principal{ID: id, Kind: domain.PrincipalGuest},
		}, nil
	}

	return Resolution{}, domain.Unauthorized(op, "Authentication required: provide a bearer token or user_id")
}

// verify parses and validates an HS256 token and extracts the subject.
func (r *Resolver) verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.NewValidationError("unexpected signing method", jwt.ValidationErrorSignatureInvalid)
		}
		return r.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, jwt.NewValidationError("token is not valid", jwt.ValidationErrorClaimsInvalid)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, jwt.NewValidationError("invalid token claims", jwt.ValidationErrorClaimsInvalid)
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return uuid.Nil, jwt.NewValidationError("token missing subject", jwt.ValidationErrorClaimsInvalid)
	}
	return uuid.Parse(sub)
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
