package credential

import (
	"time"

	"golang.org/x/oauth2"
)

// Credential is a bearer token for the GitHub API.
//
// It implements fmt.Stringer and json.Marshaler so that the token value is
// never printed or serialized by accident; use Value when the token has to
// be placed in an Authorization header.
type Credential struct {
	value     string
	tokenType string
	scope     string
	createdAt time.Time
}

// New wraps a raw token value, such as a manually entered personal access token.
func New(value string) Credential {
	return Credential{value: value, tokenType: "bearer", createdAt: time.Now()}
}

// FromToken builds a Credential from a token endpoint response.
func FromToken(token *oauth2.Token) Credential {
	if token == nil {
		return Credential{}
	}
	c := Credential{
		value:     token.AccessToken,
		tokenType: token.TokenType,
		createdAt: time.Now(),
	}
	if scope, ok := token.Extra("scope").(string); ok {
		c.scope = scope
	}
	return c
}

// Value returns the actual token value. Never log the result.
func (c Credential) Value() string {
	return c.value
}

// TokenType returns the token type reported by the issuer, usually "bearer".
func (c Credential) TokenType() string {
	return c.tokenType
}

// Scope returns the granted scope, if known.
func (c Credential) Scope() string {
	return c.scope
}

// CreatedAt returns when the credential was obtained.
func (c Credential) CreatedAt() time.Time {
	return c.createdAt
}

// IsEmpty returns true if there is no token value.
func (c Credential) IsEmpty() bool {
	return c.value == ""
}

// String implements fmt.Stringer without revealing the token.
func (c Credential) String() string {
	if c.IsEmpty() {
		return "[EMPTY]"
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (c Credential) GoString() string {
	return "credential.Credential{" + c.String() + "}"
}

// MarshalJSON keeps the token value out of accidental JSON output.
func (c Credential) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}
