package service

import (
	"crypto/subtle"
	"strings"

	"github.com/rs/zerolog/log"
)

// TokenAuthorizer checks "Authorization: Bearer <token>" headers against a shared secret.
// An empty token disables the check.
type TokenAuthorizer struct {
	token string
}

func NewTokenAuthorizer(token string) *TokenAuthorizer {
	if token == "" {
		log.Warn().Msg("no token configured, convert and delete requests are not authenticated")
	}

	return &TokenAuthorizer{token: token}
}

const bearerScheme = "Bearer"

func (a *TokenAuthorizer) IsAuthorized(header string) bool {
	if a.token == "" {
		return true
	}

	scheme, provided, ok := strings.Cut(header, " ")
	if !ok || scheme != bearerScheme {
		log.Debug().Msg("missing or malformed authorization header")
		return false
	}

	if subtle.ConstantTimeCompare([]byte(provided), []byte(a.token)) != 1 {
		log.Debug().Msg("bearer token mismatch")
		return false
	}

	return true
}
