package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const originLocal = "origin"

// OriginClaims identify the dapp origin a host session acts for.
type OriginClaims struct {
	Origin string `json:"origin"`
	jwt.RegisteredClaims
}

// OriginAuth validates the host's HS256 bearer token and exposes its origin
// claim to handlers.
func OriginAuth(secret []byte) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		var claims OriginClaims
		if _, err := parser.ParseWithClaims(strings.TrimSpace(authz[len("Bearer "):]), &claims, keyFunc); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		if claims.Origin == "" {
			return fiber.NewError(http.StatusUnauthorized, "token has no origin")
		}
		c.Locals(originLocal, claims.Origin)
		return c.Next()
	}
}

// DevOrigin trusts the X-Origin header. Only for development setups
// without a host issuing tokens.
func DevOrigin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("X-Origin")
		if origin == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing X-Origin header")
		}
		c.Locals(originLocal, origin)
		return c.Next()
	}
}

// Origin returns the origin set by OriginAuth or DevOrigin.
func Origin(c *fiber.Ctx) string {
	origin, _ := c.Locals(originLocal).(string)
	return origin
}

// SignOrigin issues a token for origin. Hosts and tests use it.
func SignOrigin(secret []byte, origin string, claims jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, OriginClaims{Origin: origin, RegisteredClaims: claims})
	return token.SignedString(secret)
}
