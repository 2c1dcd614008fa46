// Package jwtware provides the request-boundary guard: it extracts and
// verifies the bearer access token, and optionally enforces role
// membership for privileged routes. It keeps no session state; every
// request is judged from the token plus static route metadata.
package jwtware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	auth "authcore"
)

// DefaultContextKey is where verified claims are stored in ctx.Locals.
const DefaultContextKey = "user"

// DefaultAuthScheme is matched case-sensitively against the
// Authorization header, separated from the token by a single space.
const DefaultAuthScheme = "Bearer"

// Config declares the per-route guard metadata.
type Config struct {
	// Validator verifies signature and expiry. Required.
	Validator auth.TokenValidator

	// AuthScheme defaults to "Bearer".
	AuthScheme string

	// ContextKey defaults to "user".
	ContextKey string

	// RequiredRoles, when non-empty, must intersect the verified role
	// snapshot. Checked only after authentication succeeds.
	RequiredRoles []string

	// Filter skips the guard when it returns true.
	Filter func(*fiber.Ctx) bool

	// ErrorHandler maps guard failures to a response.
	ErrorHandler fiber.ErrorHandler
}

// New returns the guard middleware for the given config.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := TokenFromHeader(c, cfg.AuthScheme)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Validator.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if !claims.HasAnyRole(cfg.RequiredRoles...) {
			return cfg.ErrorHandler(c, auth.ErrInsufficientRole)
		}

		c.Locals(cfg.ContextKey, claims)
		return c.Next()
	}
}

// TokenFromHeader extracts the bearer token from the Authorization
// header. The scheme match is exact and case-sensitive with a single
// space separator; anything else reads as no session.
func TokenFromHeader(c *fiber.Ctx, scheme string) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", auth.ErrUnableToFindSession
	}

	prefix := scheme + " "
	if !strings.HasPrefix(header, prefix) {
		return "", auth.ErrUnableToFindSession
	}

	token := header[len(prefix):]
	if token == "" || strings.HasPrefix(token, " ") {
		return "", auth.ErrUnableToFindSession
	}

	return token, nil
}

// ClaimsFromContext returns the verified claims the guard stored, if any.
func ClaimsFromContext(c *fiber.Ctx, key string) (*auth.JWTClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	claims, ok := c.Locals(key).(*auth.JWTClaims)
	return claims, ok
}

func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Validator == nil {
		panic("jwtware: missing token validator")
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = DefaultAuthScheme
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	return cfg
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "unable to authenticate request").
			WithCode(errors.CodeUnauthorized)
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusUnauthorized
	}

	return c.Status(status).JSON(fiber.Map{
		"message":    richErr.Message,
		"statusCode": status,
		"textCode":   richErr.TextCode,
	})
}
