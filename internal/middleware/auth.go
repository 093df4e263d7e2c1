package middleware

import (
	"errors"
	"strings"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTProtected rejects requests without a valid bearer token. The parsed
// token is stored under the "user" local.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			msg := "Token is not valid"
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) && c.Get(fiber.HeaderAuthorization) == "" {
				msg = "No token, authorization denied"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Code:    string(apperr.CodeAuthToken),
				Message: msg,
			})
		},
	})
}

// OptionalAuth attaches the caller's token when a valid one is presented and
// otherwise lets the request through anonymously.
func OptionalAuth(cfg *config.Config) fiber.Handler {
	key := []byte(cfg.JWTSecret)
	return func(c *fiber.Ctx) error {
		raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || raw == "" {
			return c.Next()
		}
		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return key, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err == nil && token.Valid {
			c.Locals("user", token)
		}
		return c.Next()
	}
}
