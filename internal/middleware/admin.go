package middleware

import (
	"crypto/subtle"
	"slices"
	"strings"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/config"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired admits a request carrying the configured X-Admin-Token, or a
// token whose email is in ADMIN_EMAILS. It runs after JWTProtected.
func AdminRequired(cfg *config.Config) fiber.Handler {
	adminEmails := parseCSV(strings.ToLower(cfg.AdminEmails))

	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" {
			if subtle.ConstantTimeCompare([]byte(c.Get("X-Admin-Token")), []byte(cfg.AdminToken)) == 1 {
				return c.Next()
			}
		}

		claims, err := currentClaims(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Code: string(apperr.CodeAuthToken), Message: "Unauthorized",
			})
		}
		email, _ := claims["email"].(string)
		if email != "" && slices.Contains(adminEmails, strings.ToLower(email)) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Code: string(apperr.CodeForbidden), Message: "Admin access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
