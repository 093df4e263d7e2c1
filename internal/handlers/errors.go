package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/campus-market/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/campus-market/internal/dto"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// respondError writes err as a dto.ErrorResponse. Unclassified errors become
// a 500 whose details stay in the log and in Sentry.
func respondError(c *fiber.Ctx, err error) error {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Internal(err, "unexpected error")
	}
	status := apperr.HTTPStatus(ae.Code)

	resp := dto.ErrorResponse{
		Error:   true,
		Code:    string(ae.Code),
		Message: ae.Message,
		Errors:  ae.Fields,
	}
	if ae.Code == apperr.CodeVerificationRequired {
		resp.NeedsVerification = true
		resp.Email, _ = ae.Meta["email"].(string)
	}

	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"request_id", requestID(c),
			"method", c.Method(),
			"path", c.Path(),
			"code", string(ae.Code),
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		if ae.Code == apperr.CodeInternal {
			resp.Message = "Server error"
		}
	}

	return c.Status(status).JSON(resp)
}

func badBody(c *fiber.Ctx) error {
	return respondError(c, apperr.New(apperr.CodeValidation, "Invalid request body"))
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
