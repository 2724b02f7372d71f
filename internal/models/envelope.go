package models

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the uniform success/failure wrapper for every API response.
type Envelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Respond writes a success envelope with the given status and payload.
func Respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Envelope{OK: true, Data: data})
}

// RespondWithError writes a failure envelope. Only the human-readable message
// of an AppError is rendered; wrapped causes (stack traces, driver errors)
// stay out of the response body.
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(status).JSON(Envelope{OK: false, Message: appErr.Message})
	}
	if status >= fiber.StatusInternalServerError {
		return c.Status(status).JSON(Envelope{OK: false, Message: "Internal server error"})
	}
	return c.Status(status).JSON(Envelope{OK: false, Message: err.Error()})
}
