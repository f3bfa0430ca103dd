package server

import (
	"errors"

	"pulse/internal/middleware"
	"pulse/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter that must be a uuid.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (string, error) {
	raw := c.Params(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return "", errResponseWritten
	}
	return id.String(), nil
}

func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	return param
}

// respondError writes err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

func viewerID(c *fiber.Ctx) string {
	return middleware.UserID(c)
}
