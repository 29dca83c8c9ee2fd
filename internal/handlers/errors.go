package handlers

import (
	"errors"

	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError maps catalog errors onto distinct HTTP statuses.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	var (
		notFound    *services.BookNotFoundError
		exists      *services.BookAlreadyExistsError
		fieldErrors validation.Errors
		fiberErr    *fiber.Error
	)

	switch {
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"message": fiberErr.Message,
		})
	case errors.As(err, &fieldErrors):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  fieldErrors,
		})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": notFound.Error(),
		})
	case errors.As(err, &exists):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": exists.Error(),
		})
	case errors.Is(err, repositories.ErrConcurrencyConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "The book was modified concurrently, reload it and try again",
		})
	default:
		log.Error("Catalog request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}
}
