package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into JSON error bodies.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

// WriteError maps err to a status code and writes the error body.
func WriteError(ctx *fiber.Ctx, err error) error {
	var appErr *AppError
	var validationErrs ValidationErrors
	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &appErr):
		return ctx.Status(appErr.Code).JSON(ErrorResponse(appErr.Code, appErr.Message))
	case errors.As(err, &validationErrs):
		res := ErrorResponse(fiber.StatusBadRequest, validationErrs.Error())
		res.Data = []ValidationError(validationErrs)
		return ctx.Status(fiber.StatusBadRequest).JSON(res)
	case errors.As(err, &fiberErr):
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
	}
}
