package serverutils

import (
	"errors"

	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperror.KindForbidden:
		return fiber.StatusForbidden
	case apperror.KindConflict:
		return fiber.StatusConflict
	case apperror.KindBadRequest:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandlerMiddleware(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
		}

		kind := apperror.KindOf(err)
		status := StatusOf(kind)
		if kind == apperror.KindInternal {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"path":   ctx.Path(),
				"method": ctx.Method(),
				"error":  err.Error(),
			})
		}
		return ctx.Status(status).JSON(ErrorResponse(status, apperror.MessageOf(err)))
	}
}
