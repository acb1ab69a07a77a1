package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"project/backend/services"
	"project/backend/utils"
)

// respondError переводит таксономию ошибок сервисов в HTTP-коды:
// Validation - 400, NotFound - 404, Conflict и State - 409.
// Всё прочее - сбой хранилища, наружу уходит только 500.
func respondError(c *fiber.Ctx, err error) error {
	var (
		vErr *services.ValidationError
		nErr *services.NotFoundError
		cErr *services.ConflictError
		sErr *services.StateError
	)
	switch {
	case errors.As(err, &vErr):
		if vErr.Fields != nil {
			return utils.Error(c, fiber.StatusBadRequest, vErr.Message, vErr.Fields)
		}
		return utils.BadRequest(c, vErr.Message)
	case errors.As(err, &nErr):
		return utils.NotFound(c, nErr.Message)
	case errors.As(err, &cErr):
		return utils.Conflict(c, cErr.Message, fiber.Map{"code": cErr.Code})
	case errors.As(err, &sErr):
		return utils.Conflict(c, sErr.Message)
	default:
		return utils.InternalServerError(c, "Could not process request")
	}
}
