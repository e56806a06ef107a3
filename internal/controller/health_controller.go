package controller

import (
	"actually-colab-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	driver string
}

func NewHealthController(driver string) IHealthController {
	return &healthController{driver: driver}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", fiber.Map{
		"status": "ok",
		"store":  c.driver,
	}))
}
