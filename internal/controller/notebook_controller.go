package controller

import (
	"actually-colab-be/internal/dto"
	"actually-colab-be/internal/pkg/apperror"
	"actually-colab-be/internal/pkg/serverutils"
	"actually-colab-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type INotebookController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Contents(ctx *fiber.Ctx) error
}

type notebookController struct {
	service   service.INotebookService
	jwtSecret string
}

func NewNotebookController(service service.INotebookService, jwtSecret string) INotebookController {
	return &notebookController{service: service, jwtSecret: jwtSecret}
}

func (c *notebookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/notebook/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Get("", c.GetAll)
	h.Post("", c.Create)
	h.Get(":id/contents", c.Contents)
}

func (c *notebookController) GetAll(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.service.GetAll(ctx.UserContext(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all notebook", res))
}

func (c *notebookController) Create(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.CreateNotebookRequest
	if err := serverutils.ValidateRequest(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create notebook", res))
}

func (c *notebookController) Contents(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.BadRequest("invalid notebook id")
	}

	res, err := c.service.Contents(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get notebook contents", res))
}
