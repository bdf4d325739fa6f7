package controller

import (
	"harmony-api/internal/dto"
	"harmony-api/internal/pkg/serverutils"
	"harmony-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IInfoController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Version(ctx *fiber.Ctx) error
	ListModels(ctx *fiber.Ctx) error
}

type infoController struct {
	service service.IInfoService
}

func NewInfoController(service service.IInfoService) IInfoController {
	return &infoController{service: service}
}

func (c *infoController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)

	h := r.Group("/info")
	h.Get("/version", c.Version)
	h.Get("/list-models", c.ListModels)
}

func (c *infoController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.HealthResponse{Status: "ok"})
}

func (c *infoController) Version(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get version", c.service.Version(ctx.Context())))
}

func (c *infoController) ListModels(ctx *fiber.Ctx) error {
	check := ctx.QueryBool("check_model_availability", false)
	return ctx.JSON(serverutils.SuccessResponse("Success list models", c.service.ListModels(ctx.Context(), check)))
}
