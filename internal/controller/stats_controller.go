package controller

import (
	"docuchat-be/internal/pkg/serverutils"
	"docuchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IStatsController interface {
	RegisterRoutes(r fiber.Router)
	Stats(ctx *fiber.Ctx) error
	Usage(ctx *fiber.Ctx) error
}

type statsController struct {
	service service.IStatsService
	auth    fiber.Handler
}

func NewStatsController(service service.IStatsService, auth fiber.Handler) IStatsController {
	return &statsController{service: service, auth: auth}
}

func (c *statsController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/stats", c.auth)
	h.Get("", c.Stats)
	h.Get("/usage", c.Usage)
}

func (c *statsController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.UserContext(), serverutils.CurrentUserId(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Stats", res))
}

func (c *statsController) Usage(ctx *fiber.Ctx) error {
	res, err := c.service.Usage(ctx.UserContext(), serverutils.CurrentUserId(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Usage", res))
}
