package controller

import (
	"docuchat-be/internal/pkg/serverutils"
	"docuchat-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router)
	Me(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IUserService
	auth    fiber.Handler
}

func NewAuthController(service service.IUserService, auth fiber.Handler) IAuthController {
	return &authController{service: service, auth: auth}
}

func (c *authController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/auth", c.auth)
	h.Get("/me", c.Me)
}

func (c *authController) Me(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Current user", c.service.Me(serverutils.CurrentUser(ctx))))
}
