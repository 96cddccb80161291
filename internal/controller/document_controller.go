package controller

import (
	"docuchat-be/internal/pkg/serverutils"
	"docuchat-be/internal/service"
	"docuchat-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	service       service.IDocumentService
	auth          fiber.Handler
	uploadLimiter *ratelimit.Limiter
}

func NewDocumentController(service service.IDocumentService, auth fiber.Handler, uploadLimiter *ratelimit.Limiter) IDocumentController {
	return &documentController{service: service, auth: auth, uploadLimiter: uploadLimiter}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/documents", c.auth)
	h.Post("/upload", serverutils.RateLimit(c.uploadLimiter, "upload"), c.Upload)
	h.Get("", c.GetAll)
	h.Get("/:id", c.Show)
	h.Delete("/:id", c.Delete)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
	}

	res, err := c.service.Upload(ctx.UserContext(), serverutils.CurrentUserId(ctx), file)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document uploaded", res))
}

func (c *documentController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext(), serverutils.CurrentUserId(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all documents", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.Get(ctx.UserContext(), serverutils.CurrentUserId(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get document", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	id, err := parseIdParam(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.service.Delete(ctx.UserContext(), serverutils.CurrentUserId(ctx), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Document deleted successfully", nil))
}
