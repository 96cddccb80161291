package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/pkg/serverutils"
	"docuchat-be/internal/service"
	"docuchat-be/pkg/rag"
	"docuchat-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

var errClientGone = errors.New("client disconnected")

type IQueryController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type queryController struct {
	service      service.IQueryService
	auth         fiber.Handler
	queryLimiter *ratelimit.Limiter
	logger       logger.ILogger
}

func NewQueryController(service service.IQueryService, auth fiber.Handler, queryLimiter *ratelimit.Limiter, log logger.ILogger) IQueryController {
	return &queryController{service: service, auth: auth, queryLimiter: queryLimiter, logger: log}
}

func (c *queryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/query", c.auth, serverutils.RateLimit(c.queryLimiter, "query"))
	h.Post("", c.Query)
	h.Post("/stream", c.Stream)
}

func parseQueryRequest(ctx *fiber.Ctx) (*dto.QueryRequest, error) {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *queryController) Query(ctx *fiber.Ctx) error {
	req, err := parseQueryRequest(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Query(ctx.UserContext(), serverutils.CurrentUserId(ctx), req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

// Stream answers as text/plain fragments. Clients that accept
// text/event-stream get tagged events instead, ending with the sources.
func (c *queryController) Stream(ctx *fiber.Ctx) error {
	req, err := parseQueryRequest(ctx)
	if err != nil {
		return err
	}
	userId := serverutils.CurrentUserId(ctx)
	sse := strings.Contains(ctx.Get(fiber.HeaderAccept), "text/event-stream")

	// The body writer runs after this handler returns, so the stream gets its
	// own context; it is cancelled when the client goes away.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx.UserContext()))
	events := make(chan rag.StreamEvent, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(events)
		errc <- c.service.Stream(streamCtx, userId, req, func(ev rag.StreamEvent) error {
			select {
			case events <- ev:
				return nil
			case <-streamCtx.Done():
				return errClientGone
			}
		})
	}()

	// Errors before the first event still get a proper status code.
	first, ok := <-events
	if !ok {
		err := <-errc
		cancel()
		if err != nil {
			return err
		}
		ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return ctx.SendString("")
	}

	if sse {
		ctx.Set(fiber.HeaderContentType, "text/event-stream")
		ctx.Set(fiber.HeaderCacheControl, "no-cache")
	} else {
		ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	}

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		write := func(ev rag.StreamEvent) bool {
			if sse {
				data, _ := json.Marshal(ev)
				fmt.Fprintf(w, "data: %s\n\n", data)
			} else if ev.Kind == rag.StreamText {
				w.WriteString(ev.Text)
			}
			return w.Flush() == nil
		}

		if !write(first) {
			return
		}
		for ev := range events {
			if !write(ev) {
				return
			}
		}

		if err := <-errc; err != nil && !errors.Is(err, errClientGone) {
			c.logger.Error(logger.ModuleRAG, "Streaming answer failed", map[string]interface{}{
				"user_id": userId.String(),
				"error":   err,
			})
			write(rag.StreamEvent{Kind: rag.StreamText, Text: "Error generating response: " + err.Error()})
		}
	})
	return nil
}
