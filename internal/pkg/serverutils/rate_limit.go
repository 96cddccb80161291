package serverutils

import (
	"fmt"
	"math"
	"strconv"

	"docuchat-be/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

type RateLimitData struct {
	RetryAfter int `json:"retry_after"`
}

// RateLimit keys the limiter by scope and the authenticated user, falling back to
// the client IP for anonymous routes.
func RateLimit(limiter *ratelimit.Limiter, scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		subject, _ := c.Locals(LocalUserId).(string)
		if subject == "" {
			subject = c.IP()
		}

		allowed, wait := limiter.Allow(scope + ":" + subject)
		if allowed {
			return c.Next()
		}

		retryAfter := int(math.Ceil(wait.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponseWithData(
			fiber.StatusTooManyRequests,
			fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter),
			RateLimitData{RetryAfter: retryAfter},
		))
	}
}
