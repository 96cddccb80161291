package serverutils

import (
	"context"
	"strings"

	"docuchat-be/internal/entity"
	"docuchat-be/pkg/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	LocalUserId = "user_id"
	LocalUser   = "user"
)

// UserResolver returns the local user for verified claims, creating it on first sight.
type UserResolver interface {
	ResolveUser(ctx context.Context, claims *identity.Claims) (*entity.User, error)
}

// BearerToken reads "Authorization: Bearer <token>". When allowQuery is set the
// "token" query parameter is accepted too, since browsers cannot set headers on
// websocket handshakes.
func BearerToken(c *fiber.Ctx, allowQuery bool) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

func authenticate(c *fiber.Ctx, verifier identity.Verifier, users UserResolver, allowQuery bool) error {
	token := BearerToken(c, allowQuery)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Missing bearer token."))
	}

	claims, err := verifier.Verify(c.UserContext(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Invalid or expired token."))
	}

	user, err := users.ResolveUser(c.UserContext(), claims)
	if err != nil {
		return err
	}

	c.Locals(LocalUserId, user.Id.String())
	c.Locals(LocalUser, user)
	return c.Next()
}

func AuthMiddleware(verifier identity.Verifier, users UserResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authenticate(c, verifier, users, false)
	}
}

// WebSocketAuthMiddleware also accepts the token as a query parameter.
func WebSocketAuthMiddleware(verifier identity.Verifier, users UserResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authenticate(c, verifier, users, true)
	}
}

// RequireSuperuser must run after AuthMiddleware.
func RequireSuperuser(c *fiber.Ctx) error {
	user := CurrentUser(c)
	if user == nil || !user.IsSuperuser {
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse(403, "Not authorized. Admin access only."))
	}
	return c.Next()
}

func CurrentUser(c *fiber.Ctx) *entity.User {
	user, _ := c.Locals(LocalUser).(*entity.User)
	return user
}

func CurrentUserId(c *fiber.Ctx) uuid.UUID {
	if user := CurrentUser(c); user != nil {
		return user.Id
	}
	idStr, _ := c.Locals(LocalUserId).(string)
	id, _ := uuid.Parse(idStr)
	return id
}
