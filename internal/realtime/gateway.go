package realtime

import (
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/listenline/ListenLineBack/internal/models"
	"github.com/listenline/ListenLineBack/pkg/utils"
)

// Gateway authenticates websocket upgrades. A connection that fails token
// validation is refused here, before any event handler can see it.
type Gateway struct {
	router    *Router
	jwtSecret string
}

func NewGateway(router *Router, jwtSecret string) *Gateway {
	return &Gateway{router: router, jwtSecret: jwtSecret}
}

// UpgradeAuth validates the bearer token during the HTTP upgrade and binds
// the decoded identity, plus the normalized support capability, to the
// connection locals.
func (g *Gateway) UpgradeAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := g.parseClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", userID)
	c.Locals("role", claims.Role)
	c.Locals("staff", models.IsSupportStaff(claims.Role, claims.Roles))
	return c.Next()
}

// HandleWebSocket runs one authenticated connection to completion.
func (g *Gateway) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(int64)
	role, _ := conn.Locals("role").(string)
	staff, _ := conn.Locals("staff").(bool)

	g.router.Serve(conn, userID, role, staff)
}

func (g *Gateway) parseClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, g.jwtSecret)
}
