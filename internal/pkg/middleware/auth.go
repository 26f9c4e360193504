package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/rokcupza/nats-registry/app/models"
	"github.com/rokcupza/nats-registry/app/repository"
	"github.com/rokcupza/nats-registry/internal/pkg/env"
)

// Locals keys set by the auth middlewares.
const (
	KeyDriver     = "DRIVER"
	KeyAdminActor = "ADMIN_ACTOR"
)

// AdminAuthMiddleware authenticates back-office requests with the shared
// admin token from ADMIN_API_TOKEN.
func AdminAuthMiddleware() fiber.Handler {
	token := env.GetEnv("ADMIN_API_TOKEN", "")
	return func(c *fiber.Ctx) error {
		if token == "" {
			log.Error("[Auth] ADMIN_API_TOKEN not configured, rejecting admin request")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service_unavailable", "message": "Admin API not configured"})
		}

		presented := extractTokenFromHeader(c)
		if presented == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing admin token"})
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid admin token"})
		}

		actor := strings.TrimSpace(c.Get("X-Admin-Actor"))
		if actor == "" {
			actor = "admin"
		}
		c.Locals(KeyAdminActor, actor)
		return c.Next()
	}
}

// DriverAuthMiddleware authenticates a driver by email and password headers
// and stores the loaded driver in locals for the handler.
func DriverAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		email := strings.TrimSpace(c.Get("X-Driver-Email"))
		password := c.Get("X-Driver-Password")
		if email == "" || password == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing driver credentials"})
		}

		repos := repository.GetGlobalFactory().GetRepositories()
		driver, err := repos.Driver.GetByEmail(email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credentials"})
			}
			log.Errorf("[Auth] driver lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Credential verification failed"})
		}

		if !driver.CheckPassword(password) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid credentials"})
		}
		if driver.Status == models.DRIVER_STATUS_DISABLED {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Driver account disabled"})
		}

		c.Locals(KeyDriver, driver)
		return c.Next()
	}
}

// DriverFromLocals returns the driver stored by DriverAuthMiddleware.
func DriverFromLocals(c *fiber.Ctx) *models.Driver {
	driver, _ := c.Locals(KeyDriver).(*models.Driver)
	return driver
}

// AdminActorFromLocals returns the acting operator name for audit entries.
func AdminActorFromLocals(c *fiber.Ctx) string {
	actor, _ := c.Locals(KeyAdminActor).(string)
	if actor == "" {
		return "admin"
	}
	return actor
}

func extractTokenFromHeader(c *fiber.Ctx) string {
	token := strings.TrimSpace(c.Get("X-Admin-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
