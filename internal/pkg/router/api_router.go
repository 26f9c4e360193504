package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/rokcupza/nats-registry/app/controllers"
	"github.com/rokcupza/nats-registry/internal/pkg/env"
	"github.com/rokcupza/nats-registry/internal/pkg/middleware"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Storage:    limiterStorage(),
		// The gateway must never be rate limited out of delivering an ITN.
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/payfast/notify"
		},
	}))

	// Public driver endpoints
	api.Post("/registerDriver", controllers.HandleRegisterDriver)
	api.Post("/loginWithPassword", controllers.HandleLoginWithPassword)
	api.Post("/requestPasswordReset", controllers.HandleRequestPasswordReset)
	api.Post("/resetPassword", controllers.HandleResetPassword)
	api.Get("/events", controllers.HandleListOpenEvents)

	// Gateway webhook; signature verification is the only auth.
	api.Post("/payfast/notify", controllers.HandlePayfastNotify)

	// Authenticated driver endpoints
	driver := api.Group("/driver", middleware.DriverAuthMiddleware())
	driver.Post("/initiateRacePayment", controllers.HandleInitiateRacePayment)
	driver.Post("/registerFreeRaceEntry", controllers.HandleRegisterFreeRaceEntry)
	driver.Get("/myRaceEntries", controllers.HandleMyRaceEntries)

	// Back-office endpoints behind the shared admin token
	admin := api.Group("/admin", middleware.AdminAuthMiddleware())
	admin.Get("/raceEntries", controllers.HandleAdminListEntries)
	admin.Post("/raceEntries", controllers.HandleAdminCreateEntry)
	admin.Put("/raceEntries/:entryID", controllers.HandleAdminEditEntry)
	admin.Post("/raceEntries/:entryID/cancel", controllers.HandleAdminCancelEntry)
	admin.Get("/raceEntries/export.pdf", controllers.HandleAdminExportEntriesPDF)
	admin.Post("/reconcilePayment", controllers.HandleAdminReconcilePayment)
	admin.Get("/events", controllers.HandleAdminListEvents)
	admin.Post("/events", controllers.HandleAdminCreateEvent)
	admin.Put("/events/:eventID", controllers.HandleAdminUpdateEvent)
	admin.Get("/drivers", controllers.HandleAdminListDrivers)
	admin.Post("/drivers/:driverID/approve", controllers.HandleAdminApproveDriver)
}

// limiterStorage backs the rate limiter with Redis so limits hold across
// instances. Falls back to the in-memory default when Redis is not
// configured.
func limiterStorage() fiber.Storage {
	host := env.GetEnv("CACHE_HOST", "")
	if host == "" {
		return nil
	}
	port, err := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379"))
	if err != nil {
		port = 6379
	}
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Database: 1,
	})
}
