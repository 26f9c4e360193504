package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/rokcupza/nats-registry/app/controllers"
	"github.com/rokcupza/nats-registry/app/repository"
	"github.com/rokcupza/nats-registry/internal/pkg/cache"
	"github.com/rokcupza/nats-registry/internal/pkg/database"
	"github.com/rokcupza/nats-registry/internal/pkg/entry"
	"github.com/rokcupza/nats-registry/internal/pkg/env"
	"github.com/rokcupza/nats-registry/internal/pkg/exportarchive"
	"github.com/rokcupza/nats-registry/internal/pkg/mail"
	"github.com/rokcupza/nats-registry/internal/pkg/payfast"
	"github.com/rokcupza/nats-registry/internal/pkg/router"
)

func main() {
	app, shutdown := NewApplication()
	defer shutdown()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

// NewApplication builds the fiber app and all background workers. The
// returned shutdown func stops the workers in order; mail still queued at
// that point is dropped, only an in-flight send is waited for.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalFactory().GetRepositories()

	basePath := findBasePath()

	gateway := payfast.NewAdapterFromEnv()

	renderer, err := mail.NewRenderer(basePath + "views/emails")
	if err != nil {
		panic(fmt.Sprintf("failed to load mail templates: %v", err))
	}
	mailQueue := mail.NewQueue(mail.NewMandrillSenderFromEnv(renderer), env.GetEnv("ADMIN_NOTIFY_EMAIL", ""))
	mailQueue.Start()

	sweeper := entry.NewSweeper(repos)
	sweeper.Start()

	var archiveClient *exportarchive.Client
	if cfg, err := exportarchive.LoadConfig(); err != nil {
		log.Printf("export archive misconfigured: %v", err)
	} else if cfg.IsEnabled() {
		if archiveClient, err = exportarchive.NewClient(cfg); err != nil {
			log.Printf("export archive unavailable: %v", err)
		}
	}

	entryService := entry.NewService(repos, gateway, mailQueue)
	controllers.Setup(entryService, mailQueue, gateway, archiveClient)

	app := fiber.New(fiber.Config{
		AppName: "NATS Driver Registry",
	})

	app.Use(recover.New(), logger.New())

	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			"admin": env.GetEnv("METRICS_PASSWORD", "change-me"),
		},
	}), monitor.New())

	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	router.InstallRouter(app)

	return app, func() {
		sweeper.Stop()
		mailQueue.Stop()
	}
}

func findBasePath() string {
	for _, path := range []string{
		"./",        // project root
		"../../",    // from cmd/registry
		"../../../", // fallback
	} {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			return path
		}
	}
	panic("Could not find project root directory")
}
