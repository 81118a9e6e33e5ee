package routes

import (
	"github.com/gofiber/fiber/v2"

	"mailnexy/config"
	controller "mailnexy/controllers"
	"mailnexy/internal/metrics"
	"mailnexy/middleware"
)

// Controllers bundles every handler group SetupRoutes wires in, constructed
// once in main.go and passed down (per SPEC_FULL.md §9's
// constructor-injection decision — no package-level singletons beyond
// config.AppConfig itself).
type Controllers struct {
	Verification *controller.VerificationController
	Finder       *controller.FinderController
	Ops          *controller.OpsController
}

// SetupRoutes wires the route table from SPEC_FULL.md §6, replacing the
// teacher's campaign/lead/warmup/billing tree.
func SetupRoutes(app *fiber.App, c Controllers, reg *metrics.Registry) {
	app.Use(middleware.RateLimiter(reg))

	app.Get("/health", c.Ops.Health)
	app.Get("/ready", c.Ops.Ready)

	authed := middleware.Protected(config.AppConfig.AuthKey)
	app.Get("/metrics", authed, c.Ops.Metrics)
	app.Get("/stats", authed, c.Ops.Stats)

	app.Get("/verify", c.Verification.Verify)
	app.Post("/verify", c.Verification.Verify)
	app.Post("/verify/batch", c.Verification.BatchVerify)

	v1 := app.Group("/v1")
	v1.Get("/validate/credits", c.Verification.ValidateCredits)
	v1.Get("/validate/:email", c.Verification.Verify)
	v1.Post("/verify", c.Verification.Verify)

	app.Post("/find", c.Finder.Find)
	app.Post("/find/batch", c.Finder.FindBatch)
}
