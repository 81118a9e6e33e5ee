// Package controller exposes the HTTP handlers wired to the verification,
// finder, and tiered-engine internals. Grounded on the teacher's
// controllers/verification_controller.go handler shape (struct holding
// shared dependencies, methods returning fiber.Handler-compatible funcs).
package controller

import (
	"context"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"

	"mailnexy/config"
	"mailnexy/internal/metrics"
	"mailnexy/internal/store"
	"mailnexy/utils"
)

const serviceVersion = "1.0.0"

// OpsController serves /health, /ready, /metrics, /stats.
type OpsController struct {
	Store   store.Store // nil when the engine runs cache-less
	Metrics *metrics.Registry
}

func NewOpsController(st store.Store, reg *metrics.Registry) *OpsController {
	return &OpsController{Store: st, Metrics: reg}
}

// Health reports liveness only, per spec.md §4.13.
func (oc *OpsController) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "kadenverify",
		"version": serviceVersion,
	})
}

// Ready runs the three readiness checks concurrently and reports
// "ready" only if all three pass, else "degraded" with per-check detail.
func (oc *OpsController) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), config.AppConfig.ReadinessTimeout)
	defer cancel()

	type checkResult struct {
		name string
		ok   bool
		err  string
	}
	results := make(chan checkResult, 3)

	go func() {
		if oc.Store == nil {
			results <- checkResult{"cache", true, ""}
			return
		}
		_, err := oc.Store.Stats(ctx)
		results <- checkResult{"cache", err == nil, errString(err)}
	}()

	go func() {
		_, err := net.DefaultResolver.LookupHost(ctx, config.AppConfig.ReadinessDNSTarget)
		results <- checkResult{"dns", err == nil, errString(err)}
	}()

	go func() {
		d := net.Dialer{Timeout: config.AppConfig.ReadinessTimeout}
		conn, err := d.DialContext(ctx, "tcp", config.AppConfig.ReadinessSMTPTarget)
		if conn != nil {
			conn.Close()
		}
		results <- checkResult{"smtp_outbound", err == nil, errString(err)}
	}()

	checks := make(fiber.Map)
	allOK := true
	for i := 0; i < 3; i++ {
		r := <-results
		detail := fiber.Map{"ok": r.ok}
		if r.err != "" {
			detail["error"] = r.err
		}
		checks[r.name] = detail
		allOK = allOK && r.ok
	}

	status := "degraded"
	httpStatus := fiber.StatusServiceUnavailable
	if allOK {
		status = "ready"
		httpStatus = fiber.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Metrics serves the registry's point-in-time snapshot.
func (oc *OpsController) Metrics(c *fiber.Ctx) error {
	if oc.Metrics == nil {
		return c.JSON(metrics.Snapshot{})
	}
	return c.JSON(oc.Metrics.Snapshot())
}

// Stats serves backend-agnostic persisted-result aggregates.
func (oc *OpsController) Stats(c *fiber.Ctx) error {
	if oc.Store == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "no persistent store configured", nil)
	}
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	stats, err := oc.Store.Stats(ctx)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "failed to compute stats", err)
	}
	return c.JSON(utils.SuccessResponse(stats))
}
