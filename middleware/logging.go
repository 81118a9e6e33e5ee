package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// RequestLog logs one structured entry per request: method, path, status,
// latency, and client IP. Grounded on the teacher's
// `log.New(os.Stdout, "PREFIX: ", …)` per-component logger pattern
// (worker/warmup_worker.go), generalized to logrus.WithFields so every
// request carries the same structured fields. The engine packages log
// through log/slog, not logrus.
func RequestLog(log *logrus.Logger) fiber.Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := logrus.Fields{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start).String(),
			"ip":      c.IP(),
		}
		entry := log.WithFields(fields)
		if err != nil {
			entry.WithError(err).Warn("request completed with error")
		} else {
			entry.Info("request completed")
		}
		return err
	}
}
