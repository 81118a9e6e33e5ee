package controller

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"mailnexy/internal/tiered"
	"mailnexy/utils"
)

// creditsFloor is the "always N >= a large constant" value spec.md §6
// requires from the legacy /v1/validate/credits alias, now that credits
// are not actually metered.
const creditsFloor = 1_000_000

// maxBatchSize bounds POST /verify/batch per spec.md §6 (>1000 -> 400).
const maxBatchSize = 1000

// VerificationController serves /verify, /verify/batch, and their /v1
// aliases, backed by the tiered decision engine (C9).
type VerificationController struct {
	Engine *tiered.Engine
	Logger *slog.Logger
}

func NewVerificationController(engine *tiered.Engine, logger *slog.Logger) *VerificationController {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationController{Engine: engine, Logger: logger}
}

type verifyRequest struct {
	Email string `json:"email"`
}

type batchVerifyRequest struct {
	Emails []string `json:"emails"`
}

// Verify handles GET /verify?email=, POST /verify, and both /v1 aliases.
func (vc *VerificationController) Verify(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" && c.Params("email") != "" {
		email = c.Params("email")
	}
	if email == "" {
		var body verifyRequest
		if err := c.BodyParser(&body); err == nil {
			email = body.Email
		}
	}
	if email == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "email address is required", nil)
	}

	outcome := vc.Engine.Verify(c.Context(), email, 0)
	return c.JSON(omniOutcome(outcome))
}

// BatchVerify handles POST /verify/batch.
func (vc *VerificationController) BatchVerify(c *fiber.Ctx) error {
	var req batchVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body", err)
	}
	if len(req.Emails) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "emails must not be empty", nil)
	}
	if len(req.Emails) > maxBatchSize {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "batch exceeds the maximum of 1000 emails", nil)
	}

	results := make([]fiber.Map, len(req.Emails))
	for i, email := range req.Emails {
		outcome := vc.Engine.Verify(c.Context(), email, 0)
		results[i] = omniOutcome(outcome)
	}

	return c.JSON(fiber.Map{"results": results})
}

// ValidateCredits serves the legacy GET /v1/validate/credits stub: the
// engine no longer meters per-verification credits, so this always
// reports a large remaining balance for backward compatibility.
func (vc *VerificationController) ValidateCredits(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"credits":   creditsFloor,
		"remaining": creditsFloor,
	})
}
