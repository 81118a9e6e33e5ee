package controller

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"mailnexy/internal/finder"
	"mailnexy/utils"
)

// FinderController serves /find and /find/batch, backed by the email
// finder (C10).
type FinderController struct {
	Finder *finder.Finder
	Logger *slog.Logger
}

func NewFinderController(f *finder.Finder, logger *slog.Logger) *FinderController {
	if logger == nil {
		logger = slog.Default()
	}
	return &FinderController{Finder: f, Logger: logger}
}

type findRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Domain    string `json:"domain"`
}

type batchFindRequest struct {
	Contacts    []findRequest `json:"contacts"`
	Concurrency int           `json:"concurrency"`
}

// Find handles POST /find.
func (fc *FinderController) Find(c *fiber.Ctx) error {
	var req findRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body", err)
	}
	if req.FirstName == "" || req.Domain == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "first_name and domain are required", nil)
	}

	result := fc.Finder.Find(c.Context(), req.FirstName, req.LastName, req.Domain)
	return c.JSON(result)
}

// FindBatch handles POST /find/batch.
func (fc *FinderController) FindBatch(c *fiber.Ctx) error {
	var req batchFindRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "invalid request body", err)
	}
	if len(req.Contacts) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "contacts must not be empty", nil)
	}
	if len(req.Contacts) > maxBatchSize {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "batch exceeds the maximum of 1000 contacts", nil)
	}

	contacts := make([]finder.Contact, len(req.Contacts))
	for i, r := range req.Contacts {
		contacts[i] = finder.Contact{FirstName: r.FirstName, LastName: r.LastName, Domain: r.Domain}
	}

	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = finder.DefaultConcurrency
	}

	results := fc.Finder.FindBatch(c.Context(), contacts, concurrency)
	return c.JSON(fiber.Map{"results": results})
}
