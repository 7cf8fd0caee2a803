package server

import (
	"strconv"

	"biblio/internal/models"
	"biblio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Reconcile handles POST /api/admin/reconcile. It runs one consistency
// sweep over the scoped records and returns the report.
func (s *Server) Reconcile(c *fiber.Ctx) error {
	var scope service.ReconcilerScope

	if raw := c.Query("borrower_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid borrower_id"))
		}
		scope.BorrowerID = uint(id)
	}

	from, err := parseDateQuery(c, "from")
	if err != nil {
		return nil
	}
	scope.From = from

	to, err := parseDateQuery(c, "to")
	if err != nil {
		return nil
	}
	scope.To = to

	report, err := s.reconciler.Run(c.Context(), scope)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(report)
}

// Dashboard handles GET /api/admin/dashboard, the reporting aggregator.
func (s *Server) Dashboard(c *fiber.Ctx) error {
	report, err := s.reports.Dashboard(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(report)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(uint)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
