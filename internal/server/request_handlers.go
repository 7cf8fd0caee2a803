package server

import (
	"strconv"
	"time"

	"biblio/internal/models"
	"biblio/internal/repository"
	"biblio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SubmitRequest handles POST /api/requests. Members submit for their own
// borrower profile; admins may submit on behalf of any borrower.
func (s *Server) SubmitRequest(c *fiber.Ctx) error {
	var body struct {
		BookID     uint   `json:"book_id"`
		Quantity   int    `json:"quantity"`
		BorrowerID uint   `json:"borrower_id"`
		Remarks    string `json:"remarks"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := c.Locals("userID").(uint)
	borrowerID := body.BorrowerID
	if borrowerID == 0 {
		borrower, err := s.currentBorrower(c)
		if err != nil {
			return nil
		}
		borrowerID = borrower.ID
	} else {
		admin, err := s.isAdminByUserID(c.Context(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		}
		if !admin {
			own, oerr := s.borrowerRepo.GetByUserID(c.Context(), userID)
			if oerr != nil || own.ID != borrowerID {
				return models.RespondWithError(c, fiber.StatusForbidden,
					models.NewUnauthorizedError("Cannot submit requests for another borrower"))
			}
		}
	}

	req, err := s.lifecycle.SubmitRequest(c.Context(), service.SubmitRequestInput{
		BorrowerID: borrowerID,
		BookID:     body.BookID,
		Quantity:   body.Quantity,
		ActorID:    userID,
		Remarks:    body.Remarks,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

// GetMyRequests handles GET /api/requests/me for the authenticated member.
func (s *Server) GetMyRequests(c *fiber.Ctx) error {
	borrower, err := s.currentBorrower(c)
	if err != nil {
		return nil
	}

	filter, err := s.requestFilterFromQuery(c)
	if err != nil {
		return nil
	}
	filter.BorrowerID = borrower.ID

	views, err := s.lifecycle.ListRequests(c.Context(), filter)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"requests": views,
		"count":    len(views),
	})
}

// GetRequest handles GET /api/requests/:id with its derived status.
func (s *Server) GetRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	view, err := s.lifecycle.GetRequest(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	allowed, err := s.canViewRequest(c, view.BorrowRequest)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if !allowed {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Not your request"))
	}

	return c.JSON(view)
}

// GetRequestAudit handles GET /api/requests/:id/audit, the transition trail.
func (s *Server) GetRequestAudit(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	view, err := s.lifecycle.GetRequest(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	allowed, err := s.canViewRequest(c, view.BorrowRequest)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if !allowed {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewUnauthorizedError("Not your request"))
	}

	trail, err := s.lifecycle.AuditTrail(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"request_id": id,
		"audit":      trail,
	})
}

// ListRequests handles GET /api/admin/requests with filtering.
func (s *Server) ListRequests(c *fiber.Ctx) error {
	filter, err := s.requestFilterFromQuery(c)
	if err != nil {
		return nil
	}

	views, err := s.lifecycle.ListRequests(c.Context(), filter)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"requests": views,
		"count":    len(views),
	})
}

// ListBorrowerRequests handles GET /api/admin/borrowers/:id/requests.
func (s *Server) ListBorrowerRequests(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.borrowerRepo.GetByID(c.Context(), id); err != nil {
		return respondServiceError(c, err)
	}

	filter, err := s.requestFilterFromQuery(c)
	if err != nil {
		return nil
	}
	filter.BorrowerID = id

	views, err := s.lifecycle.ListRequests(c.Context(), filter)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"requests": views,
		"count":    len(views),
	})
}

// ApproveRequest handles POST /api/admin/requests/:id/approve.
func (s *Server) ApproveRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		BorrowPeriodDays int    `json:"borrow_period_days"`
		Remarks          string `json:"remarks"`
	}
	_ = c.BodyParser(&body) // body is optional

	req, err := s.lifecycle.ApproveRequest(c.Context(), service.ApproveRequestInput{
		RequestID:        id,
		ActorID:          c.Locals("userID").(uint),
		BorrowPeriodDays: body.BorrowPeriodDays,
		Remarks:          body.Remarks,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(req)
}

// RejectRequest handles POST /api/admin/requests/:id/reject.
func (s *Server) RejectRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Remarks string `json:"remarks"`
	}
	_ = c.BodyParser(&body)

	req, err := s.lifecycle.RejectRequest(c.Context(), service.RejectRequestInput{
		RequestID: id,
		ActorID:   c.Locals("userID").(uint),
		Remarks:   body.Remarks,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(req)
}

// ReturnBook handles POST /api/admin/requests/:id/return. The response
// carries the late-fee payment when the return was overdue.
func (s *Server) ReturnBook(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		ReturnDate *time.Time `json:"return_date"`
		Remarks    string     `json:"remarks"`
	}
	_ = c.BodyParser(&body)

	req, fee, err := s.lifecycle.ReturnBook(c.Context(), service.ReturnBookInput{
		RequestID:  id,
		ActorID:    c.Locals("userID").(uint),
		ReturnDate: body.ReturnDate,
		Remarks:    body.Remarks,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	resp := fiber.Map{"request": req}
	if fee != nil {
		resp["late_fee"] = fee
	}
	return c.JSON(resp)
}

// requestFilterFromQuery builds the list filter from query parameters.
// Writes a 400 response and returns errResponseWritten on malformed input.
func (s *Server) requestFilterFromQuery(c *fiber.Ctx) (repository.BorrowRequestFilter, error) {
	var filter repository.BorrowRequestFilter

	p := parsePagination(c, 20)
	filter.Limit = p.Limit
	filter.Offset = p.Offset

	if raw := c.Query("borrower_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			_ = models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid borrower_id"))
			return filter, errResponseWritten
		}
		filter.BorrowerID = uint(id)
	}

	switch status := c.Query("status"); status {
	case "":
	case string(models.ApprovalStatusPending), string(models.ApprovalStatusApproved), string(models.ApprovalStatusRejected):
		filter.Status = models.ApprovalStatus(status)
	default:
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid status filter"))
		return filter, errResponseWritten
	}

	if raw := c.Query("flagged"); raw != "" {
		flagged := raw == "true" || raw == "1"
		filter.Flagged = &flagged
	}

	from, err := parseDateQuery(c, "from")
	if err != nil {
		return filter, errResponseWritten
	}
	filter.From = from

	to, err := parseDateQuery(c, "to")
	if err != nil {
		return filter, errResponseWritten
	}
	filter.To = to

	return filter, nil
}
