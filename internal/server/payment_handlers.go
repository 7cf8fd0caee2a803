package server

import (
	"biblio/internal/models"
	"biblio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyPayments handles GET /api/payments/me for the authenticated member.
func (s *Server) GetMyPayments(c *fiber.Ctx) error {
	borrower, err := s.currentBorrower(c)
	if err != nil {
		return nil
	}

	p := parsePagination(c, 20)
	payments, err := s.payments.ListForBorrower(c.Context(), borrower.ID, p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"payments": payments,
		"count":    len(payments),
	})
}

// ListRequestPayments handles GET /api/requests/:id/payments.
func (s *Server) ListRequestPayments(c *fiber.Ctx) error {
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

	payments, err := s.payments.ListForRequest(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"request_id": id,
		"payments":   payments,
	})
}

// SubmitPaymentProof handles POST /api/payments/:id/proof. The member
// attaches their transfer details; the payment stays pending until an
// admin reviews it.
func (s *Server) SubmitPaymentProof(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	payment, err := s.payments.GetPayment(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	view, err := s.lifecycle.GetRequest(c.Context(), payment.RequestID)
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
			models.NewUnauthorizedError("Not your payment"))
	}

	var body struct {
		Method      string `json:"method"`
		ReferenceNo string `json:"reference_no"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	payment, err = s.payments.SubmitProof(c.Context(), service.SubmitProofInput{
		PaymentID:   id,
		Method:      body.Method,
		ReferenceNo: body.ReferenceNo,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(payment)
}

// ConfirmPayment handles POST /api/admin/payments/:id/confirm.
func (s *Server) ConfirmPayment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Method      string `json:"method"`
		ReferenceNo string `json:"reference_no"`
	}
	_ = c.BodyParser(&body)

	payment, err := s.payments.ConfirmPayment(c.Context(), service.ConfirmPaymentInput{
		PaymentID:   id,
		Method:      body.Method,
		ReferenceNo: body.ReferenceNo,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(payment)
}

// CancelPayment handles POST /api/admin/payments/:id/cancel.
func (s *Server) CancelPayment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	payment, err := s.payments.CancelPayment(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(payment)
}
