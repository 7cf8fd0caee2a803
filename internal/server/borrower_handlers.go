package server

import (
	"time"

	"biblio/internal/models"
	"biblio/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type borrowerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	MemberNo string `json:"member_no"`
	UserID   *uint  `json:"user_id"`
}

// ListBorrowers handles GET /api/admin/borrowers.
func (s *Server) ListBorrowers(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	borrowers, err := s.borrowerRepo.List(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"borrowers": borrowers,
		"count":     len(borrowers),
	})
}

// GetBorrower handles GET /api/admin/borrowers/:id.
func (s *Server) GetBorrower(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	borrower, err := s.borrowerRepo.GetByID(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(borrower)
}

// CreateBorrower handles POST /api/admin/borrowers.
func (s *Server) CreateBorrower(c *fiber.Ctx) error {
	var body borrowerPayload
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if body.Name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name is required"))
	}
	if body.MemberNo == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Member number is required"))
	}
	if err := validation.ValidateMemberNo(body.MemberNo); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if body.Email != "" {
		if err := validation.ValidateEmail(body.Email); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
	}

	borrower := &models.Borrower{
		Name:       body.Name,
		Email:      body.Email,
		Phone:      body.Phone,
		Address:    body.Address,
		MemberNo:   body.MemberNo,
		UserID:     body.UserID,
		JoinedDate: time.Now().UTC(),
	}

	if err := s.borrowerRepo.Create(c.Context(), borrower); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(borrower)
}

// UpdateBorrower handles PUT /api/admin/borrowers/:id.
func (s *Server) UpdateBorrower(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	borrower, err := s.borrowerRepo.GetByID(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	var body borrowerPayload
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if body.Name != "" {
		borrower.Name = body.Name
	}
	if body.Email != "" {
		if err := validation.ValidateEmail(body.Email); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
		borrower.Email = body.Email
	}
	if body.Phone != "" {
		borrower.Phone = body.Phone
	}
	if body.Address != "" {
		borrower.Address = body.Address
	}
	if body.MemberNo != "" {
		if err := validation.ValidateMemberNo(body.MemberNo); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
		borrower.MemberNo = body.MemberNo
	}
	if body.UserID != nil {
		borrower.UserID = body.UserID
	}

	if err := s.borrowerRepo.Update(c.Context(), borrower); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(borrower)
}

// DeleteBorrower handles DELETE /api/admin/borrowers/:id. Borrowers with
// open requests cannot be removed.
func (s *Server) DeleteBorrower(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	open, err := s.requestRepo.CountNonTerminalByBorrower(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	if open > 0 {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewValidationError("Borrower still has open borrow requests"))
	}

	if err := s.borrowerRepo.Delete(c.Context(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
