package server

import (
	"biblio/internal/models"

	"github.com/gofiber/fiber/v2"
)

type bookPayload struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	CategoryID    *uint  `json:"category_id"`
	SupplierID    *uint  `json:"supplier_id"`
	Stock         *int   `json:"stock"`
	PublishedYear int    `json:"published_year"`
}

// ListBooks handles GET /api/books.
func (s *Server) ListBooks(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	books, err := s.bookRepo.List(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"books": books,
		"count": len(books),
	})
}

// SearchBooks handles GET /api/books/search?q=.
func (s *Server) SearchBooks(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Search query 'q' is required"))
	}

	p := parsePagination(c, 20)
	books, err := s.bookRepo.Search(c.Context(), query, p.Limit, p.Offset)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"books": books,
		"count": len(books),
	})
}

// GetBook handles GET /api/books/:id.
func (s *Server) GetBook(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	book, err := s.bookRepo.GetByID(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(book)
}

// CreateBook handles POST /api/admin/books.
func (s *Server) CreateBook(c *fiber.Ctx) error {
	var body bookPayload
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if body.Title == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Title is required"))
	}

	book := &models.Book{
		Title:         body.Title,
		Author:        body.Author,
		ISBN:          body.ISBN,
		CategoryID:    body.CategoryID,
		SupplierID:    body.SupplierID,
		PublishedYear: body.PublishedYear,
	}
	if body.Stock != nil {
		if *body.Stock < 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Stock must not be negative"))
		}
		book.Stock = *body.Stock
	}

	if err := s.bookRepo.Create(c.Context(), book); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(book)
}

// UpdateBook handles PUT /api/admin/books/:id. Stock is adjusted only through
// the lifecycle engine, so absent fields keep their stored values.
func (s *Server) UpdateBook(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	book, err := s.bookRepo.GetByID(c.Context(), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	var body bookPayload
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if body.Title != "" {
		book.Title = body.Title
	}
	if body.Author != "" {
		book.Author = body.Author
	}
	if body.ISBN != "" {
		book.ISBN = body.ISBN
	}
	if body.CategoryID != nil {
		book.CategoryID = body.CategoryID
	}
	if body.SupplierID != nil {
		book.SupplierID = body.SupplierID
	}
	if body.PublishedYear != 0 {
		book.PublishedYear = body.PublishedYear
	}
	if body.Stock != nil {
		if *body.Stock < 0 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Stock must not be negative"))
		}
		book.Stock = *body.Stock
	}

	if err := s.bookRepo.Update(c.Context(), book); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(book)
}

// DeleteBook handles DELETE /api/admin/books/:id.
func (s *Server) DeleteBook(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.bookRepo.Delete(c.Context(), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListCategories handles GET /api/categories.
func (s *Server) ListCategories(c *fiber.Ctx) error {
	categories, err := s.referenceRepo.ListCategories(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// CreateCategory handles POST /api/admin/categories.
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if body.Name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name is required"))
	}

	category := &models.Category{Name: body.Name, Description: body.Description}
	if err := s.referenceRepo.CreateCategory(c.Context(), category); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// ListSuppliers handles GET /api/admin/suppliers.
func (s *Server) ListSuppliers(c *fiber.Ctx) error {
	suppliers, err := s.referenceRepo.ListSuppliers(c.Context())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"suppliers": suppliers})
}

// CreateSupplier handles POST /api/admin/suppliers.
func (s *Server) CreateSupplier(c *fiber.Ctx) error {
	var body struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
	}
	if err := c.BodyParser(&body); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if body.Name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name is required"))
	}

	supplier := &models.Supplier{
		Name:    body.Name,
		Email:   body.Email,
		Phone:   body.Phone,
		Address: body.Address,
	}
	if err := s.referenceRepo.CreateSupplier(c.Context(), supplier); err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(supplier)
}
