package server

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"biblio/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "borrowerId" -> "borrower ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// respondServiceError maps a service-layer error onto the HTTP response.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}

// parseDateQuery reads an optional RFC3339 or YYYY-MM-DD query parameter.
// A malformed value writes a 400 response and returns errResponseWritten.
func parseDateQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	_ = models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid "+name+" date, use RFC3339 or YYYY-MM-DD"))
	return nil, errResponseWritten
}

func (s *Server) isAdminByUserID(ctx context.Context, userID uint) (bool, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("is_admin").First(&user, userID).Error; err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// currentBorrower resolves the borrower profile linked to the authenticated
// user. Writes a 404 response and returns errResponseWritten when the user
// has no borrower record.
func (s *Server) currentBorrower(c *fiber.Ctx) (*models.Borrower, error) {
	userID := c.Locals("userID").(uint)
	borrower, err := s.borrowerRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		_ = respondServiceError(c, err)
		return nil, errResponseWritten
	}
	return borrower, nil
}

// canViewRequest reports whether the authenticated user may read the given
// request: admins always, members only for their own borrower profile.
func (s *Server) canViewRequest(c *fiber.Ctx, req *models.BorrowRequest) (bool, error) {
	userID := c.Locals("userID").(uint)

	admin, err := s.isAdminByUserID(c.Context(), userID)
	if err != nil {
		return false, err
	}
	if admin {
		return true, nil
	}
	if req.Borrower != nil && req.Borrower.UserID != nil && *req.Borrower.UserID == userID {
		return true, nil
	}
	return false, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
