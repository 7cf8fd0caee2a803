package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookCRUDOverHTTP(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	_, adminTok := e.createUser(t, "bookadmin", "bookadmin@example.com", true)

	// Create
	resp := e.doJSON(t, http.MethodPost, "/api/admin/books", adminTok, fiber.Map{
		"title":          "Clean Architecture",
		"author":         "Robert Martin",
		"isbn":           "9780134494166",
		"stock":          7,
		"published_year": 2017,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON(t, resp)
	bookID := uint(created["id"].(float64))
	assert.Equal(t, float64(7), created["stock"])

	// Public read
	resp = e.doJSON(t, http.MethodGet, fmt.Sprintf("/api/books/%d", bookID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Clean Architecture", decodeJSON(t, resp)["title"])

	// Public list
	resp = e.doJSON(t, http.MethodGet, "/api/books", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), decodeJSON(t, resp)["count"])

	// Update keeps absent fields
	resp = e.doJSON(t, http.MethodPut, fmt.Sprintf("/api/admin/books/%d", bookID), adminTok, fiber.Map{
		"author": "Robert C. Martin",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeJSON(t, resp)
	assert.Equal(t, "Robert C. Martin", updated["author"])
	assert.Equal(t, "Clean Architecture", updated["title"])

	// Delete
	resp = e.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/admin/books/%d", bookID), adminTok, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.doJSON(t, http.MethodGet, fmt.Sprintf("/api/books/%d", bookID), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateBookValidation(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	_, adminTok := e.createUser(t, "valbookadmin", "valbookadmin@example.com", true)

	resp := e.doJSON(t, http.MethodPost, "/api/admin/books", adminTok, fiber.Map{
		"author": "No Title",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.doJSON(t, http.MethodPost, "/api/admin/books", adminTok, fiber.Map{
		"title": "Negative Stock",
		"stock": -2,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCategoriesAndSuppliers(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	_, adminTok := e.createUser(t, "refadmin", "refadmin@example.com", true)

	resp := e.doJSON(t, http.MethodPost, "/api/admin/categories", adminTok, fiber.Map{
		"name":        "Science Fiction",
		"description": "Space operas and more",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.doJSON(t, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	categories := decodeJSON(t, resp)["categories"].([]any)
	require.Len(t, categories, 1)
	assert.Equal(t, "Science Fiction", categories[0].(map[string]any)["name"])

	resp = e.doJSON(t, http.MethodPost, "/api/admin/suppliers", adminTok, fiber.Map{
		"name":  "Acme Books Ltd",
		"email": "orders@acmebooks.example",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.doJSON(t, http.MethodGet, "/api/admin/suppliers", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	suppliers := decodeJSON(t, resp)["suppliers"].([]any)
	require.Len(t, suppliers, 1)

	// Name is mandatory for both.
	resp = e.doJSON(t, http.MethodPost, "/api/admin/categories", adminTok, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBorrowerManagement(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	_, adminTok := e.createUser(t, "badmin", "badmin@example.com", true)

	resp := e.doJSON(t, http.MethodPost, "/api/admin/borrowers", adminTok, fiber.Map{
		"name":      "Ada Lovelace",
		"email":     "ada@example.com",
		"member_no": "LB-0101",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON(t, resp)
	borrowerID := uint(created["id"].(float64))

	// Bad member numbers are rejected.
	resp = e.doJSON(t, http.MethodPost, "/api/admin/borrowers", adminTok, fiber.Map{
		"name":      "Bad Number",
		"member_no": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Update and read back.
	resp = e.doJSON(t, http.MethodPut, fmt.Sprintf("/api/admin/borrowers/%d", borrowerID), adminTok, fiber.Map{
		"phone": "555-0147",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.doJSON(t, http.MethodGet, fmt.Sprintf("/api/admin/borrowers/%d", borrowerID), adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeJSON(t, resp)
	assert.Equal(t, "555-0147", fetched["phone"])
	assert.Equal(t, "Ada Lovelace", fetched["name"])

	// Deleting a borrower with open requests is refused.
	book := e.createBook(t, "Blocking Title", 2)
	resp = e.doJSON(t, http.MethodPost, "/api/requests", adminTok, fiber.Map{
		"book_id":     book.ID,
		"quantity":    1,
		"borrower_id": borrowerID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/admin/borrowers/%d", borrowerID), adminTok, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
