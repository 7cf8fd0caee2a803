package server

import (
	"net/http"
	"testing"

	"biblio/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)

	tests := []struct {
		name           string
		body           fiber.Map
		expectedStatus int
	}{
		{
			name: "Success",
			body: fiber.Map{
				"username": "testuser",
				"email":    "test@example.com",
				"password": "SecurePass12!",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate Email",
			body: fiber.Map{
				"username": "testuser2",
				"email":    "test@example.com",
				"password": "SecurePass12!",
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Weak Password",
			body: fiber.Map{
				"username": "weakling",
				"email":    "weak@example.com",
				"password": "short",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Bad Username",
			body: fiber.Map{
				"username": "_nope",
				"email":    "nope@example.com",
				"password": "SecurePass12!",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Missing Fields",
			body: fiber.Map{
				"username": "incomplete",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := e.doJSON(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestSignupNeverLeaksPasswordHash(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)

	resp := e.doJSON(t, http.MethodPost, "/api/auth/signup", "", fiber.Map{
		"username": "hashcheck",
		"email":    "hashcheck@example.com",
		"password": "SecurePass12!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, user, "PasswordHash")
}

func TestLogin(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	e.createUser(t, "loginuser", "login@example.com", false)

	t.Run("Success", func(t *testing.T) {
		resp := e.doJSON(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "login@example.com",
			"password": "SecurePass12!",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON(t, resp)
		assert.NotEmpty(t, body["token"])
	})

	t.Run("Wrong Password", func(t *testing.T) {
		resp := e.doJSON(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "login@example.com",
			"password": "WrongPass12!!",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Unknown Email", func(t *testing.T) {
		resp := e.doJSON(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "ghost@example.com",
			"password": "SecurePass12!",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		body := decodeJSON(t, resp)
		assert.Equal(t, models.CodeUnauthorized, body["code"])
	})
}

func TestLoginTokenGrantsAccess(t *testing.T) {
	t.Parallel()
	e := newTestServer(t)
	user, _ := e.createUser(t, "roundtrip", "roundtrip@example.com", false)
	e.createBorrower(t, &user.ID, "LB-3001")

	resp := e.doJSON(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "roundtrip@example.com",
		"password": "SecurePass12!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := decodeJSON(t, resp)["token"].(string)

	resp = e.doJSON(t, http.MethodGet, "/api/requests/me", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
