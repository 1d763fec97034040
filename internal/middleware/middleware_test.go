package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mansoorceksport/elearning-billing/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-123"

func signToken(t *testing.T, secret, userID string, roles ...string) string {
	t.Helper()
	claims := domain.LearnerClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyAccessToken(t *testing.T) {
	app := fiber.New()
	app.Get("/me", VerifyAccessToken(testSecret), AuthorizeRole(domain.RoleLearner), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"missing token", "", fiber.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + signToken(t, "other", "L1", domain.RoleLearner), fiber.StatusUnauthorized, ""},
		{"wrong role", "Bearer " + signToken(t, testSecret, "A1", domain.RoleAdmin), fiber.StatusForbidden, ""},
		{"learner", "Bearer " + signToken(t, testSecret, "L1", domain.RoleLearner), fiber.StatusOK, "L1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tt.wantBody, string(body))
			}
		})
	}
}

func TestIdempotencyMiddleware(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	calls := 0
	app := fiber.New()
	app.Post("/checkout",
		VerifyAccessToken(testSecret),
		IdempotencyMiddleware(client, time.Minute),
		func(c *fiber.Ctx) error {
			calls++
			return c.JSON(fiber.Map{"call": calls})
		},
	)

	post := func(userID, correlationID string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID, domain.RoleLearner))
		if correlationID != "" {
			req.Header.Set("X-Correlation-ID", correlationID)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	first := post("L1", "corr-1")
	assert.Equal(t, fiber.StatusOK, first.StatusCode)

	replay := post("L1", "corr-1")
	assert.Equal(t, "true", replay.Header.Get("X-Idempotent-Replay"))
	body, _ := io.ReadAll(replay.Body)
	assert.JSONEq(t, `{"call":1}`, string(body))

	// Another user reusing the id is not replayed
	post("L2", "corr-1")
	post("L1", "")
	assert.Equal(t, 3, calls)
}
