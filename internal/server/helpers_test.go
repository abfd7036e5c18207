package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"techatlas/internal/models"
	"techatlas/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- humanizeParam (pure function, no HTTP) ---

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"threadId", "thread ID"},
		{"blogPostId", "blog post ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

// --- parsePagination ---

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	tests := []struct {
		query  string
		limit  float64
		offset float64
	}{
		{"", 25, 0},
		{"?limit=10&offset=30", 10, 30},
		{"?limit=500", 100, 0},
		{"?limit=-1&offset=-5", 25, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.limit, body["limit"])
			assert.Equal(t, tt.offset, body["offset"])
		})
	}
}

// --- parseID ---

func TestParseID(t *testing.T) {
	tests := []struct {
		name   string
		param  string
		path   string
		status int
		msg    string
	}{
		{"valid", "id", "/items/42", http.StatusOK, ""},
		{"non numeric", "id", "/items/abc", http.StatusBadRequest, "Invalid ID"},
		{"zero", "id", "/items/0", http.StatusBadRequest, "Invalid ID"},
		{"named param", "threadId", "/items/x", http.StatusBadRequest, "Invalid thread ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			s := &Server{}
			app.Get("/items/:"+tt.param, func(c *fiber.Ctx) error {
				id, err := s.parseID(c, tt.param)
				if err != nil {
					return nil
				}
				return c.JSON(fiber.Map{"id": id})
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.msg != "" {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.msg, body.Error)
				assert.Equal(t, models.CodeValidation, body.Code)
			}
		})
	}
}

func TestRequireDatabase(t *testing.T) {
	app := fiber.New()
	app.Get("/up", func(c *fiber.Ctx) error {
		if err := requireDatabase(c, true, "the forum"); err != nil {
			return nil
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/down", func(c *fiber.Ctx) error {
		if err := requireDatabase(c, false, "the forum"); err != nil {
			return nil
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/up", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/down", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeConfiguration, body.Code)
	assert.True(t, strings.HasPrefix(body.Error, "the forum is unavailable"))
}

func TestSetStoreHeader(t *testing.T) {
	app := fiber.New()
	app.Get("/served", func(c *fiber.Ctx) error {
		setStoreHeader(c, &repository.Report{Served: "memory"})
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/none", func(c *fiber.Ctx) error {
		setStoreHeader(c, nil)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/served", nil))
	require.NoError(t, err)
	assert.Equal(t, "memory", resp.Header.Get(storeHeader))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/none", nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get(storeHeader))
}

func TestToggleValue(t *testing.T) {
	app := fiber.New()
	app.Post("/toggle", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"value": toggleValue(c, "pinned")})
	})

	tests := []struct {
		body string
		want bool
	}{
		{"", true},
		{`{"pinned":false}`, false},
		{`{"pinned":true}`, true},
		{`{"other":false}`, true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/toggle", strings.NewReader(tt.body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)

		var body map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()
		assert.Equal(t, tt.want, body["value"], tt.body)
	}
}
