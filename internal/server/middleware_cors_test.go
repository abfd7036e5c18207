package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"techatlas/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frontendOrigin = "https://atlas.ug"

func corsApp(t *testing.T) *fiber.App {
	t.Helper()
	s := &Server{config: &config.Config{AllowedOrigins: frontendOrigin}}
	app := fiber.New()
	s.SetupMiddleware(app)
	app.All("/api/hubs", func(c *fiber.Ctx) error {
		c.Set(storeHeader, "primary")
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func send(t *testing.T, app *fiber.App, method, origin string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/api/hubs", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCORS_ExposesStoreHeaderToFrontend(t *testing.T) {
	app := corsApp(t)

	resp := send(t, app, http.MethodGet, frontendOrigin, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, frontendOrigin, resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlExposeHeaders), storeHeader)
	assert.Equal(t, "primary", resp.Header.Get(storeHeader))

	other := send(t, app, http.MethodGet, "https://evil.example", nil)
	assert.Empty(t, other.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestCORS_SurvivesGlobalLimiter(t *testing.T) {
	app := corsApp(t)

	for i := 0; i < 120; i++ {
		resp := send(t, app, http.MethodPost, frontendOrigin, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i)
	}

	limited := send(t, app, http.MethodPost, frontendOrigin, nil)
	assert.Equal(t, fiber.StatusTooManyRequests, limited.StatusCode)
	assert.Equal(t, frontendOrigin, limited.Header.Get(fiber.HeaderAccessControlAllowOrigin))

	preflight := send(t, app, http.MethodOptions, frontendOrigin, map[string]string{
		fiber.HeaderAccessControlRequestMethod:  http.MethodPost,
		fiber.HeaderAccessControlRequestHeaders: "authorization,content-type",
	})
	assert.Equal(t, fiber.StatusNoContent, preflight.StatusCode)
	assert.Contains(t, preflight.Header.Get(fiber.HeaderAccessControlAllowMethods), http.MethodPost)
}
