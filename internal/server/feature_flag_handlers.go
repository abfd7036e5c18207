package server

import (
	"techatlas/internal/featureflags"
	"techatlas/internal/middleware"
	"techatlas/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GetFeatureFlags returns the evaluated flag state for the current user.
// @Summary Feature flags for the caller
// @Tags feature-flags
// @Produce json
// @Success 200 {object} object{flags=map[string]bool}
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals(localUserID).(uint)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{"flags": map[string]bool{}})
	}
	return c.JSON(fiber.Map{"flags": s.featureFlags.Snapshot(userID)})
}

// AdminFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Configured feature flags
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Router /admin/feature-flags [get]
func (s *Server) AdminFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals(localUserID).(uint)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}

// AdminSetFeatureFlag handles PUT /api/admin/feature-flags/:name
// @Summary Change a feature flag
// @Description Values are on, off or a rollout percentage such as 25%.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param name path string true "Flag name"
// @Param request body object{value=string} true "New value"
// @Success 200 {object} object{raw=map[string]string}
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/feature-flags/{name} [put]
func (s *Server) AdminSetFeatureFlag(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return models.Respond(c, models.NewConfigurationError("feature flags are not configured"))
	}
	var req struct {
		Value string `json:"value"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	name := c.Params("name")
	if !s.featureFlags.Set(name, req.Value) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("value must be on, off or a percentage like 25%"))
	}
	userID, _ := c.Locals(localUserID).(uint)
	middleware.LoggerFromContext(c.UserContext()).Info("feature flag changed",
		zap.String("flag", name),
		zap.String("value", req.Value),
		zap.Uint("actor_id", userID))
	return c.JSON(fiber.Map{"raw": s.featureFlags.Raw()})
}

// agentsEnabled hides the agent endpoints unless the ai_agents flag is on
// for the caller.
func (s *Server) agentsEnabled(c *fiber.Ctx) error {
	userID, _ := c.Locals(localUserID).(uint)
	if s.featureFlags != nil && !s.featureFlags.Enabled(featureflags.AIAgents, userID) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			&models.AppError{Code: models.CodeNotFound, Message: "AI agents are not enabled"})
	}
	return c.Next()
}
