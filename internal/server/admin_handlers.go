package server

import (
	"techatlas/internal/middleware"
	"techatlas/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminStats handles GET /api/admin/stats
// @Summary Dashboard counts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.DashboardStats
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/stats [get]
func (s *Server) AdminStats(c *fiber.Ctx) error {
	stats, err := s.moderation.Stats(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(stats)
}

// AdminPending handles GET /api/admin/pending
// @Summary Review queue
// @Description Listings of every kind waiting for review, newest first.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum rows"
// @Success 200 {object} object{items=[]service.PendingItem,count=int}
// @Router /admin/pending [get]
func (s *Server) AdminPending(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	items, err := s.moderation.Pending(c.UserContext(), page.Limit)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "count": len(items)})
}

// ApproveContent handles POST /api/admin/:kind/:id/approve
// @Summary Approve a listing
// @Tags admin
// @Security BearerAuth
// @Param kind path string true "Content type"
// @Param id path int true "Listing ID"
// @Success 200 {object} object
// @Router /admin/{kind}/{id}/approve [post]
func (s *Server) ApproveContent(c *fiber.Ctx) error {
	return s.review(c, models.StatusApproved)
}

// RejectContent handles POST /api/admin/:kind/:id/reject
// @Summary Reject a listing
// @Tags admin
// @Security BearerAuth
// @Param kind path string true "Content type"
// @Param id path int true "Listing ID"
// @Success 200 {object} object
// @Router /admin/{kind}/{id}/reject [post]
func (s *Server) RejectContent(c *fiber.Ctx) error {
	return s.review(c, models.StatusRejected)
}

func (s *Server) review(c *fiber.Ctx, status models.Status) error {
	api, err := s.contentAPI(c)
	if err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	caller, err := s.caller(c)
	if err != nil {
		return models.Respond(c, err)
	}
	rec, err := api.Review(c.UserContext(), caller, id, status)
	if err != nil {
		return models.Respond(c, err)
	}
	info := api.Info()
	middleware.LoggerFromContext(c.UserContext()).Info("listing reviewed",
		zap.String("kind", string(info.Kind)),
		zap.Uint("id", id),
		zap.String("status", string(status)),
		zap.Uint("reviewer_id", caller.ID))
	return c.JSON(fiber.Map{
		"message":     info.Singular + " " + string(status),
		info.Singular: rec,
	})
}

// AdminDeleteContent handles DELETE /api/admin/:kind/:id
// @Summary Delete a listing
// @Tags admin
// @Security BearerAuth
// @Param kind path string true "Content type"
// @Param id path int true "Listing ID"
// @Success 200 {object} object{message=string}
// @Router /admin/{kind}/{id} [delete]
func (s *Server) AdminDeleteContent(c *fiber.Ctx) error {
	return s.deleteContent(c)
}

// AdminListUsers handles GET /api/admin/users
// @Summary List accounts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by role"
// @Param limit query int false "Maximum rows"
// @Param offset query int false "Rows to skip"
// @Success 200 {object} object{users=[]models.User,count=int}
// @Router /admin/users [get]
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.userService != nil, "account management"); err != nil {
		return nil
	}
	page := parsePagination(c, 50)
	users, err := s.userService.ListUsers(c.UserContext(), models.Role(c.Query("role")), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "count": len(users)})
}

// AdminSetRole handles PUT /api/admin/users/:id/role
// @Summary Change an account role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (s *Server) AdminSetRole(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.userService != nil, "account management"); err != nil {
		return nil
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	caller, err := s.caller(c)
	if err != nil {
		return models.Respond(c, err)
	}
	user, err := s.userService.SetRole(c.UserContext(), caller, id, req.Role)
	if err != nil {
		return models.Respond(c, err)
	}
	middleware.LoggerFromContext(c.UserContext()).Info("role changed",
		zap.Uint("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Uint("actor_id", caller.ID))
	return c.JSON(user)
}
