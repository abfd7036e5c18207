package server

import (
	"techatlas/internal/middleware"
	"techatlas/internal/models"
	"techatlas/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new member account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SignupInput true "Signup request"
// @Success 201 {object} service.Session
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.authService != nil, "account registration"); err != nil {
		return nil
	}
	var req service.SignupInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	session, err := s.authService.Signup(c.UserContext(), req)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate and return a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} service.Session
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.authService != nil, "login"); err != nil {
		return nil
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	session, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(session)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the current token
// @Tags auth
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals(localClaims).(*middleware.Claims)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthenticatedError("Authorization required"))
	}
	if s.authService == nil {
		return models.Respond(c, models.NewConfigurationError("token revocation is not available"))
	}
	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me handles GET /api/auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.authService != nil, "profiles"); err != nil {
		return nil
	}
	userID, _ := c.Locals(localUserID).(uint)
	user, err := s.authService.Me(c.UserContext(), userID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user)
}

// UpdateMe handles PUT /api/auth/me
// @Summary Update own profile
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{display_name=string,avatar_url=string} true "Profile"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/me [put]
func (s *Server) UpdateMe(c *fiber.Ctx) error {
	if err := requireDatabase(c, s.userService != nil, "profiles"); err != nil {
		return nil
	}
	var req struct {
		DisplayName string `json:"display_name"`
		AvatarURL   string `json:"avatar_url"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	userID, _ := c.Locals(localUserID).(uint)
	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:      userID,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user)
}
