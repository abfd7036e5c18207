package server

import (
	"context"
	"errors"
	"strings"

	"techatlas/internal/middleware"
	"techatlas/internal/models"
	"techatlas/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var errTokenRevoked = errors.New("token has been revoked")

const (
	localUserID = "userID"
	localClaims = "claims"
	localCaller = "caller"
)

// authenticate verifies the bearer token and stores the identity in locals.
// The admin feed also accepts ?token= because browsers cannot set headers
// on websocket upgrades.
func (s *Server) authenticate(c *fiber.Ctx) (*middleware.Claims, error) {
	if claims, ok := c.Locals(localClaims).(*middleware.Claims); ok {
		return claims, nil
	}

	token := middleware.BearerToken(c)
	if token == "" && strings.HasPrefix(c.Path(), "/api/ws") {
		token = c.Query("token")
	}
	claims, err := middleware.ParseToken(s.config.JWTSecret, token)
	if err != nil {
		return nil, err
	}

	if s.authService != nil {
		revoked, err := s.authService.Revoked(c.UserContext(), claims.JTI)
		if err != nil {
			middleware.LoggerFromContext(c.UserContext()).Warn("token revocation check failed", zap.Error(err))
		}
		if revoked {
			return nil, errTokenRevoked
		}
	}

	c.Locals(localUserID, claims.UserID)
	c.Locals(localClaims, claims)
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID))
	return claims, nil
}

// AuthRequired rejects requests without a valid token with 401.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := s.authenticate(c); err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError(unauthenticatedMessage(err)))
		}
		return c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise continues anonymously.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if middleware.BearerToken(c) != "" {
			_, _ = s.authenticate(c)
		}
		return c.Next()
	}
}

// RoleRequired authenticates the request and rejects callers ranked below
// min with 403. The role is read from the user record, never from the token.
func (s *Server) RoleRequired(min models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := s.authenticate(c); err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError(unauthenticatedMessage(err)))
		}
		caller, err := s.caller(c)
		if err != nil {
			return models.Respond(c, err)
		}
		if !caller.Role.AtLeast(min) {
			return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError("access denied"))
		}
		return c.Next()
	}
}

// caller resolves the identity of the request. Anonymous requests yield the
// zero Caller. Without the primary database every account is a plain user.
func (s *Server) caller(c *fiber.Ctx) (service.Caller, error) {
	if caller, ok := c.Locals(localCaller).(service.Caller); ok {
		return caller, nil
	}
	userID, ok := c.Locals(localUserID).(uint)
	if !ok || userID == 0 {
		return service.Caller{}, nil
	}

	caller := service.Caller{ID: userID, Role: models.RoleUser}
	if s.userService != nil {
		user, err := s.userService.GetUserByID(c.UserContext(), userID)
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
				return service.Caller{}, models.NewUnauthenticatedError("account no longer exists")
			}
			return service.Caller{}, err
		}
		caller.Role = user.Role
	}
	c.Locals(localCaller, caller)
	return caller, nil
}

// callerOrAnonymous is caller for public routes: a failed role lookup
// downgrades the request to anonymous.
func (s *Server) callerOrAnonymous(c *fiber.Ctx) service.Caller {
	caller, err := s.caller(c)
	if err != nil {
		middleware.LoggerFromContext(c.UserContext()).Warn("caller lookup failed", zap.Error(err))
		return service.Caller{}
	}
	return caller
}

func unauthenticatedMessage(err error) string {
	switch {
	case errors.Is(err, middleware.ErrMissingToken):
		return "Authorization required"
	case errors.Is(err, middleware.ErrInvalidIssuer):
		return "Invalid token issuer"
	case errors.Is(err, middleware.ErrInvalidSubject):
		return "Invalid user ID in token"
	case errors.Is(err, errTokenRevoked):
		return "Token has been revoked"
	default:
		return "Invalid or expired token"
	}
}
