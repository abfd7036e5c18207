package service

import (
	"context"
	"strings"

	"techatlas/internal/models"
	"techatlas/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
}

type UpdateProfileInput struct {
	UserID      uint
	DisplayName string
	AvatarURL   string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, role models.Role, limit, offset int) ([]models.User, error) {
	if role != "" && !role.Valid() {
		return nil, models.NewValidationError("unknown role " + string(role))
	}
	return s.userRepo.List(ctx, role, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Email returns the address of userID, used to notify submitters.
func (s *UserService) Email(ctx context.Context, userID uint) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxDisplayNameLen = 100

	if name := strings.TrimSpace(in.DisplayName); name != "" {
		if len(name) > maxDisplayNameLen {
			return nil, models.NewValidationError("Display name too long (max 100 characters)")
		}
		user.DisplayName = name
	}
	if in.AvatarURL != "" {
		user.AvatarURL = in.AvatarURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// SetRole changes the role of targetID. Admins cannot demote themselves.
func (s *UserService) SetRole(ctx context.Context, actor Caller, targetID uint, raw string) (*models.User, error) {
	role, ok := models.ParseRole(raw)
	if !ok {
		return nil, models.NewValidationError("role must be one of user, moderator, editor, admin")
	}
	if actor.Role != models.RoleAdmin {
		return nil, models.NewForbiddenError("access denied")
	}
	if actor.ID == targetID && role != models.RoleAdmin {
		return nil, models.NewValidationError("admins cannot change their own role")
	}

	if err := s.userRepo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}
