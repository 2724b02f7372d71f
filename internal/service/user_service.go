package service

import (
	"context"
	"errors"

	"agora/internal/models"
	"agora/internal/repository"
	"agora/internal/validation"
)

type UserService struct {
	userRepo repository.UserRepository
}

type UpdateProfileInput struct {
	UserID   uint
	Nickname string
	Email    string
	Bio      string
	Avatar   string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, asAppError(err, "User", id)
	}
	return user, nil
}

func (s *UserService) GetUserWithPosts(ctx context.Context, id uint, limit int) (*models.User, error) {
	user, err := s.userRepo.GetByIDWithPosts(ctx, id, limit)
	if err != nil {
		return nil, asAppError(err, "User", id)
	}
	return user, nil
}

// GetProfile returns the user's profile, or an empty one when nothing has
// been saved yet. A user without a profile row is not an error.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	profile, err := s.userRepo.GetProfile(ctx, userID)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return &models.UserProfile{UserID: userID}, nil
		}
		return nil, asAppError(err, "Profile", userID)
	}
	return profile, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.UserProfile, error) {
	const maxNicknameLen = 50
	const maxBioLen = 500
	const maxAvatarLen = 500

	if len(in.Nickname) > maxNicknameLen {
		return nil, models.NewValidationError("Nickname too long (max 50 characters)")
	}
	if len(in.Bio) > maxBioLen {
		return nil, models.NewValidationError("Bio too long (max 500 characters)")
	}
	if len(in.Avatar) > maxAvatarLen {
		return nil, models.NewValidationError("Avatar URL too long (max 500 characters)")
	}
	if in.Email != "" {
		if err := validation.ValidateEmail(in.Email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	// Existence check so an unknown user gets NOT_FOUND rather than an FK error.
	if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
		return nil, asAppError(err, "User", in.UserID)
	}

	profile := &models.UserProfile{
		UserID:   in.UserID,
		Nickname: in.Nickname,
		Email:    in.Email,
		Bio:      in.Bio,
		Avatar:   in.Avatar,
	}
	if err := s.userRepo.UpsertProfile(ctx, profile); err != nil {
		return nil, asAppError(err, "Profile", in.UserID)
	}

	return s.userRepo.GetProfile(ctx, in.UserID)
}
