package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/asphalt-aid/backend/internal/dto"
	"github.com/asphalt-aid/backend/internal/models"
	"github.com/asphalt-aid/backend/internal/repository"
	"github.com/asphalt-aid/backend/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	users   repository.UserRepository
	tokens  repository.TokenRepository
	reports repository.ReportRepository
	store   storage.Storage
}

func NewUserService(users repository.UserRepository, tokens repository.TokenRepository, reports repository.ReportRepository, store storage.Storage) *UserService {
	return &UserService{users: users, tokens: tokens, reports: reports, store: store}
}

func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// UpdateProfile changes email and names. A full update (PUT) needs all three fields.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, req *dto.UpdateProfileRequest, partial bool) (*models.User, error) {
	if !partial {
		missing := map[string][]string{}
		for name, v := range map[string]*string{"email": req.Email, "first_name": req.FirstName, "last_name": req.LastName} {
			if v == nil {
				missing[name] = []string{"This field is required."}
			}
		}
		if len(missing) > 0 {
			return nil, &ValidationError{Fields: missing}
		}
	}
	if errs := dto.Validate(req); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}

	fields := map[string]interface{}{}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			return nil, newValidationError("email", "This field may not be blank.")
		}
		taken, err := s.users.EmailExists(ctx, email, id)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
		fields["email"] = email
	}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}

	if len(fields) > 0 {
		if err := s.users.Update(ctx, id, fields); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
	}
	return s.Profile(ctx, id)
}

// ChangePassword also signs the user out everywhere by revoking every refresh token.
func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, req *dto.ChangePasswordRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return ErrMissingFields
	}
	user, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if err := ValidatePassword(req.NewPassword, UserAttributes{
		Username: user.Username, Email: user.Email, FirstName: user.FirstName, LastName: user.LastName,
	}); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.Update(ctx, id, map[string]interface{}{"password": string(hash)}); err != nil {
		return err
	}
	return s.tokens.RevokeAllForUser(ctx, id)
}

// DeleteAccount removes the user, their reports and tokens, then their stored photos.
func (s *UserService) DeleteAccount(ctx context.Context, id uuid.UUID, password string) error {
	if password == "" {
		return ErrMissingFields
	}
	user, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	images, err := s.reports.ImagesByOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("list report images: %w", err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	for _, key := range images {
		if err := s.store.Delete(ctx, key); err != nil {
			slog.Warn("failed to delete report image", "user_id", id.String(), "key", key, "error", err)
		}
	}
	slog.Info("account deleted", "user_id", id.String(), "images", len(images))
	return nil
}
