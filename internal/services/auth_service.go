package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"
	"venue_pos_backend/pkg/utils"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles staff accounts and access tokens.
type AuthService interface {
	Register(ctx context.Context, req models.RegistrationPayload) (*models.User, error)
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error)
	Profile(ctx context.Context, userID int64) (*models.User, error)
	// EnsureAdmin creates the first admin account when no users exist yet.
	EnsureAdmin(ctx context.Context, username, password string) error
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

func (s *authService) Register(ctx context.Context, req models.RegistrationPayload) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, validationf("username is required")
	}
	if len(req.Password) < 6 {
		return nil, validationf("password must be at least 6 characters")
	}
	if !req.Role.IsValid() {
		return nil, validationf("unknown role '%s'", req.Role)
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, FullName: utils.TrimmedOrNil(req.FullName), Role: req.Role}
	if _, err := s.userRepo.CreateUser(ctx, user, string(hashedPasswordBytes)); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: '%s'", ErrUsernameExists, username)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Str("role", string(user.Role)).Msg("User registered")
	return user, nil
}

func (s *authService) Login(ctx context.Context, creds models.Credentials) (*models.LoginResponse, error) {
	user, storedHashedPassword, err := s.userRepo.FindUserByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login attempt failed: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHashedPassword), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := utils.GenerateAccessToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &models.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(utils.AccessTokenTTL.Seconds()),
		User:        user,
	}, nil
}

func (s *authService) Profile(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", userID)
	}
	return user, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, username, password string) error {
	count, err := s.userRepo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if username == "" || password == "" {
		log.Warn().Msg("No users exist and no admin credentials are configured")
		return nil
	}
	_, err = s.Register(ctx, models.RegistrationPayload{Username: username, Password: password, Role: models.RoleAdmin})
	if err != nil {
		return fmt.Errorf("bootstrapping admin: %w", err)
	}
	log.Info().Str("username", username).Msg("Admin account bootstrapped")
	return nil
}
