package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/Dosada05/esports-arena/models"
	"github.com/Dosada05/esports-arena/repositories"
	"github.com/Dosada05/esports-arena/utils"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{6,20}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authService struct {
	store  repositories.Store
	admins []string
	logger *slog.Logger
}

// NewAuthService creates the account service. Users registering with one of adminUsernames get the admin role.
func NewAuthService(store repositories.Store, adminUsernames []string, logger *slog.Logger) AuthService {
	return &authService{store: store, admins: adminUsernames, logger: logger}
}

func (in *RegisterInput) validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	switch {
	case in.Username == "":
		return MissingFieldError("username")
	case in.Password == "":
		return MissingFieldError("password")
	case in.Email == "":
		return MissingFieldError("email")
	case !usernamePattern.MatchString(in.Username):
		return ValidationError("username", `username must contain only letters, numbers or symbols "-", "_" with min 3 and max 20 symbols`)
	case !passwordPattern.MatchString(in.Password):
		return ValidationError("password", `password must contain only letters, numbers or symbols "-", "_" with min 6 and max 20 symbols`)
	case !emailPattern.MatchString(in.Email):
		return ValidationError("email", "email address is invalid")
	}
	return nil
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           utils.NewID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         models.RolePlayer,
	}
	if slices.Contains(s.admins, user.Username) {
		user.Role = models.RoleAdmin
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, handleRepositoryError(err)
	}

	s.logger.Info("user registered", slog.String("username", user.Username), slog.String("role", string(user.Role)))
	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	if strings.TrimSpace(input.Username) == "" {
		return nil, MissingFieldError("username")
	}
	if input.Password == "" {
		return nil, MissingFieldError("password")
	}

	user, err := s.store.Users().GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, handleRepositoryError(err)
	}
	if !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	user.PasswordHash = ""
	return user, nil
}
