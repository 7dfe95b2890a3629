package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meridian-motors/meridian-backoffice/internal/auth"
	"github.com/meridian-motors/meridian-backoffice/internal/domain"
	"github.com/meridian-motors/meridian-backoffice/internal/repository"
)

// UserService handles back-office account management and authentication.
type UserService struct {
	userRepo repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenManager
	logger   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenManager,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger.With().Str("service", "user").Logger(),
	}
}

// RegisterInput contains the data needed to create an account.
type RegisterInput struct {
	Username string
	Password string
	Role     domain.Role
}

// LoginOutput carries the issued token and its subject.
type LoginOutput struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Register creates a new account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if len(input.Password) < 8 {
		return nil, domain.NewDomainError(domain.ErrValidation,
			"password must be at least 8 characters", input.Username)
	}

	user := &domain.User{
		Username:  input.Username,
		Role:      input.Role,
		CreatedAt: time.Now().UTC(),
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.userRepo.ExistsByUsername(ctx, user.Username, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if taken {
		return nil, fmt.Errorf("%w: %s", domain.ErrUsernameTaken, user.Username)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	user.PasswordHash = hash

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Msg("user registered")

	return user, nil
}

// Login verifies credentials and issues an access token. Not-found and
// wrong-password both map to ErrInvalidCredentials so usernames cannot be
// probed.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginOutput, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Str("username", user.Username).Msg("user logged in")

	return &LoginOutput{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(s.tokens.TokenTTL()),
		User:      user,
	}, nil
}

// Get retrieves a user by ID.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// List returns users with pagination.
func (s *UserService) List(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[domain.User], error) {
	return s.userRepo.List(ctx, opts)
}

// Delete removes an account.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}
