// Package service provides user registration, login and profile lookup.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/abgdnv/cartwish/internal/user/store"
	"github.com/abgdnv/cartwish/pkg/auth"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserService defines the account operations.
type UserService interface {
	// Register creates an account with the user role and returns a token for it.
	// Returns ErrUserAlreadyExists if the email is taken.
	Register(ctx context.Context, dto RegisterDto) (string, error)

	// Login checks the credentials and returns the profile with a fresh token.
	// Returns ErrInvalidCredentials for an unknown email or a wrong password.
	Login(ctx context.Context, dto LoginDto) (*LoginResult, error)

	// Me returns the profile of the user.
	Me(ctx context.Context, id uuid.UUID) (*UserDto, error)
}

// TokenIssuer signs tokens for a principal.
type TokenIssuer interface {
	Issue(p auth.Principal) (string, error)
}

// Service implements UserService.
type Service struct {
	users  store.UserStore
	issuer TokenIssuer
	cost   int
}

// NewService creates a new instance of UserService. Passwords are hashed with bcrypt at the given cost.
func NewService(users store.UserStore, issuer TokenIssuer, cost int) *Service {
	return &Service{users: users, issuer: issuer, cost: cost}
}

type RegisterDto struct {
	Name     string `json:"name"     validate:"required,min=3,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Address  string `json:"address"  validate:"required,min=5,max=500"`
}

type LoginDto struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserDto is the public profile; it never carries the password hash.
type UserDto struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Address string    `json:"address"`
	Role    string    `json:"role"`
}

type LoginResult struct {
	User  UserDto `json:"user"`
	Token string  `json:"token"`
}

func (s *Service) Register(ctx context.Context, dto RegisterDto) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("password is longer than 72 bytes: %w", apperrors.ErrValidation)
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	u, err := s.users.Create(ctx, store.User{
		Name:         strings.TrimSpace(dto.Name),
		Email:        normalizeEmail(dto.Email),
		PasswordHash: string(hash),
		Address:      strings.TrimSpace(dto.Address),
		Role:         auth.RoleUser,
	})
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID)
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, dto LoginDto) (*LoginResult, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(dto.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		slog.WarnContext(ctx, "Login with wrong password", "user_id", u.ID)
		return nil, apperrors.ErrInvalidCredentials
	}
	token, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: *toDto(u), Token: token}, nil
}

func (s *Service) Me(ctx context.Context, id uuid.UUID) (*UserDto, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDto(u), nil
}

func (s *Service) issue(u *store.User) (string, error) {
	token, err := s.issuer.Issue(auth.Principal{UserID: u.ID, Name: u.Name, Role: u.Role})
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toDto(u *store.User) *UserDto {
	return &UserDto{ID: u.ID, Name: u.Name, Email: u.Email, Address: u.Address, Role: u.Role}
}
