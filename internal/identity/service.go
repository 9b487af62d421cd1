// Package identity manages marketplace users, token issuance and admin roles.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/ctxlog"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer mints bearer tokens for an identity.
type TokenIssuer interface {
	IssueToken(email string) (string, error)
}

// Service implements identity business logic.
type Service struct {
	repo   Repository
	issuer TokenIssuer
}

// NewService creates a new identity service.
func NewService(repo Repository, issuer TokenIssuer) *Service {
	return &Service{
		repo:   repo,
		issuer: issuer,
	}
}

// LoginInput holds the data presented to obtain a token.
type LoginInput struct {
	Email    string
	Password string
	Profile  Profile
}

// Login upserts the user profile and issues a bearer token for the email.
//
// Accounts without a bound password are logged in by email alone. The first
// login that carries a password binds it; from then on the password is required.
func (s *Service) Login(ctx context.Context, input LoginInput) (string, error) {
	email := domain.NormalizeEmail(input.Email)

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return "", fmt.Errorf("get user: %w", err)
	}

	var passwordHash string
	switch {
	case existing != nil && existing.HasPassword():
		if bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(input.Password)) != nil {
			return "", ErrInvalidCredentials
		}
	case input.Password != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
		passwordHash = string(hash)
	}

	if err := s.repo.UpsertUser(ctx, email, input.Profile, passwordHash); err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}

	token, err := s.issuer.IssueToken(email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	if existing == nil {
		ctxlog.FromContext(ctx).Info("user created", "email", email)
	}

	return token, nil
}

// GetUser returns the user with the given email.
func (s *Service) GetUser(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}

// UpdateProfile sets the supplied profile fields on an existing user.
func (s *Service) UpdateProfile(ctx context.Context, email string, profile Profile) error {
	email = domain.NormalizeEmail(email)

	if profile.IsEmpty() {
		_, err := s.repo.GetUserByEmail(ctx, email)
		return err
	}

	return s.repo.UpdateProfile(ctx, email, profile)
}

// IsAdmin reports whether the stored role of email is admin.
// Unknown users are not admins.
func (s *Service) IsAdmin(ctx context.Context, email string) (bool, error) {
	user, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Role.IsAdmin(), nil
}

// MakeAdmin promotes a user to the admin role.
func (s *Service) MakeAdmin(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if err := s.repo.SetRole(ctx, email, domain.RoleAdmin); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("user promoted to admin", "email", email)
	return nil
}

// DeleteUser removes a user.
func (s *Service) DeleteUser(ctx context.Context, email string) error {
	return s.repo.DeleteUser(ctx, domain.NormalizeEmail(email))
}
