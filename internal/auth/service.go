// Snapbooth - Photobooth Session and Compositing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snapbooth

// Package auth authenticates admin-area users.
//
// Accounts live in the database with bcrypt password hashes. Login issues
// an HS256 JWT carried in an HTTP-only cookie or a bearer header; logout
// denylists the token id until the token would have expired.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/snapbooth/internal/database"
	"github.com/tomtom215/snapbooth/internal/logging"
	"github.com/tomtom215/snapbooth/internal/models"
	"github.com/tomtom215/snapbooth/internal/validation"
)

// Errors returned by Service.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

// UserStore persists accounts.
type UserStore interface {
	InsertUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)
}

// Registration is the input to Register.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=admin operator"`
}

// LoginResult carries an issued token.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Service implements Register, Login, Logout and Me.
type Service struct {
	users   UserStore
	jwt     *JWTManager
	revoked RevocationStore
	cost    int
	now     func() time.Time
}

// NewService creates the auth service.
func NewService(users UserStore, jwt *JWTManager, revoked RevocationStore) *Service {
	return &Service{
		users:   users,
		jwt:     jwt,
		revoked: revoked,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
}

// Register creates an account. Role defaults to operator.
func (s *Service) Register(ctx context.Context, in Registration) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if verr := validation.ValidateStruct(&in); verr != nil {
		return nil, verr
	}
	if in.Role == "" {
		in.Role = models.RoleOperator
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         in.Role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.InsertUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("username", logging.SanitizeUsername(user.Username)).
		Str("role", user.Role).
		Msg("User registered")
	return user, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		// Response time must not reveal whether the username exists.
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password)) //nolint:errcheck // timing only
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.jwt.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Logout revokes the token described by claims for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrUnauthenticated
	}
	ttl := claims.Remaining(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Me returns the account behind claims.
func (s *Service) Me(ctx context.Context, claims *Claims) (*models.User, error) {
	if claims == nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// Verify validates a token and checks it has not been revoked.
func (s *Service) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Bootstrap creates the first admin when no accounts exist. It is a no-op
// when users already exist or no credentials are configured.
func (s *Service) Bootstrap(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Register(ctx, Registration{Username: username, Password: password, Role: models.RoleAdmin}); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil
		}
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	logging.Ctx(ctx).Info().Str("username", logging.SanitizeUsername(username)).Msg("Bootstrapped admin account")
	return nil
}

// dummyHash returns a bcrypt hash compared against when the username does
// not exist.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil
	}
	return hash
})
