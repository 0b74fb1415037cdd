package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/models"
	"taskboard/internal/storage/sqlite"
)

// UserStore is the persistence surface needed by AuthService.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (models.User, error)
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
}

// AuthService registers users and verifies their credentials.
// Establishing the session itself is left to the HTTP layer.
type AuthService struct {
	users  UserStore
	logger *slog.Logger
	cost   int
}

// NewAuthService builds an AuthService hashing with bcrypt.DefaultCost.
func NewAuthService(users UserStore, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, logger: logger, cost: bcrypt.DefaultCost}
}

// Register stores a new user with a salted hash of password.
// Empty usernames and passwords are accepted; presence is checked by the caller.
func (s *AuthService) Register(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword(prehash(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.users.CreateUser(ctx, username, string(hash)); err != nil {
		if errors.Is(err, sqlite.ErrDuplicate) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("register user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("username", username))
	return nil
}

// Login returns the canonical username when the credentials match.
// Unknown users and bad passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindUserByUsername(ctx, username)
	if errors.Is(err, sqlite.ErrNotFound) {
		s.logger.WarnContext(ctx, "login failed", slog.String("username", username), slog.String("reason", "unknown user"))
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), prehash(password)); err != nil {
		s.logger.WarnContext(ctx, "login failed", slog.String("username", username), slog.String("reason", "password mismatch"))
		return "", ErrInvalidCredentials
	}
	return user.Username, nil
}

// prehash folds a password of any length into 44 bytes, below bcrypt's 72 byte limit.
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
