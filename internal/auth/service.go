package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/wirechat-channels/internal/store"
)

var (
	// ErrInvalidCredentials is returned when name/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPlayerExists is returned when trying to register with an existing name.
	ErrPlayerExists = errors.New("player already exists")
	// ErrInvalidName is returned when the player name doesn't meet constraints.
	ErrInvalidName = errors.New("invalid player name")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

const (
	minNameLen = 3
	maxNameLen = 32
)

// Service provides authentication operations.
type Service struct {
	store     store.PlayerStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(playerStore store.PlayerStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     playerStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a new player with hashed password and returns a JWT token.
func (s *Service) Register(ctx context.Context, name, password string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < minNameLen || len(name) > maxNameLen {
		return "", ErrInvalidName
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return "", ErrInvalidPassword
	}

	existing, err := s.store.GetPlayerByName(ctx, name)
	if err == nil && existing != nil {
		return "", ErrPlayerExists
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("lookup player: %w", err)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	player, err := s.store.CreatePlayer(ctx, name, hashedPassword)
	if err != nil {
		return "", fmt.Errorf("create player: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, player.ID, player.Name)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, name, password string) (string, error) {
	player, err := s.store.GetPlayerByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(player.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, player.ID, player.Name)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
