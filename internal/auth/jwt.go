package auth

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vovakirdan/wirechat-channels/internal/chat"
)

// ErrInvalidToken is returned for tokens that do not identify a player.
var ErrInvalidToken = errors.New("invalid token")

// Claims identify the player behind a chat session. Subject carries the
// decimal player id and must agree with PlayerID.
type Claims struct {
	PlayerID int64  `json:"player_id"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// Player returns the id the channel registry knows the player by.
func (c *Claims) Player() chat.PlayerID {
	return chat.PlayerID(c.PlayerID)
}

func (c *Claims) validatePlayer() error {
	if c.PlayerID <= 0 || c.PlayerID > math.MaxUint32 {
		return fmt.Errorf("%w: player id %d out of range", ErrInvalidToken, c.PlayerID)
	}
	if c.Subject != strconv.FormatInt(c.PlayerID, 10) {
		return fmt.Errorf("%w: subject %q does not match player %d", ErrInvalidToken, c.Subject, c.PlayerID)
	}
	if len(c.Name) < minNameLen || len(c.Name) > maxNameLen {
		return fmt.Errorf("%w: bad player name", ErrInvalidToken)
	}
	return nil
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// GenerateToken signs a session token for the given player.
func GenerateToken(cfg *JWTConfig, playerID int64, name string) (string, error) {
	now := time.Now()
	claims := Claims{
		PlayerID: playerID,
		Name:     name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(playerID, 10),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if err := claims.validatePlayer(); err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateToken parses a session token and checks that it names a player
// the chat hub can register.
func ValidateToken(cfg *JWTConfig, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return cfg.Secret, nil
	}, opts...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := claims.validatePlayer(); err != nil {
		return nil, err
	}
	return claims, nil
}
