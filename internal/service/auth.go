package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"redesocial/internal/model"
)

// AuthService issues and verifies the bearer tokens that identify a caller.
// Tokens are stateless; logout is the client discarding its token.
type AuthService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTLSeconds is reported to clients as expires_in.
func (s *AuthService) TTLSeconds() int {
	return int(s.ttl / time.Second)
}

func (s *AuthService) IssueToken(user *model.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken returns the caller id carried by raw. Any failure (bad
// signature, wrong algorithm, expired, missing claim) is ErrTokenInvalid.
func (s *AuthService) ParseToken(raw string) (int64, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, fmt.Errorf("%w: expired", model.ErrTokenInvalid)
		}
		return 0, model.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, model.ErrTokenInvalid
	}

	// JSON numbers decode as float64.
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return 0, model.ErrTokenInvalid
	}
	return int64(userID), nil
}
