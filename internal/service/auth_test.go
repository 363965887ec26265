package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redesocial/internal/model"
)

func TestAuthService_IssueAndParse(t *testing.T) {
	svc := NewAuthService("segredo", 24*time.Hour)

	token, err := svc.IssueToken(&model.User{ID: 42, Username: "ana"})
	require.NoError(t, err)

	id, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, 86400, svc.TTLSeconds())
}

func TestAuthService_ParseToken_Rejections(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewAuthService("segredo", time.Hour)
	svc.now = func() time.Time { return issued }
	valid, err := svc.IssueToken(&model.User{ID: 1})
	require.NoError(t, err)

	other := NewAuthService("outro", time.Hour)
	other.now = svc.now

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": 1,
		"exp":     issued.Add(time.Hour).Unix(),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": issued.Add(time.Hour).Unix(),
	}).SignedString([]byte("segredo"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		svc   *AuthService
		token string
		at    time.Time
	}{
		{name: "garbage", svc: svc, token: "not-a-jwt", at: issued},
		{name: "expired", svc: svc, token: valid, at: issued.Add(2 * time.Hour)},
		{name: "wrong secret", svc: other, token: valid, at: issued},
		{name: "alg none", svc: svc, token: unsigned, at: issued},
		{name: "missing user id", svc: svc, token: noUser, at: issued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			tt.svc.now = func() time.Time { return at }
			_, err := tt.svc.ParseToken(tt.token)
			assert.ErrorIs(t, err, model.ErrTokenInvalid)
		})
	}
}
