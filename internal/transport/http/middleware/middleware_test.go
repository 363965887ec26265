package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]int64

func (s stubVerifier) ParseToken(raw string) (int64, error) {
	if id, ok := s[raw]; ok {
		return id, nil
	}
	return 0, errors.New("bad token")
}

func echoUserID(w http.ResponseWriter, r *http.Request) {
	id, ok := GetUserIDFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int64{"user_id": id})
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Message
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(stubVerifier{"good": 7})(http.HandlerFunc(echoUserID))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{name: "no header", wantStatus: http.StatusUnauthorized, wantMsg: "Token não fornecido."},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantMsg: "Token não fornecido."},
		{name: "empty bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantMsg: "Token não fornecido."},
		{name: "invalid token", header: "Bearer nope", wantStatus: http.StatusForbidden, wantMsg: "Token inválido."},
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decodeMessage(t, rec))
			} else {
				assert.JSONEq(t, `{"user_id":7}`, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	h := OptionalAuthMiddleware(stubVerifier{"good": 7})(http.HandlerFunc(echoUserID))

	anon := httptest.NewRecorder()
	h.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, anon.Code)

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set("Authorization", "Bearer nope")
	badRec := httptest.NewRecorder()
	h.ServeHTTP(badRec, bad)
	assert.Equal(t, http.StatusNoContent, badRec.Code)

	good := httptest.NewRequest(http.MethodGet, "/", nil)
	good.Header.Set("Authorization", "Bearer good")
	goodRec := httptest.NewRecorder()
	h.ServeHTTP(goodRec, good)
	assert.JSONEq(t, `{"user_id":7}`, goodRec.Body.String())
}

func TestQueryTokenBridge(t *testing.T) {
	h := QueryTokenBridge(AuthMiddleware(stubVerifier{"good": 9})(http.HandlerFunc(echoUserID)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?access_token=good", nil))
	assert.JSONEq(t, `{"user_id":9}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001").Code)

	limited := call("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, MsgTooManyRequests, decodeMessage(t, limited))

	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000").Code, "other clients have their own bucket")
}

func TestRateLimiter_IgnoresForwardedHeadersFromClients(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	h := TrustedRealIP(nil)(rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed, "rotating forwarding headers must not reset the bucket")
}

func TestTrustedRealIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "127.0.0.1"})
	require.NoError(t, err)

	var seen string
	h := TrustedRealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = clientIP(r)
	}))

	tests := []struct {
		name   string
		remote string
		want   string
	}{
		{"trusted cidr", "10.1.2.3:4000", "198.51.100.9"},
		{"trusted single ip", "127.0.0.1:4000", "198.51.100.9"},
		{"untrusted peer", "203.0.113.7:4000", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set("X-Forwarded-For", "198.51.100.9")
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, seen)
		})
	}

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
}

func TestRequestLogger_RedactsAccessToken(t *testing.T) {
	var buf bytes.Buffer
	var served string
	h := RequestLogger(log.New(&buf, "", 0))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = r.URL.Query().Get("access_token")
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/notifications/ws?access_token=secret.jwt.value&x=1", nil))

	assert.Equal(t, "secret.jwt.value", served, "handlers still see the token")
	assert.NotContains(t, buf.String(), "secret.jwt.value")
	assert.Contains(t, buf.String(), "access_token="+redacted)
	assert.Contains(t, buf.String(), "/api/notifications/ws")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("a")
	now = now.Add(limiterIdleTTL + time.Second)
	rl.getLimiter("b")
	rl.Cleanup()

	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
}
