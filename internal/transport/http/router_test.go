package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redesocial/internal/handler"
	"redesocial/internal/metrics"
	"redesocial/internal/model"
	"redesocial/internal/repository"
	"redesocial/internal/service"
	authmw "redesocial/internal/transport/http/middleware"
)

// =============================================================================
// STUB REPOSITORIES
// =============================================================================
//
// Stubs embed the repository interface; methods a scenario never reaches
// stay unimplemented and would panic if called.

type stubUsers struct {
	repository.UserRepository
	byID   map[int64]*model.User
	emails map[string]bool
	nextID int64
}

func (s *stubUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, model.ErrUserNotFound
}

func (s *stubUsers) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return nil, model.ErrUserNotFound
}

func (s *stubUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.emails[email], nil
}

func (s *stubUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return false, nil
}

func (s *stubUsers) Create(ctx context.Context, user *model.User) error {
	s.nextID++
	user.ID = s.nextID
	s.byID[user.ID] = user
	s.emails[user.Email] = true
	return nil
}

type stubFollows struct {
	repository.FollowRepository
	edges map[[2]int64]bool
}

func (s *stubFollows) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	key := [2]int64{followerID, followeeID}
	if s.edges[key] {
		return false, nil
	}
	s.edges[key] = true
	return true, nil
}

type stubPosts struct {
	repository.PostRepository
	byID map[int64]*model.Post
}

func (s *stubPosts) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	if p, ok := s.byID[postID]; ok {
		return p, nil
	}
	return nil, model.ErrPostNotFound
}

type stubNotifications struct {
	repository.NotificationRepository
}

func (s *stubNotifications) MarkRead(ctx context.Context, recipientID, notificationID int64) (bool, error) {
	return false, nil
}

type discardNotifier struct{}

func (discardNotifier) Notify(ctx context.Context, in model.NotificationInput) {}

// =============================================================================
// TEST ENVIRONMENT
// =============================================================================

type testEnv struct {
	router  chi.Router
	auth    *service.AuthService
	mock    sqlmock.Sqlmock
	users   *stubUsers
	follows *stubFollows
	posts   *stubPosts
}

// newTestEnv builds the full router over stubs. The auth limiter is loose
// enough that scenarios never trip it; options override the config.
func newTestEnv(t *testing.T, opts ...func(*RouterConfig)) *testEnv {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	db := sqlx.NewDb(sqlDB, "sqlmock")

	env := &testEnv{
		auth: service.NewAuthService("test-secret", time.Hour),
		mock: mock,
		users: &stubUsers{
			byID: map[int64]*model.User{
				1: {ID: 1, Nome: "Alice", Sobrenome: "Souza", Username: "alice"},
				2: {ID: 2, Nome: "Bruno", Sobrenome: "Lima", Username: "bruno"},
			},
			emails: map[string]bool{"ana@x.com": true},
			nextID: 10,
		},
		follows: &stubFollows{edges: map[[2]int64]bool{}},
		posts: &stubPosts{byID: map[int64]*model.Post{
			5: {ID: 5, UserID: 2, Content: "post do bruno"},
		}},
	}

	notifier := discardNotifier{}
	media := service.NewMediaService(nil)
	notifications := service.NewNotificationService(&stubNotifications{}, nil, nil, nil)

	userService := service.NewUserService(env.users, env.follows, env.auth, media)
	socialService := service.NewSocialService(db, env.users, env.follows, nil, nil, notifier)
	friendService := service.NewFriendService(db, env.users, nil, notifier)
	postService := service.NewPostService(db, env.posts, env.users, media, nil, notifier)
	feedService := service.NewFeedService(nil, env.posts)
	commentService := service.NewCommentService(db, nil, env.posts, env.users, notifier)

	cfg := RouterConfig{
		AuthHandler:         handler.NewAuthHandler(userService),
		UserHandler:         handler.NewUserHandler(userService),
		SocialHandler:       handler.NewSocialHandler(socialService, friendService),
		PostHandler:         handler.NewPostHandler(postService, feedService, media),
		CommentHandler:      handler.NewCommentHandler(commentService),
		NotificationHandler: handler.NewNotificationHandler(notifications, nil),
		Verifier:            env.auth,
		AuthLimiter:         authmw.NewRateLimiter(1000, 1000),
		Metrics:             metrics.New(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	env.router = NewRouter(cfg)
	return env
}

func withAuthLimiter(rps float64, burst int) func(*RouterConfig) {
	return func(cfg *RouterConfig) {
		cfg.AuthLimiter = authmw.NewRateLimiter(rps, burst)
	}
}

func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := e.auth.IssueToken(e.users.byID[userID])
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestRouter_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "redesocial_http_requests_total")
}

func TestRouter_IdentityGate(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantMsg    string
	}{
		{name: "missing token", wantStatus: http.StatusUnauthorized, wantMsg: "Token não fornecido."},
		{name: "garbage token", token: "garbage", wantStatus: http.StatusForbidden, wantMsg: "Token inválido."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/posts/feed", "", tt.token)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, messageOf(t, rec))
		})
	}

	t.Run("anonymous post", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/posts", `{"content":"hello"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRouter_Register(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing field", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/auth/register", `{"nome":"Carla","email":"carla@x.com"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Preencha todos os campos obrigatórios!", messageOf(t, rec))
	})

	t.Run("duplicate email ignores case", func(t *testing.T) {
		body := `{"nome":"Ana","sobrenome":"Reis","username":"anareis","email":"ANA@X.COM","cep":"01000-000","password":"segredo1"}`
		rec := env.do(http.MethodPost, "/api/auth/register", body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email já cadastrado.", messageOf(t, rec))
	})

	t.Run("created", func(t *testing.T) {
		body := `{"nome":"Carla","sobrenome":"Dias","username":"carla","email":"Carla@X.com","cep":"01000-000","password":"segredo1"}`
		rec := env.do(http.MethodPost, "/api/auth/register", body, "")
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			Message  string                 `json:"message"`
			Username string                 `json:"username"`
			User     map[string]interface{} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Usuário registrado com sucesso!", resp.Message)
		assert.Equal(t, "carla", resp.Username)
		assert.Equal(t, "carla@x.com", resp.User["email"])
		assert.NotContains(t, rec.Body.String(), "segredo1")
		assert.NotContains(t, resp.User, "password_hashed")
	})
}

func TestRouter_LoginIsRateLimited(t *testing.T) {
	env := newTestEnv(t, withAuthLimiter(1, 2))
	body := `{"email":"ninguem","password":"x"}`

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/api/auth/login", body, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Usuário não encontrado.", messageOf(t, rec))
	}

	rec := env.do(http.MethodPost, "/api/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, authmw.MsgTooManyRequests, messageOf(t, rec))
}

func TestRouter_LoginLimitIgnoresForgedForwardedFor(t *testing.T) {
	env := newTestEnv(t, withAuthLimiter(1, 2))
	body := `{"email":"ninguem","password":"x"}`

	allowed := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}

func TestRouter_TrustedProxySetsClientAddress(t *testing.T) {
	trusted, err := authmw.ParseTrustedProxies([]string{"192.0.2.1"})
	require.NoError(t, err)
	env := newTestEnv(t, withAuthLimiter(1, 1), func(cfg *RouterConfig) {
		cfg.TrustedProxies = trusted
	})
	body := `{"email":"ninguem","password":"x"}`

	login := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		// httptest requests come from 192.0.2.1
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNotFound, login("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, login("198.51.100.1"))
	assert.Equal(t, http.StatusNotFound, login("198.51.100.2"), "each forwarded client has its own bucket")
}

func TestRouter_Follow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, 1)

	t.Run("self", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/users/1/follow", "", alice)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Você não pode se seguir.", messageOf(t, rec))
	})

	t.Run("unknown target", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/users/404/follow", "", alice)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Usuário não encontrado.", messageOf(t, rec))
	})

	t.Run("follow then duplicate", func(t *testing.T) {
		env.mock.ExpectBegin()
		env.mock.ExpectCommit()
		rec := env.do(http.MethodPut, "/api/users/2/follow", "", alice)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Usuário seguido com sucesso.", messageOf(t, rec))

		env.mock.ExpectBegin()
		env.mock.ExpectRollback()
		rec = env.do(http.MethodPut, "/api/users/2/follow", "", alice)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Você já segue este usuário.", messageOf(t, rec))

		assert.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/users/abc/follow", "", alice)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ID inválido.", messageOf(t, rec))
	})
}

func TestRouter_PostOwnership(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodDelete, "/api/posts/5", "", env.token(t, 1))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Apenas o autor pode deletar este post.", messageOf(t, rec))
	assert.Contains(t, env.posts.byID, int64(5))
}

func TestRouter_CommentsOfMissingPost(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/comments/99", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Post não encontrado.", messageOf(t, rec))
}

func TestRouter_PostImageWithoutStorage(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(
		"--b\r\nContent-Disposition: form-data; name=\"content\"\r\n\r\noi\r\n"+
			"--b\r\nContent-Disposition: form-data; name=\"image\"; filename=\"a.png\"\r\nContent-Type: image/png\r\n\r\nxx\r\n"+
			"--b--\r\n"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	req.Header.Set("Authorization", "Bearer "+env.token(t, 1))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Upload de imagens não está configurado.", messageOf(t, rec))
}

func TestRouter_Notifications(t *testing.T) {
	env := newTestEnv(t)
	alice := env.token(t, 1)

	t.Run("someone else's notification", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/api/notifications/7/read", "", alice)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Notificação não encontrada.", messageOf(t, rec))
	})

	t.Run("websocket needs a token", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/notifications/ws", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("websocket without realtime backend", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/notifications/ws?access_token="+alice, "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
