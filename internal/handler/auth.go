package handler

import (
	"net/http"

	"redesocial/internal/httputil"
	"redesocial/internal/model"
	"redesocial/internal/service"
	"redesocial/internal/transport/http/middleware"
)

type AuthHandler struct {
	userService *service.UserService
}

func NewAuthHandler(userService *service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

type registerResponse struct {
	Message  string      `json:"message"`
	Username string      `json:"username"`
	User     *model.User `json:"user"`
}

// requireUser reads the caller id set by the auth middleware.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, model.ErrTokenMissing.Error())
	}
	return userID, ok
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, "Register", err)
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, "Register", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		Message:  "Usuário registrado com sucesso!",
		Username: user.Username,
		User:     user,
	})
}

// Login handles POST /api/auth/login. The email field also accepts a username.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, "Login", err)
		return
	}

	resp, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, "Login", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID, nil)
	if err != nil {
		writeServiceError(w, "Me", err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}
