package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"redesocial/internal/httputil"
	"redesocial/internal/model"
	"redesocial/internal/service"
	"redesocial/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile handles GET /api/users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID, middleware.ViewerID(r.Context()))
	if err != nil {
		writeServiceError(w, "GetProfile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// GetProfileByUsername handles GET /api/users/username/{username}
func (h *UserHandler) GetProfileByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.userService.GetProfileByUsername(r.Context(), username, middleware.ViewerID(r.Context()))
	if err != nil {
		writeServiceError(w, "GetProfileByUsername", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, "UpdateProfile", err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, "UpdateProfile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// ChangeUsername handles PUT /api/users/me/username
func (h *UserHandler) ChangeUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.ChangeUsernameRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, "ChangeUsername", err)
		return
	}

	user, err := h.userService.ChangeUsername(r.Context(), userID, req.Username)
	if err != nil {
		writeServiceError(w, "ChangeUsername", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// UploadAvatar handles POST /api/users/me/avatar (multipart, field "image").
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	file, err := parseImageForm(w, r)
	if err != nil {
		writeServiceError(w, "UploadAvatar", err)
		return
	}
	if file == nil {
		httputil.WriteBadRequest(w, model.ErrImageFieldRequired.Error())
		return
	}
	defer file.Close()

	user, err := h.userService.UpdateAvatar(r.Context(), userID, file)
	if err != nil {
		writeServiceError(w, "UploadAvatar", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}
