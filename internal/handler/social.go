package handler

import (
	"context"
	"net/http"

	"redesocial/internal/httputil"
	"redesocial/internal/model"
	"redesocial/internal/service"
)

type SocialHandler struct {
	socialService *service.SocialService
	friendService *service.FriendService
}

func NewSocialHandler(socialService *service.SocialService, friendService *service.FriendService) *SocialHandler {
	return &SocialHandler{
		socialService: socialService,
		friendService: friendService,
	}
}

// pairAction runs fn with the caller and the {id} target and answers with
// message on success.
func (h *SocialHandler) pairAction(tag, message string, fn func(ctx context.Context, callerID, targetID int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callerID, ok := requireUser(w, r)
		if !ok {
			return
		}
		targetID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		if err := fn(r.Context(), callerID, targetID); err != nil {
			writeServiceError(w, tag, err)
			return
		}
		httputil.WriteMessage(w, http.StatusOK, message)
	}
}

// Follow handles PUT /api/users/{id}/follow
func (h *SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.pairAction("Follow", "Usuário seguido com sucesso.", h.socialService.Follow)(w, r)
}

// Unfollow handles PUT /api/users/{id}/unfollow
func (h *SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.pairAction("Unfollow", "Você deixou de seguir este usuário.", h.socialService.Unfollow)(w, r)
}

// Favorite handles PUT /api/users/{id}/favorite
func (h *SocialHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	h.pairAction("Favorite", "Usuário adicionado aos favoritos.", h.socialService.AddFavorite)(w, r)
}

// Unfavorite handles PUT /api/users/{id}/unfavorite
func (h *SocialHandler) Unfavorite(w http.ResponseWriter, r *http.Request) {
	h.pairAction("Unfavorite", "Usuário removido dos favoritos.", h.socialService.RemoveFavorite)(w, r)
}

// SendFriendRequest handles POST /api/users/{id}/friend-request
func (h *SocialHandler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUser(w, r)
	if !ok {
		return
	}
	targetID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.friendService.SendRequest(r.Context(), callerID, targetID); err != nil {
		writeServiceError(w, "SendFriendRequest", err)
		return
	}
	httputil.WriteMessage(w, http.StatusCreated, "Solicitação de amizade enviada.")
}

// CancelFriendRequest handles DELETE /api/users/{id}/friend-request
func (h *SocialHandler) CancelFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.pairAction("CancelFriendRequest", "Solicitação de amizade cancelada.", h.friendService.CancelRequest)(w, r)
}

// AcceptFriendRequest handles PUT /api/users/{id}/friend-request/accept
func (h *SocialHandler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.pairAction("AcceptFriendRequest", "Solicitação de amizade aceita.", h.friendService.AcceptRequest)(w, r)
}

// RejectFriendRequest handles PUT /api/users/{id}/friend-request/reject
func (h *SocialHandler) RejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.pairAction("RejectFriendRequest", "Solicitação de amizade recusada.", h.friendService.RejectRequest)(w, r)
}

// RemoveFriend handles DELETE /api/users/{id}/friend
func (h *SocialHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	h.pairAction("RemoveFriend", "Amizade desfeita.", h.friendService.RemoveFriend)(w, r)
}

type cursorLister func(ctx context.Context, userID int64, cursor *string, limit int) (*model.UserListResponse, error)

func (h *SocialHandler) listEdges(tag string, list cursorLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := parseIDParam(w, r, "id")
		if !ok {
			return
		}

		resp, err := list(r.Context(), userID, queryCursor(r), queryInt(r, "limit", service.DefaultListLimit))
		if err != nil {
			writeServiceError(w, tag, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// ListFollowers handles GET /api/users/{id}/followers?cursor=&limit=
func (h *SocialHandler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	h.listEdges("ListFollowers", h.socialService.ListFollowers)(w, r)
}

// ListFollowing handles GET /api/users/{id}/following?cursor=&limit=
func (h *SocialHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	h.listEdges("ListFollowing", h.socialService.ListFollowing)(w, r)
}

// ListFriends handles GET /api/users/{id}/friends?cursor=&limit=
func (h *SocialHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	h.listEdges("ListFriends", h.friendService.ListFriends)(w, r)
}

// ListFavorites handles GET /api/users/me/favorites
func (h *SocialHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	favorites, err := h.socialService.ListFavorites(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "ListFavorites", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.UserListResponse{Users: favorites})
}

// IncomingRequests handles GET /api/users/me/friend-requests
func (h *SocialHandler) IncomingRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	requests, err := h.friendService.IncomingRequests(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "IncomingRequests", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requests)
}
