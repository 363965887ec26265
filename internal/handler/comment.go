package handler

import (
	"net/http"

	"redesocial/internal/httputil"
	"redesocial/internal/model"
	"redesocial/internal/service"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// Create handles POST /api/comments/{id} where id is the post.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req model.CreateCommentRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, "CreateComment", err)
		return
	}

	comment, err := h.commentService.Create(r.Context(), postID, userID, req)
	if err != nil {
		writeServiceError(w, "CreateComment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// List handles GET /api/comments/{id}?page=&limit=&sort= where id is the post.
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	page, err := h.commentService.List(r.Context(), postID,
		queryInt(r, "page", 1),
		queryInt(r, "limit", service.DefaultPageLimit),
		r.URL.Query().Get("sort"))
	if err != nil {
		writeServiceError(w, "ListComments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// Update handles PUT /api/comments/{id}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	commentID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req model.UpdateCommentRequest
	if err := httputil.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, "UpdateComment", err)
		return
	}

	comment, err := h.commentService.Update(r.Context(), commentID, userID, req)
	if err != nil {
		writeServiceError(w, "UpdateComment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comment)
}

// Delete handles DELETE /api/comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	commentID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.commentService.Delete(r.Context(), commentID, userID); err != nil {
		writeServiceError(w, "DeleteComment", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Comentário deletado com sucesso.")
}

// ToggleLike handles PUT /api/comments/{id}/like
func (h *CommentHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	commentID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.commentService.ToggleLike(r.Context(), commentID, userID)
	if err != nil {
		writeServiceError(w, "ToggleCommentLike", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
