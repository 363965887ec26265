package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"redesocial/internal/httputil"
	"redesocial/internal/model"
	"redesocial/internal/service"
	"redesocial/internal/transport/http/middleware"
)

type PostHandler struct {
	postService  *service.PostService
	feedService  *service.FeedService
	mediaService *service.MediaService
}

func NewPostHandler(postService *service.PostService, feedService *service.FeedService, mediaService *service.MediaService) *PostHandler {
	return &PostHandler{
		postService:  postService,
		feedService:  feedService,
		mediaService: mediaService,
	}
}

// Create handles POST /api/posts
// Accepts JSON {content, image} or a multipart form with a content field and
// an optional image file.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreatePostRequest
	var uploaded *model.UploadResult

	if isMultipart(r) {
		file, err := parseImageForm(w, r)
		if err != nil {
			writeServiceError(w, "CreatePost", err)
			return
		}
		req.Content = r.FormValue("content")
		if file != nil {
			defer file.Close()
			uploaded, err = h.mediaService.UploadPostImage(r.Context(), file)
			if err != nil {
				writeServiceError(w, "CreatePost", err)
				return
			}
			req.ImageURL = &uploaded.URL
			req.ImageKey = &uploaded.Key
		}
	} else if err := httputil.DecodeAndValidate(r, &req); err != nil {
		writeServiceError(w, "CreatePost", err)
		return
	}

	post, err := h.postService.Create(r.Context(), userID, req)
	if err != nil {
		if uploaded != nil {
			h.mediaService.Delete(r.Context(), uploaded.Key)
		}
		writeServiceError(w, "CreatePost", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// Feed handles GET /api/posts/feed?cursor=&limit=
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	feed, err := h.feedService.GetFeed(r.Context(), userID, queryCursor(r), queryInt(r, "limit", service.FeedDefaultLimit))
	if err != nil {
		writeServiceError(w, "Feed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, feed)
}

// GetByID handles GET /api/posts/{id}
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	post, err := h.postService.GetByID(r.Context(), postID, middleware.ViewerID(r.Context()))
	if err != nil {
		writeServiceError(w, "GetPost", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

// ListByUser handles GET /api/posts/user/{userId}?page=&limit=
func (h *PostHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "userId")
	if !ok {
		return
	}

	page, err := h.postService.ListByUser(r.Context(), userID, middleware.ViewerID(r.Context()),
		queryInt(r, "page", 1), queryInt(r, "limit", service.DefaultPageLimit))
	if err != nil {
		writeServiceError(w, "ListPostsByUser", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// ListByUsername handles GET /api/posts/username/{username}?page=&limit=
func (h *PostHandler) ListByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	page, err := h.postService.ListByUsername(r.Context(), username, middleware.ViewerID(r.Context()),
		queryInt(r, "page", 1), queryInt(r, "limit", service.DefaultPageLimit))
	if err != nil {
		writeServiceError(w, "ListPostsByUsername", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// ToggleLike handles POST /api/posts/{id}/like
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.postService.ToggleLike(r.Context(), postID, userID)
	if err != nil {
		writeServiceError(w, "TogglePostLike", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /api/posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	postID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.postService.Delete(r.Context(), postID, userID); err != nil {
		writeServiceError(w, "DeletePost", err)
		return
	}
	httputil.WriteMessage(w, http.StatusOK, "Post deletado com sucesso.")
}
