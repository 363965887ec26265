package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"redesocial/internal/httputil"
	"redesocial/internal/model"
)

const msgInternalError = "Erro interno do servidor."

var notFoundErrors = []error{
	model.ErrUserNotFound,
	model.ErrPostNotFound,
	model.ErrCommentNotFound,
	model.ErrParentCommentNotFound,
	model.ErrNotificationNotFound,
	model.ErrFriendRequestNotFound,
}

var forbiddenErrors = []error{
	model.ErrNotPostOwner,
	model.ErrNotCommentEditor,
	model.ErrNotCommentDeleter,
}

var conflictErrors = []error{
	model.ErrEmailExists,
	model.ErrUsernameExists,
	model.ErrAlreadyFollowing,
	model.ErrAlreadyFriends,
	model.ErrFriendRequestExists,
	model.ErrFriendRequestIncoming,
}

var badRequestErrors = []error{
	model.ErrWrongPassword,
	model.ErrMissingRequiredFields,
	model.ErrUsernameChangeTooSoon,
	model.ErrUsernameUnchanged,
	model.ErrCannotFollowSelf,
	model.ErrCannotUnfollowSelf,
	model.ErrNotFollowing,
	model.ErrCannotFavoriteSelf,
	model.ErrCannotFriendSelf,
	model.ErrInvalidCursor,
	model.ErrPostContentRequired,
	model.ErrPostContentTooLong,
	model.ErrContentRequired,
	model.ErrContentTooLong,
	model.ErrInvalidCommentSort,
	model.ErrFileTooLarge,
	model.ErrInvalidImageType,
	model.ErrUploadsDisabled,
	model.ErrImageFieldRequired,
}

func matchAny(err error, targets []error) (error, bool) {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target, true
		}
	}
	return nil, false
}

// writeServiceError maps a service error to its response. Domain errors
// carry the user-facing message; anything else is logged and hidden.
func writeServiceError(w http.ResponseWriter, tag string, err error) {
	var verr *httputil.ValidationError
	if errors.As(err, &verr) {
		httputil.WriteValidationError(w, verr.Message)
		return
	}
	if target, ok := matchAny(err, notFoundErrors); ok {
		httputil.WriteNotFound(w, target.Error())
		return
	}
	if target, ok := matchAny(err, forbiddenErrors); ok {
		httputil.WriteForbidden(w, target.Error())
		return
	}
	if target, ok := matchAny(err, conflictErrors); ok {
		httputil.WriteConflict(w, target.Error())
		return
	}
	if target, ok := matchAny(err, badRequestErrors); ok {
		httputil.WriteBadRequest(w, target.Error())
		return
	}

	log.Printf("[ERROR] %s: %v", tag, err)
	httputil.WriteInternalError(w, msgInternalError)
}

// parseIDParam reads a positive int64 path parameter, writing a 400 when it
// is malformed.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteBadRequest(w, "ID inválido.")
		return 0, false
	}
	return id, true
}

// queryInt returns the integer query parameter or def when absent or bad.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func queryCursor(r *http.Request) *string {
	if c := r.URL.Query().Get("cursor"); c != "" {
		return &c
	}
	return nil
}
