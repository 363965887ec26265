package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redesocial/internal/httputil"
	"redesocial/internal/model"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        &httputil.ValidationError{Message: httputil.MsgRequiredFields},
			wantStatus: http.StatusBadRequest,
			wantCode:   httputil.ErrCodeValidation,
			wantMsg:    "Preencha todos os campos obrigatórios!",
		},
		{
			name:       "not found",
			err:        model.ErrPostNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   httputil.ErrCodeNotFound,
			wantMsg:    "Post não encontrado.",
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("load: %w", model.ErrUserNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   httputil.ErrCodeNotFound,
			wantMsg:    "Usuário não encontrado.",
		},
		{
			name:       "forbidden",
			err:        model.ErrNotCommentEditor,
			wantStatus: http.StatusForbidden,
			wantCode:   httputil.ErrCodeForbidden,
			wantMsg:    model.ErrNotCommentEditor.Error(),
		},
		{
			name:       "conflict answers 400",
			err:        model.ErrAlreadyFollowing,
			wantStatus: http.StatusBadRequest,
			wantCode:   httputil.ErrCodeConflict,
			wantMsg:    "Você já segue este usuário.",
		},
		{
			name:       "bad request",
			err:        model.ErrUsernameChangeTooSoon,
			wantStatus: http.StatusBadRequest,
			wantCode:   httputil.ErrCodeBadRequest,
			wantMsg:    "Você só pode alterar o nome de usuário uma vez a cada 30 dias.",
		},
		{
			name:       "internal errors are hidden",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   httputil.ErrCodeInternal,
			wantMsg:    msgInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, "test", tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&limit=abc", nil)

	assert.Equal(t, 3, queryInt(r, "page", 1))
	assert.Equal(t, 10, queryInt(r, "limit", 10))
	assert.Equal(t, 7, queryInt(r, "missing", 7))
}

func TestQueryCursor(t *testing.T) {
	assert.Nil(t, queryCursor(httptest.NewRequest(http.MethodGet, "/", nil)))

	c := queryCursor(httptest.NewRequest(http.MethodGet, "/?cursor=1700000000000", nil))
	require.NotNil(t, c)
	assert.Equal(t, "1700000000000", *c)
}
