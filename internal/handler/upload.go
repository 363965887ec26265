package handler

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"redesocial/internal/model"
)

// multipartOverhead leaves room for the form fields next to the image.
const multipartOverhead = 1 << 20

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// parseImageForm parses a multipart body and returns the "image" file, or
// nil when the form has none.
func parseImageForm(w http.ResponseWriter, r *http.Request) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, model.MaxImageSizeBytes+multipartOverhead)
	if err := r.ParseMultipartForm(model.MaxImageSizeBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, model.ErrFileTooLarge
		}
		return nil, model.ErrInvalidImageType
	}

	file, header, err := r.FormFile(model.ImageFormFieldName)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, model.ErrImageFieldRequired
	}
	if header.Size > model.MaxImageSizeBytes {
		file.Close()
		return nil, model.ErrFileTooLarge
	}
	return file, nil
}
