package model

import "errors"

const (
	MaxImageSizeBytes  = 5 * 1024 * 1024
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	ImageExt           = ".jpg"
	ImageCacheControl  = "public, max-age=31536000"
	ImageJPEGQuality   = 85
	ImageFormFieldName = "image"
)

const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

var (
	ErrFileTooLarge       = errors.New("A imagem deve ter no máximo 5MB.")
	ErrInvalidImageType   = errors.New("Apenas imagens são permitidas!")
	ErrUploadsDisabled    = errors.New("Upload de imagens não está configurado.")
	ErrImageFieldRequired = errors.New("Envie uma imagem no campo 'image'.")
)

// UploadResult is the stored object location. Key is kept so the object can
// be deleted later.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// IsAllowedImageType reports if the provided content type is supported
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}
