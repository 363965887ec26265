package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"redesocial/internal/model"
)

// ImageStorage is where processed images end up. Keys look like
// "<folder>/<uuid>.jpg" and are what Delete expects back.
type ImageStorage interface {
	Name() string
	Put(ctx context.Context, key string, body []byte, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// MediaService validates uploads, normalizes them to JPEG and stores them.
// A nil storage disables uploads.
type MediaService struct {
	storage ImageStorage
}

func NewMediaService(storage ImageStorage) *MediaService {
	return &MediaService{storage: storage}
}

func (s *MediaService) Enabled() bool {
	return s != nil && s.storage != nil
}

// UploadAvatar crops the image to a centered 200x200 square.
func (s *MediaService) UploadAvatar(ctx context.Context, file io.Reader) (*model.UploadResult, error) {
	return s.upload(ctx, file, model.AvatarFolder, func(img image.Image) image.Image {
		return imaging.Fill(img, model.AvatarWidth, model.AvatarHeight, imaging.Center, imaging.Lanczos)
	})
}

// UploadPostImage shrinks the image to fit in a 1080px square; smaller
// images keep their size.
func (s *MediaService) UploadPostImage(ctx context.Context, file io.Reader) (*model.UploadResult, error) {
	return s.upload(ctx, file, model.PostImageFolder, func(img image.Image) image.Image {
		return imaging.Fit(img, model.PostImageMaxSide, model.PostImageMaxSide, imaging.Lanczos)
	})
}

func (s *MediaService) upload(ctx context.Context, file io.Reader, folder string, transform func(image.Image) image.Image) (*model.UploadResult, error) {
	if !s.Enabled() {
		return nil, model.ErrUploadsDisabled
	}

	data, err := readAndValidateImage(file, model.MaxImageSizeBytes)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, model.ErrInvalidImageType
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, transform(img), imaging.JPEG, imaging.JPEGQuality(model.ImageJPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	key := fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), model.ImageExt)
	url, err := s.storage.Put(ctx, key, buf.Bytes(), model.ContentTypeJPEG)
	if err != nil {
		return nil, err
	}
	return &model.UploadResult{URL: url, Key: key}, nil
}

// Delete removes a stored image, logging instead of failing.
func (s *MediaService) Delete(ctx context.Context, key string) {
	if !s.Enabled() || key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		log.Printf("[MediaService] %s delete failed: key=%s err=%v", s.storage.Name(), key, err)
	}
}

// readAndValidateImage reads at most maxSize bytes and sniffs the content
// type; the client's declared type is not trusted.
func readAndValidateImage(file io.Reader, maxSize int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, model.ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, model.ErrImageFieldRequired
	}

	if !model.IsAllowedImageType(http.DetectContentType(data)) {
		return nil, model.ErrInvalidImageType
	}
	return data, nil
}
