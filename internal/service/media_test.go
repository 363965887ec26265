package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redesocial/internal/model"
)

type memoryStorage struct {
	objects map[string][]byte
	deleted []string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Name() string { return "memory" }

func (m *memoryStorage) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	m.objects[key] = body
	return "https://cdn.test/" + key, nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestMediaService_UploadAvatar_CropsToSquare(t *testing.T) {
	storage := newMemoryStorage()
	svc := NewMediaService(storage)

	res, err := svc.UploadAvatar(context.Background(), bytes.NewReader(testPNG(t, 640, 480)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Key, model.AvatarFolder+"/"))
	assert.True(t, strings.HasSuffix(res.Key, model.ImageExt))
	assert.Equal(t, "https://cdn.test/"+res.Key, res.URL)

	w, h := decodedSize(t, storage.objects[res.Key])
	assert.Equal(t, model.AvatarWidth, w)
	assert.Equal(t, model.AvatarHeight, h)
}

func TestMediaService_UploadPostImage_FitsWithoutUpscaling(t *testing.T) {
	storage := newMemoryStorage()
	svc := NewMediaService(storage)

	big, err := svc.UploadPostImage(context.Background(), bytes.NewReader(testPNG(t, 2160, 1080)))
	require.NoError(t, err)
	w, h := decodedSize(t, storage.objects[big.Key])
	assert.Equal(t, 1080, w)
	assert.Equal(t, 540, h)

	small, err := svc.UploadPostImage(context.Background(), bytes.NewReader(testPNG(t, 300, 200)))
	require.NoError(t, err)
	w, h = decodedSize(t, storage.objects[small.Key])
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)
}

func TestMediaService_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		body    []byte
		wantErr error
	}{
		{name: "not an image", body: []byte("%PDF-1.4 definitely not a picture"), wantErr: model.ErrInvalidImageType},
		{name: "too large", body: bytes.Repeat([]byte{0xff}, model.MaxImageSizeBytes+1), wantErr: model.ErrFileTooLarge},
		{name: "empty", body: nil, wantErr: model.ErrImageFieldRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := newMemoryStorage()
			_, err := NewMediaService(storage).UploadPostImage(context.Background(), bytes.NewReader(tt.body))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, storage.objects)
		})
	}
}

func TestMediaService_DisabledWithoutStorage(t *testing.T) {
	svc := NewMediaService(nil)
	assert.False(t, svc.Enabled())

	_, err := svc.UploadAvatar(context.Background(), bytes.NewReader(testPNG(t, 10, 10)))
	assert.ErrorIs(t, err, model.ErrUploadsDisabled)

	svc.Delete(context.Background(), "posts/x.jpg")
}

func TestCloudinaryPublicID(t *testing.T) {
	assert.Equal(t, "posts/abc", publicID("posts/abc.jpg"))
	assert.Equal(t, "avatars/x", publicID("avatars/x"))
}
