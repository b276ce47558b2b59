package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"adsboard/internal/metrics"
	domain "adsboard/internal/model"
	"adsboard/internal/storage"
)

// MediaService turns inline image payloads into stored objects and back.
type MediaService struct {
	store   storage.ObjectStore
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewMediaService(store storage.ObjectStore, log *zap.Logger, m *metrics.Metrics) *MediaService {
	return &MediaService{store: store, log: log.Named("media"), metrics: m}
}

// IsInlineImage reports whether s is a data URI payload.
func IsInlineImage(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// IsRemoteURL reports whether s is an http(s) URL.
func IsRemoteURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// UploadAdImage validates an inline image, bounds its size and stores it as JPEG.
func (s *MediaService) UploadAdImage(ctx context.Context, payload string) (string, error) {
	data, err := decodeInlineImage(payload, domain.MaxAdImageSizeBytes)
	if err != nil {
		return "", err
	}

	jpegBytes, err := fitToJPEG(data, domain.AdImageMaxEdge, domain.AdImageQuality)
	if err != nil {
		return "", err
	}

	key := path.Join(domain.AdImageFolder, uuid.NewString())
	if err := s.store.Put(ctx, key, jpegBytes, domain.ContentTypeJPEG, domain.ImageCacheControl); err != nil {
		return "", err
	}
	s.metrics.ImageUploaded()
	return s.store.URL(key), nil
}

// UploadAvatar normalizes an inline image to a 200x200 JPEG and stores it.
func (s *MediaService) UploadAvatar(ctx context.Context, payload string) (*domain.UploadResult, error) {
	data, err := decodeInlineImage(payload, domain.MaxAvatarSizeBytes)
	if err != nil {
		return nil, err
	}

	jpegBytes, err := resizeToJPEG(data, domain.AvatarWidth, domain.AvatarHeight, 85)
	if err != nil {
		return nil, err
	}

	key := path.Join(domain.AvatarFolder, uuid.NewString())
	if err := s.store.Put(ctx, key, jpegBytes, domain.ContentTypeJPEG, domain.ImageCacheControl); err != nil {
		return nil, err
	}
	return &domain.UploadResult{URL: s.store.URL(key), Key: key}, nil
}

// DestroyAdImage deletes the object behind a stored ad image URL.
// URLs outside this store are left alone.
func (s *MediaService) DestroyAdImage(ctx context.Context, imageURL string) error {
	if !s.OwnsURL(imageURL) {
		s.log.Debug("skip destroy of foreign image url", zap.String("url", imageURL))
		return nil
	}
	key := path.Join(domain.AdImageFolder, ObjectIDFromURL(imageURL))
	err := s.store.Delete(ctx, key)
	s.metrics.ImageDestroyed(err == nil)
	return err
}

// DeleteObject removes an object by key.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

// OwnsURL reports whether imageURL points into this store's ad image folder.
func (s *MediaService) OwnsURL(imageURL string) bool {
	return strings.HasPrefix(imageURL, s.store.URL(domain.AdImageFolder+"/"))
}

// ObjectIDFromURL returns the last path component of a URL without its extension.
func ObjectIDFromURL(imageURL string) string {
	if i := strings.IndexAny(imageURL, "?#"); i != -1 {
		imageURL = imageURL[:i]
	}
	base := path.Base(imageURL)
	return strings.TrimSuffix(base, path.Ext(base))
}

// decodeInlineImage parses "data:<type>;base64,<payload>" with size and type checks.
func decodeInlineImage(payload string, maxSize int64) ([]byte, error) {
	if !IsInlineImage(payload) {
		return nil, domain.ErrInvalidDataURI
	}
	header, encoded, ok := strings.Cut(strings.TrimPrefix(payload, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, domain.ErrInvalidDataURI
	}
	if int64(base64.StdEncoding.DecodedLen(len(encoded))) > maxSize+2 {
		return nil, domain.ErrFileTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDataURI, err)
	}
	if int64(len(data)) > maxSize {
		return nil, domain.ErrFileTooLarge
	}

	contentType := strings.TrimSuffix(header, ";base64")
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data[:min(len(data), 512)])
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	if !domain.IsAllowedImageType(contentType) {
		return nil, domain.ErrInvalidImageType
	}
	return data, nil
}

// fitToJPEG downscales to fit maxEdge (never upscales) and encodes as JPEG.
func fitToJPEG(data []byte, maxEdge, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}

	b := img.Bounds()
	if b.Dx() > maxEdge || b.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeToJPEG centers/crops to target size and encodes as JPEG.
func resizeToJPEG(data []byte, width, height, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
