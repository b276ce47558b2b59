package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"adsboard/internal/model"
)

// ImageStore is the object upload gateway as seen by the image processor.
type ImageStore interface {
	UploadAdImage(ctx context.Context, payload string) (string, error)
	DestroyAdImage(ctx context.Context, imageURL string) error
	// OwnsURL reports whether imageURL points at an object this store created.
	OwnsURL(imageURL string) bool
}

// ImageBatch is the outcome of reconciling an ad's images.
type ImageBatch struct {
	// Final is the image list to persist, in request order.
	Final []string
	// Uploaded lists URLs created by this batch. Destroy them if persistence fails.
	Uploaded []string
	// Removed lists previously stored URLs absent from Final.
	Removed []string
}

// ImageProcessor uploads inline images and reconciles image lists.
type ImageProcessor struct {
	store ImageStore
	log   *zap.Logger
}

func NewImageProcessor(store ImageStore, log *zap.Logger) *ImageProcessor {
	return &ImageProcessor{store: store, log: log.Named("images")}
}

// Process uploads every inline element of incoming and keeps URLs verbatim.
// A URL into the store is accepted only when existing already holds it.
// Either every upload succeeds or the ones that did are destroyed and an
// error is returned.
func (p *ImageProcessor) Process(ctx context.Context, existing, incoming []string) (*ImageBatch, error) {
	if len(incoming) > model.MaxAdImages {
		return nil, model.ErrTooManyImages
	}

	final := make([]string, len(incoming))
	uploaded := make([]bool, len(incoming))
	for i, img := range incoming {
		switch {
		case IsInlineImage(img):
		case IsRemoteURL(img):
			if p.store.OwnsURL(img) && !slices.Contains(existing, img) {
				return nil, errForeignImage(model.FieldImages)
			}
			final[i] = img
		default:
			return nil, model.NewValidationError(model.FieldImages, "must be inline images or http(s) URLs")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(model.MaxAdImages)
	for i, img := range incoming {
		if !IsInlineImage(img) {
			continue
		}
		g.Go(func() error {
			url, err := p.store.UploadAdImage(gctx, img)
			if err != nil {
				return err
			}
			final[i] = url
			uploaded[i] = true
			return nil
		})
	}

	var created []string
	err := g.Wait()
	for i, ok := range uploaded {
		if ok {
			created = append(created, final[i])
		}
	}
	if err != nil {
		p.DestroyAll(context.WithoutCancel(ctx), created)
		return nil, uploadError(err)
	}

	return &ImageBatch{
		Final:    final,
		Uploaded: created,
		Removed:  difference(existing, final),
	}, nil
}

// ProcessSingle resolves one image field: inline payloads are uploaded,
// URLs are returned unchanged. uploaded is true when a new object was created.
// Callers skip values the ad already stores, so any store URL is rejected.
func (p *ImageProcessor) ProcessSingle(ctx context.Context, field, value string) (url string, uploaded bool, err error) {
	switch {
	case IsInlineImage(value):
		url, err := p.store.UploadAdImage(ctx, value)
		if err != nil {
			return "", false, uploadError(err)
		}
		return url, true, nil
	case IsRemoteURL(value):
		if p.store.OwnsURL(value) {
			return "", false, errForeignImage(field)
		}
		return value, false, nil
	}
	return "", false, model.NewValidationError(field, "must be an inline image or an http(s) URL")
}

// DestroyAll deletes each image independently. Failures are logged and
// counted, never returned.
func (p *ImageProcessor) DestroyAll(ctx context.Context, urls []string) (failed int) {
	for _, u := range urls {
		if err := p.store.DestroyAdImage(ctx, u); err != nil {
			failed++
			p.log.Warn("image destroy failed", zap.String("url", u), zap.Error(err))
		}
	}
	return failed
}

// uploadError keeps client payload problems as validation errors and wraps
// gateway failures as upload errors.
func uploadError(err error) error {
	switch {
	case errors.Is(err, model.ErrFileTooLarge):
		return model.NewValidationError(model.FieldImages, "image exceeds the size limit")
	case errors.Is(err, model.ErrInvalidImageType):
		return model.NewValidationError(model.FieldImages, "unsupported image type, allowed: jpeg, png, gif, webp")
	case errors.Is(err, model.ErrInvalidDataURI):
		return model.NewValidationError(model.FieldImages, "malformed inline image")
	case errors.Is(err, model.ErrInvalidImage):
		return model.NewValidationError(model.FieldImages, "image data is corrupt or unreadable")
	}
	return fmt.Errorf("%w: %w", model.ErrUploadFailed, err)
}

func errForeignImage(field string) error {
	return model.NewValidationError(field, "must not reference images stored for another ad")
}

// difference returns the elements of a not present in b.
func difference(a, b []string) []string {
	if len(a) == 0 {
		return nil
	}
	keep := make(map[string]struct{}, len(b))
	for _, s := range b {
		keep[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := keep[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
