package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"adsboard/internal/metrics"
	"adsboard/internal/model"
	"adsboard/internal/repository"
)

// Rejection reasons recorded in metrics
const (
	rejectValidation  = "validation"
	rejectQuota       = "quota"
	rejectImages      = "images"
	rejectPersistence = "persistence"
)

// AdService runs the ad submission pipeline:
// validate, check quota, process images, persist, then hand off notification.
type AdService struct {
	ads     repository.AdRepository
	quota   *QuotaEnforcer
	images  *ImageProcessor
	owners  *OwnerResolver
	events  AdEventPublisher
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAdService(
	ads repository.AdRepository,
	quota *QuotaEnforcer,
	images *ImageProcessor,
	owners *OwnerResolver,
	events AdEventPublisher,
	log *zap.Logger,
	m *metrics.Metrics,
) *AdService {
	return &AdService{
		ads:     ads,
		quota:   quota,
		images:  images,
		owners:  owners,
		events:  events,
		log:     log.Named("ads"),
		metrics: m,
		now:     time.Now,
	}
}

// Create validates and stores a new ad owned by userID. Nothing is persisted
// unless every stage before persistence succeeds, and uploads made for a
// failed submission are destroyed.
func (s *AdService) Create(ctx context.Context, userID int64, category model.Category, in model.AdInput) (*model.Ad, error) {
	schema, err := model.SchemaFor(category)
	if err != nil {
		return nil, err
	}

	ad, err := schema.NewAd(in)
	if err != nil {
		s.metrics.AdRejected(string(category), rejectValidation)
		return nil, err
	}

	ok, err := s.quota.CanCreate(ctx, userID, category, schema.QuotaLimit)
	if err != nil {
		s.log.Error("quota check failed", zap.Int64("user_id", userID), zap.String("category", string(category)), zap.Error(err))
		s.metrics.AdRejected(string(category), rejectPersistence)
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	if !ok {
		s.metrics.AdRejected(string(category), rejectQuota)
		return nil, &model.QuotaExceededError{Category: category, Limit: schema.QuotaLimit}
	}

	batch, err := s.images.Process(ctx, nil, ad.Images)
	if err != nil {
		s.metrics.AdRejected(string(category), rejectImages)
		return nil, err
	}
	ad.Images = batch.Final
	uploaded := batch.Uploaded

	extra, err := s.processImageAttributes(ctx, schema, nil, ad)
	if err != nil {
		s.images.DestroyAll(context.WithoutCancel(ctx), uploaded)
		s.metrics.AdRejected(string(category), rejectImages)
		return nil, err
	}
	uploaded = append(uploaded, extra.Uploaded...)

	now := s.now()
	ad.OwnerID = userID
	ad.CreatedAt = now
	ad.UpdatedAt = now

	if err := s.ads.Insert(ctx, ad); err != nil {
		s.log.Error("ad insert failed", zap.Int64("user_id", userID), zap.String("category", string(category)), zap.Error(err))
		s.images.DestroyAll(context.WithoutCancel(ctx), uploaded)
		s.metrics.AdRejected(string(category), rejectPersistence)
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	s.metrics.AdCreated(string(category))

	if notice, ok := model.NoticeFor(ad); ok {
		if err := s.events.AdCreated(ctx, notice); err != nil {
			s.log.Error("notification dispatch failed", zap.String("ad_id", ad.ID), zap.Error(err))
		}
	}

	s.owners.AttachOne(ctx, ad)
	s.log.Info("ad created",
		zap.String("ad_id", ad.ID),
		zap.String("category", string(category)),
		zap.Int64("user_id", userID),
		zap.Int("images", len(ad.Images)))
	return ad, nil
}

// Get returns one ad with its owner projection.
func (s *AdService) Get(ctx context.Context, category model.Category, id string) (*model.Ad, error) {
	ad, err := s.load(ctx, category, id)
	if err != nil {
		return nil, err
	}
	s.owners.AttachOne(ctx, ad)
	return ad, nil
}

// Update merges in over the stored ad. Quota and notification are skipped.
// Images dropped by the update are destroyed after the write succeeds.
func (s *AdService) Update(ctx context.Context, userID int64, category model.Category, id string, in model.AdInput) (*model.Ad, error) {
	schema, err := model.SchemaFor(category)
	if err != nil {
		return nil, err
	}

	existing, err := s.load(ctx, category, id)
	if err != nil {
		return nil, err
	}

	merged, err := schema.Merge(existing, in)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != userID {
		return nil, model.ErrForbidden
	}

	var uploaded, removed []string
	if in.HasImages {
		batch, err := s.images.Process(ctx, existing.Images, merged.Images)
		if err != nil {
			return nil, err
		}
		merged.Images = batch.Final
		uploaded, removed = batch.Uploaded, batch.Removed
	}

	extra, err := s.processImageAttributes(ctx, schema, existing, merged)
	if err != nil {
		s.images.DestroyAll(context.WithoutCancel(ctx), uploaded)
		return nil, err
	}
	uploaded = append(uploaded, extra.Uploaded...)
	removed = append(removed, extra.Removed...)

	merged.UpdatedAt = s.now()
	if err := s.ads.Update(ctx, merged); err != nil {
		s.images.DestroyAll(context.WithoutCancel(ctx), uploaded)
		if errors.Is(err, model.ErrAdNotFound) {
			return nil, err
		}
		s.log.Error("ad update failed", zap.String("ad_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	if failed := s.images.DestroyAll(context.WithoutCancel(ctx), removed); failed > 0 {
		s.log.Warn("some replaced images were not destroyed", zap.String("ad_id", id), zap.Int("failed", failed))
	}

	s.owners.AttachOne(ctx, merged)
	return merged, nil
}

// Delete removes an owned ad, then destroys its images and saved references.
func (s *AdService) Delete(ctx context.Context, userID int64, category model.Category, id string) error {
	schema, err := model.SchemaFor(category)
	if err != nil {
		return err
	}

	existing, err := s.load(ctx, category, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != userID {
		return model.ErrForbidden
	}

	if err := s.ads.Delete(ctx, category, id); err != nil {
		if errors.Is(err, model.ErrAdNotFound) {
			return err
		}
		s.log.Error("ad delete failed", zap.String("ad_id", id), zap.Error(err))
		return fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	images := append([]string(nil), existing.Images...)
	for _, name := range schema.ImageAttributes() {
		if v := existing.Attributes[name]; v != "" {
			images = append(images, v)
		}
	}
	s.images.DestroyAll(context.WithoutCancel(ctx), images)

	if err := s.events.AdDeleted(ctx, category, id); err != nil {
		s.log.Error("ad deleted event failed", zap.String("ad_id", id), zap.Error(err))
	}

	s.log.Info("ad deleted", zap.String("ad_id", id), zap.String("category", string(category)), zap.Int64("user_id", userID))
	return nil
}

func (s *AdService) load(ctx context.Context, category model.Category, id string) (*model.Ad, error) {
	ad, err := s.ads.GetByID(ctx, category, id)
	if err != nil {
		if errors.Is(err, model.ErrAdNotFound) || errors.Is(err, model.ErrUnknownCategory) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return ad, nil
}

// processImageAttributes uploads inline values of single-image attributes.
// For updates, a replaced stored value is reported in Removed.
func (s *AdService) processImageAttributes(ctx context.Context, schema *model.CategorySchema, existing, ad *model.Ad) (*ImageBatch, error) {
	batch := &ImageBatch{}
	for _, name := range schema.ImageAttributes() {
		value := ad.Attributes[name]
		var previous string
		if existing != nil {
			previous = existing.Attributes[name]
		}
		if value == "" || value == previous {
			continue
		}

		url, uploaded, err := s.images.ProcessSingle(ctx, name, value)
		if err != nil {
			s.images.DestroyAll(context.WithoutCancel(ctx), batch.Uploaded)
			return nil, err
		}
		ad.Attributes[name] = url
		if uploaded {
			batch.Uploaded = append(batch.Uploaded, url)
		}
		if previous != "" {
			batch.Removed = append(batch.Removed, previous)
		}
	}
	return batch, nil
}
