package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"adsboard/internal/model"
	"adsboard/internal/repository"
)

// AdLookup resolves ads by id within a category.
type AdLookup interface {
	GetByID(ctx context.Context, category model.Category, id string) (*model.Ad, error)
	GetByIDs(ctx context.Context, category model.Category, ids []string) ([]model.Ad, error)
}

// SavedAdService manages a user's saved ads across categories.
type SavedAdService struct {
	saved  repository.SavedAdRepository
	ads    AdLookup
	owners *OwnerResolver
	log    *zap.Logger
}

func NewSavedAdService(saved repository.SavedAdRepository, ads AdLookup, owners *OwnerResolver, log *zap.Logger) *SavedAdService {
	return &SavedAdService{saved: saved, ads: ads, owners: owners, log: log.Named("saved_ads")}
}

// Save records adID as saved by userID. The ad must exist in category.
func (s *SavedAdService) Save(ctx context.Context, userID int64, req model.SaveAdRequest) (*model.SavedAd, error) {
	adID := strings.TrimSpace(req.AdID)
	if adID == "" {
		return nil, model.NewValidationError("ad_id", "is required")
	}
	category, err := model.ParseCategory(req.Category)
	if err != nil {
		return nil, model.NewValidationError("ad_category", "is not a known category")
	}

	if _, err := s.ads.GetByID(ctx, category, adID); err != nil {
		if errors.Is(err, model.ErrAdNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	exists, err := s.saved.Exists(ctx, userID, adID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	if exists {
		return nil, model.ErrAlreadySaved
	}

	saved, err := s.saved.Create(ctx, userID, adID, category)
	if err != nil {
		if errors.Is(err, model.ErrAlreadySaved) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return saved, nil
}

// Unsave removes the saved record. Removing an absent record succeeds.
func (s *SavedAdService) Unsave(ctx context.Context, userID int64, adID string) error {
	adID = strings.TrimSpace(adID)
	if adID == "" {
		return model.NewValidationError("ad_id", "is required")
	}
	if err := s.saved.Delete(ctx, userID, adID); err != nil {
		return fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return nil
}

// List returns userID's saved ads, newest save first. Records whose ad no
// longer exists are skipped.
func (s *SavedAdService) List(ctx context.Context, userID int64) ([]model.SavedAdView, error) {
	records, err := s.saved.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	if len(records) == 0 {
		return []model.SavedAdView{}, nil
	}

	byCategory := make(map[model.Category][]string)
	for _, r := range records {
		byCategory[r.Category] = append(byCategory[r.Category], r.AdID)
	}

	resolved := make(map[string]model.Ad, len(records))
	for _, schema := range model.Schemas() {
		ids, ok := byCategory[schema.Category]
		if !ok {
			continue
		}
		ads, err := s.ads.GetByIDs(ctx, schema.Category, ids)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
		}
		for _, ad := range ads {
			resolved[ad.ID] = ad
		}
	}

	found := make([]model.Ad, 0, len(records))
	for _, r := range records {
		if ad, ok := resolved[r.AdID]; ok && ad.Category == r.Category {
			found = append(found, ad)
		}
	}
	s.owners.Attach(ctx, found)

	withOwners := make(map[string]model.Ad, len(found))
	for _, ad := range found {
		withOwners[ad.ID] = ad
	}

	views := make([]model.SavedAdView, 0, len(found))
	for _, r := range records {
		ad, ok := withOwners[r.AdID]
		if !ok {
			s.log.Debug("skipping dangling saved ad", zap.Int64("user_id", userID), zap.String("ad_id", r.AdID))
			continue
		}
		views = append(views, model.SavedAdView{
			ID:        r.ID,
			Category:  r.Category,
			Ad:        &ad,
			CreatedAt: r.CreatedAt,
		})
	}
	return views, nil
}
