package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"adsboard/internal/model"
)

// AdFinder is the read side of the ad repository.
type AdFinder interface {
	Find(ctx context.Context, category model.Category, filter model.AdFilter, skip, limit int64) ([]model.Ad, error)
	Count(ctx context.Context, category model.Category, filter model.AdFilter) (int64, error)
}

// ListingService serves filtered, paginated category listings.
type ListingService struct {
	ads    AdFinder
	owners *OwnerResolver
	log    *zap.Logger
}

func NewListingService(ads AdFinder, owners *OwnerResolver, log *zap.Logger) *ListingService {
	return &ListingService{ads: ads, owners: owners, log: log.Named("listing")}
}

// List returns one page of a category, newest first. Fields outside the
// category's filter whitelist, empty values and the "no filter" sentinel
// are ignored.
func (s *ListingService) List(ctx context.Context, category model.Category, q model.ListQuery) (*model.AdPage, error) {
	schema, err := model.SchemaFor(category)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, schema, model.AdFilter{Matches: BuildMatches(schema, q.Filters)}, q)
}

// ListByOwner returns one page of userID's ads in a category.
func (s *ListingService) ListByOwner(ctx context.Context, userID int64, category model.Category, q model.ListQuery) (*model.AdPage, error) {
	schema, err := model.SchemaFor(category)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, schema, model.AdFilter{OwnerID: &userID}, q)
}

func (s *ListingService) page(ctx context.Context, schema *model.CategorySchema, filter model.AdFilter, q model.ListQuery) (*model.AdPage, error) {
	page, size := normalizePage(q.Page, q.PageSize, schema.DefaultPageSize)

	total, err := s.ads.Count(ctx, schema.Category, filter)
	if err != nil {
		s.log.Error("count ads failed", zap.String("category", string(schema.Category)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	items := []model.Ad{}
	skip := int64(page-1) * int64(size)
	if skip < total {
		items, err = s.ads.Find(ctx, schema.Category, filter, skip, int64(size))
		if err != nil {
			s.log.Error("find ads failed", zap.String("category", string(schema.Category)), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
		}
		s.owners.Attach(ctx, items)
	}

	return &model.AdPage{
		Items:      items,
		Page:       page,
		PageSize:   size,
		TotalItems: total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

// BuildMatches turns raw filter values into whitelisted field matches.
// Fields keep the schema's declared order.
func BuildMatches(schema *model.CategorySchema, filters map[string][]string) []model.FieldMatch {
	var matches []model.FieldMatch
	for _, filter := range schema.Filters {
		var values []string
		for _, v := range filters[filter.Field] {
			v = strings.TrimSpace(v)
			if v == "" || v == model.NoFilterSentinel {
				continue
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			continue
		}
		matches = append(matches, model.FieldMatch{Field: filter.Field, Values: values, Mode: filter.Mode})
	}
	return matches
}

func normalizePage(page, size, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultSize
	}
	return page, min(size, model.MaxPageSize)
}
