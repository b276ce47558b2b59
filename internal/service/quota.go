package service

import (
	"context"
	"fmt"
	"time"

	"adsboard/internal/model"
)

// AdCounter counts ads matching a filter.
type AdCounter interface {
	Count(ctx context.Context, category model.Category, filter model.AdFilter) (int64, error)
}

// QuotaEnforcer caps how many ads a user may create per category per local day.
// The check is not locked; concurrent submissions can overshoot by the number
// of requests racing past the count.
type QuotaEnforcer struct {
	ads AdCounter
	now func() time.Time
}

func NewQuotaEnforcer(ads AdCounter) *QuotaEnforcer {
	return &QuotaEnforcer{ads: ads, now: time.Now}
}

// CanCreate reports whether userID has created fewer than limit ads of
// category since local midnight.
func (q *QuotaEnforcer) CanCreate(ctx context.Context, userID int64, category model.Category, limit int) (bool, error) {
	start := model.StartOfDay(q.now())
	end := start.AddDate(0, 0, 1)

	count, err := q.ads.Count(ctx, category, model.AdFilter{
		OwnerID:     &userID,
		CreatedFrom: &start,
		CreatedTo:   &end,
	})
	if err != nil {
		return false, fmt.Errorf("count today's ads: %w", err)
	}
	return count < int64(limit), nil
}
