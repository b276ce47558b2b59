package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"adsboard/internal/model"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint hit.
const uniqueViolation = "23505"

type savedAdRepository struct {
	db *sqlx.DB
}

// NewSavedAdRepository creates a new saved-ad repository
func NewSavedAdRepository(db *sqlx.DB) SavedAdRepository {
	return &savedAdRepository{db: db}
}

func (r *savedAdRepository) Create(ctx context.Context, userID int64, adID string, category model.Category) (*model.SavedAd, error) {
	query := `
		INSERT INTO saved_ads (user_id, ad_id, ad_category)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, ad_id, ad_category, created_at
	`
	var saved model.SavedAd
	if err := r.db.GetContext(ctx, &saved, query, userID, adID, string(category)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, model.ErrAlreadySaved
		}
		return nil, fmt.Errorf("failed to save ad: %w", err)
	}
	return &saved, nil
}

func (r *savedAdRepository) Exists(ctx context.Context, userID int64, adID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM saved_ads WHERE user_id = $1 AND ad_id = $2)`, userID, adID)
	if err != nil {
		return false, fmt.Errorf("failed to check saved ad: %w", err)
	}
	return exists, nil
}

func (r *savedAdRepository) Delete(ctx context.Context, userID int64, adID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM saved_ads WHERE user_id = $1 AND ad_id = $2`, userID, adID)
	if err != nil {
		return fmt.Errorf("failed to unsave ad: %w", err)
	}
	return nil
}

func (r *savedAdRepository) ListByUser(ctx context.Context, userID int64) ([]model.SavedAd, error) {
	query := `
		SELECT id, user_id, ad_id, ad_category, created_at
		FROM saved_ads
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	var saved []model.SavedAd
	if err := r.db.SelectContext(ctx, &saved, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list saved ads: %w", err)
	}
	return saved, nil
}

func (r *savedAdRepository) DeleteByAd(ctx context.Context, adID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM saved_ads WHERE ad_id = $1`, adID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete saved ads for ad: %w", err)
	}
	return res.RowsAffected()
}
