package model

import "time"

// SavedAd marks an ad as a favorite of a user. At most one per (user, ad).
type SavedAd struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	AdID      string    `db:"ad_id" json:"ad_id"`
	Category  Category  `db:"ad_category" json:"ad_category"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SavedAdView is a saved record with its ad resolved.
type SavedAdView struct {
	ID        int64     `json:"id"`
	Category  Category  `json:"ad_category"`
	Ad        *Ad       `json:"ad"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveAdRequest is the request body for POST /api/saved-ads
type SaveAdRequest struct {
	AdID     string `json:"ad_id"`
	Category string `json:"ad_category"`
}

// UnsaveAdRequest is the request body for DELETE /api/saved-ads
type UnsaveAdRequest struct {
	AdID string `json:"ad_id"`
}
