package repository

import (
	"context"
	"time"

	"adsboard/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetSummaries(ctx context.Context, ids []int64) ([]model.UserSummary, error)
	// ListPushRecipients returns every user that has a push token stored.
	ListPushRecipients(ctx context.Context) ([]model.User, error)
	UpdatePushToken(ctx context.Context, userID int64, token *string) error
	UpdateNotificationCounter(ctx context.Context, userID int64, counter model.DailyCounter) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	// Rotate returns model.ErrRefreshTokenReused when currentID is already revoked.
	Rotate(ctx context.Context, currentID string, next *model.RefreshToken) error
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

type SavedAdRepository interface {
	// Create returns model.ErrAlreadySaved when the pair exists.
	Create(ctx context.Context, userID int64, adID string, category model.Category) (*model.SavedAd, error)
	Exists(ctx context.Context, userID int64, adID string) (bool, error)
	// Delete is a no-op when nothing matches.
	Delete(ctx context.Context, userID int64, adID string) error
	ListByUser(ctx context.Context, userID int64) ([]model.SavedAd, error)
	DeleteByAd(ctx context.Context, adID string) (int64, error)
}

// AdRepository stores ads, one collection per category.
type AdRepository interface {
	// Insert assigns ad.ID.
	Insert(ctx context.Context, ad *model.Ad) error
	GetByID(ctx context.Context, category model.Category, id string) (*model.Ad, error)
	GetByIDs(ctx context.Context, category model.Category, ids []string) ([]model.Ad, error)
	// Find returns matching ads newest first.
	Find(ctx context.Context, category model.Category, filter model.AdFilter, skip, limit int64) ([]model.Ad, error)
	Count(ctx context.Context, category model.Category, filter model.AdFilter) (int64, error)
	// Update replaces the mutable fields of an ad owned by ad.OwnerID.
	Update(ctx context.Context, ad *model.Ad) error
	Delete(ctx context.Context, category model.Category, id string) error
}
