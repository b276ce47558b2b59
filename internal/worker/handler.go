package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"adsboard/internal/model"
	"adsboard/internal/queue"
	"adsboard/internal/service"
)

// SavedAdCleaner removes saved-ad rows that point at a deleted ad.
type SavedAdCleaner interface {
	DeleteByAd(ctx context.Context, adID string) (int64, error)
}

// Handler processes ad events from the queue.
type Handler struct {
	notifier     service.Notifier
	saved        SavedAdCleaner
	fanoutBudget time.Duration
	log          *zap.Logger
}

// NewHandler creates a new event handler. fanoutBudget bounds one
// notification fan-out; 0 means no extra deadline.
func NewHandler(notifier service.Notifier, saved SavedAdCleaner, fanoutBudget time.Duration, log *zap.Logger) *Handler {
	return &Handler{
		notifier:     notifier,
		saved:        saved,
		fanoutBudget: fanoutBudget,
		log:          log.Named("handler"),
	}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.AdEvent) error {
	startTime := time.Now()
	var err error

	switch event.Type {
	case queue.EventAdCreated:
		err = h.handleAdCreated(ctx, event)
	case queue.EventAdDeleted:
		err = h.handleAdDeleted(ctx, event)
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		h.log.Error("event failed",
			zap.String("type", event.Type),
			zap.String("ad_id", event.AdID),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err))
		return err
	}

	h.log.Debug("event handled", zap.String("type", event.Type), zap.String("ad_id", event.AdID),
		zap.Duration("duration", time.Since(startTime)))
	return nil
}

// handleAdCreated runs the new-ad notification fan-out.
func (h *Handler) handleAdCreated(ctx context.Context, event queue.AdEvent) error {
	if _, err := model.SchemaFor(event.Category); err != nil {
		return err
	}
	if event.DailyCap <= 0 {
		// Category does not notify
		return nil
	}

	if h.fanoutBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.fanoutBudget)
		defer cancel()
	}

	res, err := h.notifier.NotifyNewAd(ctx, event.Notice())
	if err != nil {
		return fmt.Errorf("notify new ad: %w", err)
	}

	h.log.Info("fan-out finished",
		zap.String("ad_id", event.AdID),
		zap.Int("queued", res.Queued),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed))
	return nil
}

// handleAdDeleted removes saved references to the deleted ad.
func (h *Handler) handleAdDeleted(ctx context.Context, event queue.AdEvent) error {
	n, err := h.saved.DeleteByAd(ctx, event.AdID)
	if err != nil {
		return fmt.Errorf("delete saved ads: %w", err)
	}
	if n > 0 {
		h.log.Info("saved ads removed", zap.String("ad_id", event.AdID), zap.Int64("rows", n))
	}
	return nil
}
