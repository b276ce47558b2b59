package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"adsboard/internal/model"
	"adsboard/internal/queue"
)

// AdEventPublisher hands post-persistence work off the request path.
type AdEventPublisher interface {
	AdCreated(ctx context.Context, notice model.NewAdNotice) error
	AdDeleted(ctx context.Context, category model.Category, adID string) error
}

// Notifier runs a new-ad fan-out.
type Notifier interface {
	NotifyNewAd(ctx context.Context, notice model.NewAdNotice) (FanoutResult, error)
}

// SavedAdCleaner removes saved-ad rows of a deleted ad.
type SavedAdCleaner interface {
	DeleteByAd(ctx context.Context, adID string) (int64, error)
}

// StreamEventPublisher appends ad events to the Redis stream consumed by workers.
type StreamEventPublisher struct {
	publisher queue.Publisher
}

func NewStreamEventPublisher(publisher queue.Publisher) *StreamEventPublisher {
	return &StreamEventPublisher{publisher: publisher}
}

func (p *StreamEventPublisher) AdCreated(ctx context.Context, notice model.NewAdNotice) error {
	if _, err := p.publisher.Publish(ctx, queue.StreamAds, queue.NewAdCreatedEvent(notice)); err != nil {
		return fmt.Errorf("publish ad created: %w", err)
	}
	return nil
}

func (p *StreamEventPublisher) AdDeleted(ctx context.Context, category model.Category, adID string) error {
	if _, err := p.publisher.Publish(ctx, queue.StreamAds, queue.NewAdDeletedEvent(category, adID)); err != nil {
		return fmt.Errorf("publish ad deleted: %w", err)
	}
	return nil
}

// InlineEventPublisher runs event work on detached goroutines in this
// process. It is used when no Redis is configured.
type InlineEventPublisher struct {
	notifier Notifier
	saved    SavedAdCleaner
	timeout  time.Duration
	log      *zap.Logger
	wg       sync.WaitGroup
}

func NewInlineEventPublisher(notifier Notifier, saved SavedAdCleaner, timeout time.Duration, log *zap.Logger) *InlineEventPublisher {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &InlineEventPublisher{notifier: notifier, saved: saved, timeout: timeout, log: log.Named("events")}
}

func (p *InlineEventPublisher) AdCreated(ctx context.Context, notice model.NewAdNotice) error {
	p.detach(ctx, func(ctx context.Context) {
		if _, err := p.notifier.NotifyNewAd(ctx, notice); err != nil {
			p.log.Error("new ad fan-out failed", zap.String("ad_id", notice.AdID), zap.Error(err))
		}
	})
	return nil
}

func (p *InlineEventPublisher) AdDeleted(ctx context.Context, category model.Category, adID string) error {
	p.detach(ctx, func(ctx context.Context) {
		n, err := p.saved.DeleteByAd(ctx, adID)
		if err != nil {
			p.log.Error("saved ad cleanup failed", zap.String("ad_id", adID), zap.Error(err))
			return
		}
		p.log.Debug("saved ads removed", zap.String("ad_id", adID), zap.String("category", string(category)), zap.Int64("rows", n))
	})
	return nil
}

// Wait blocks until in-flight work finishes. Call during shutdown.
func (p *InlineEventPublisher) Wait() {
	p.wg.Wait()
}

func (p *InlineEventPublisher) detach(ctx context.Context, fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()
		fn(ctx)
	}()
}
