package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"adsboard/internal/metrics"
	"adsboard/internal/model"
)

// RecipientStore is the slice of the user repository the fan-out needs.
type RecipientStore interface {
	ListPushRecipients(ctx context.Context) ([]model.User, error)
	UpdateNotificationCounter(ctx context.Context, userID int64, counter model.DailyCounter) error
}

// FanoutResult summarizes one fan-out run.
type FanoutResult struct {
	Scanned int
	Queued  int
	Sent    int
	Failed  int
}

// NotificationService broadcasts new-ad notifications under a per-user daily cap.
type NotificationService struct {
	users   RecipientStore
	push    PushSender
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewNotificationService(users RecipientStore, push PushSender, log *zap.Logger, m *metrics.Metrics) *NotificationService {
	return &NotificationService{
		users:   users,
		push:    push,
		log:     log.Named("fanout"),
		metrics: m,
		now:     time.Now,
	}
}

// NotifyNewAd queues one message per eligible user and sends them as a
// single batch. A user's counter is persisted before their message is
// queued, and counters are not rolled back when the batch fails. Only a
// failure to load recipients is returned.
func (s *NotificationService) NotifyNewAd(ctx context.Context, notice model.NewAdNotice) (FanoutResult, error) {
	var res FanoutResult
	started := time.Now()
	defer func() { s.metrics.ObserveFanout(time.Since(started).Seconds()) }()

	users, err := s.users.ListPushRecipients(ctx)
	if err != nil {
		return res, fmt.Errorf("load recipients: %w", err)
	}

	now := s.now()
	data := map[string]string{
		"type":     "new_ad",
		"ad_id":    notice.AdID,
		"category": string(notice.Category),
	}

	messages := make([]model.PushMessage, 0, len(users))
	for i := range users {
		u := &users[i]
		res.Scanned++

		if u.ID == notice.AuthorID || u.PushToken == nil || *u.PushToken == "" {
			continue
		}
		if !s.push.IsValidToken(*u.PushToken) {
			continue
		}
		counter := u.Counter()
		if counter.Reached(now, notice.DailyCap) {
			continue
		}

		next := counter.Increment(now)
		if err := s.users.UpdateNotificationCounter(ctx, u.ID, next); err != nil {
			s.log.Warn("counter update failed, skipping recipient", zap.Int64("user_id", u.ID), zap.Error(err))
			continue
		}
		u.NotificationCount, u.LastNotificationDate = next.Count, next.LastDate

		messages = append(messages, model.PushMessage{
			To:    *u.PushToken,
			Title: notice.Title,
			Body:  notice.Body,
			Data:  data,
		})
	}
	res.Queued = len(messages)

	if len(messages) == 0 {
		s.log.Debug("no recipients for ad", zap.String("ad_id", notice.AdID), zap.Int("scanned", res.Scanned))
		return res, nil
	}

	tickets, err := s.push.SendBatch(ctx, messages)
	if err != nil {
		res.Failed = len(messages)
		s.metrics.PushSent(0, res.Failed)
		s.log.Error("push batch failed", zap.String("ad_id", notice.AdID), zap.Int("messages", len(messages)), zap.Error(err))
		return res, nil
	}

	for _, t := range tickets {
		if t.Status == model.PushStatusOK {
			res.Sent++
		} else {
			res.Failed++
		}
	}
	s.metrics.PushSent(res.Sent, res.Failed)
	s.log.Info("new ad fan-out done",
		zap.String("ad_id", notice.AdID),
		zap.String("category", string(notice.Category)),
		zap.Int("scanned", res.Scanned),
		zap.Int("queued", res.Queued),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed))
	return res, nil
}
