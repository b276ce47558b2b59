package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"adsboard/internal/model"
)

// Event types for the ads stream
const (
	EventAdCreated = "ad_created"
	EventAdDeleted = "ad_deleted"
)

// Stream names
const (
	StreamAds = "stream:ads"
)

// Consumer group name for ad workers
const (
	ConsumerGroupAds = "ad_workers"
)

// AdEvent represents an event published to the ads stream.
type AdEvent struct {
	Type      string `json:"type"`      // EventAdCreated, EventAdDeleted
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred

	AdID     string         `json:"ad_id"`
	Category model.Category `json:"category"`

	// Notification payload, AdCreated only
	AuthorID int64  `json:"author_id,omitempty"`
	Title    string `json:"title,omitempty"`
	Body     string `json:"body,omitempty"`
	DailyCap int    `json:"daily_cap,omitempty"`
}

// NewAdCreatedEvent carries a new-ad notice to the fan-out worker.
func NewAdCreatedEvent(notice model.NewAdNotice) AdEvent {
	return AdEvent{
		Type:      EventAdCreated,
		Timestamp: time.Now().Unix(),
		AdID:      notice.AdID,
		Category:  notice.Category,
		AuthorID:  notice.AuthorID,
		Title:     notice.Title,
		Body:      notice.Body,
		DailyCap:  notice.DailyCap,
	}
}

// NewAdDeletedEvent tells workers to drop saved references to an ad.
func NewAdDeletedEvent(category model.Category, adID string) AdEvent {
	return AdEvent{
		Type:      EventAdDeleted,
		Timestamp: time.Now().Unix(),
		AdID:      adID,
		Category:  category,
	}
}

// Notice rebuilds the notification notice of an AdCreated event.
func (e AdEvent) Notice() model.NewAdNotice {
	return model.NewAdNotice{
		AdID:     e.AdID,
		Category: e.Category,
		AuthorID: e.AuthorID,
		Title:    e.Title,
		Body:     e.Body,
		DailyCap: e.DailyCap,
	}
}

// ToMap converts the event to field-value pairs for XADD.
// The event is serialized to JSON in a "data" field.
func (e AdEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseAdEvent parses an AdEvent from Redis stream message values.
func ParseAdEvent(values map[string]interface{}) (AdEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return AdEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event AdEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return AdEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
