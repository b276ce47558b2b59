package model

// PushMessage is one queued notification.
type PushMessage struct {
	To    string
	Title string
	Body  string
	Data  map[string]string
}

// Push ticket statuses
const (
	PushStatusOK    = "ok"
	PushStatusError = "error"
)

// PushTicket is the gateway's per-message outcome, aligned with the batch order.
type PushTicket struct {
	Status  string
	ID      string
	Message string
	Error   string
}

// NewAdNotice describes the fan-out for one newly created ad.
type NewAdNotice struct {
	AdID     string   `json:"ad_id"`
	Category Category `json:"category"`
	AuthorID int64    `json:"author_id"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	DailyCap int      `json:"daily_cap"`
}

// NoticeFor builds the notification for a persisted ad. ok is false for
// categories that do not notify.
func NoticeFor(ad *Ad) (notice NewAdNotice, ok bool) {
	schema, err := SchemaFor(ad.Category)
	if err != nil || schema.Notification == nil {
		return NewAdNotice{}, false
	}
	t := schema.Notification
	return NewAdNotice{
		AdID:     ad.ID,
		Category: ad.Category,
		AuthorID: ad.OwnerID,
		Title:    t.Title,
		Body:     t.Body(ad.Title),
		DailyCap: t.DailyCap,
	}, true
}
