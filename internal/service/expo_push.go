package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"adsboard/internal/model"
)

// PushSender is the notification gateway.
type PushSender interface {
	IsValidToken(token string) bool
	// SendBatch returns one ticket per message in order, or an error for the
	// whole batch.
	SendBatch(ctx context.Context, messages []model.PushMessage) ([]model.PushTicket, error)
}

// ExpoPushClient sends push notifications via Expo's Push API.
//
// Apps obtain an Expo push token ("ExponentPushToken[xxx]") and register it
// through POST /api/auth/push-token. Expo handles delivery to iOS and Android.
type ExpoPushClient struct {
	httpClient *http.Client
	endpoint   string
	log        *zap.Logger
}

// ExpoPushMessage is one entry of a send request.
type ExpoPushMessage struct {
	To       string            `json:"to"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

// ExpoPushResponse is the response from Expo's API.
type ExpoPushResponse struct {
	Data []ExpoPushTicket `json:"data"`
}

type ExpoPushTicket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"` // "DeviceNotRegistered", "MessageTooBig", etc.
	} `json:"details,omitempty"`
}

// DefaultExpoPushURL is Expo's public send endpoint.
const DefaultExpoPushURL = "https://exp.host/--/api/v2/push/send"

// expoChunkSize is Expo's per-request message limit.
const expoChunkSize = 100

// NewExpoPushClient creates a new Expo Push client. Expo needs no credentials.
func NewExpoPushClient(endpoint string, timeout time.Duration, log *zap.Logger) *ExpoPushClient {
	if endpoint == "" {
		endpoint = DefaultExpoPushURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExpoPushClient{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		log:        log.Named("expo"),
	}
}

// IsValidToken accepts ExponentPushToken[...] and ExpoPushToken[...].
func (c *ExpoPushClient) IsValidToken(token string) bool {
	if !strings.HasSuffix(token, "]") {
		return false
	}
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// SendBatch posts messages in chunks of 100. A transport or HTTP failure on
// any chunk fails the batch; per-message errors come back as tickets.
func (c *ExpoPushClient) SendBatch(ctx context.Context, messages []model.PushMessage) ([]model.PushTicket, error) {
	tickets := make([]model.PushTicket, 0, len(messages))
	for start := 0; start < len(messages); start += expoChunkSize {
		end := min(start+expoChunkSize, len(messages))
		chunk, err := c.sendChunk(ctx, messages[start:end])
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, chunk...)
	}

	var ok, failed int
	for i, t := range tickets {
		if t.Status == model.PushStatusOK {
			ok++
			continue
		}
		failed++
		c.log.Debug("push ticket failed", zap.Int("index", i), zap.String("message", t.Message), zap.String("error", t.Error))
	}
	c.log.Info("expo batch sent", zap.Int("messages", len(messages)), zap.Int("ok", ok), zap.Int("failed", failed))
	return tickets, nil
}

func (c *ExpoPushClient) sendChunk(ctx context.Context, messages []model.PushMessage) ([]model.PushTicket, error) {
	payload := make([]ExpoPushMessage, len(messages))
	for i, m := range messages {
		payload[i] = ExpoPushMessage{
			To:       m.To,
			Title:    m.Title,
			Body:     m.Body,
			Data:     m.Data,
			Sound:    "default",
			Priority: "high",
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("expo api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var pushResp ExpoPushResponse
	if err := json.Unmarshal(respBody, &pushResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	tickets := make([]model.PushTicket, len(messages))
	for i := range tickets {
		if i >= len(pushResp.Data) {
			tickets[i] = model.PushTicket{Status: model.PushStatusError, Message: "missing ticket"}
			continue
		}
		t := pushResp.Data[i]
		tickets[i] = model.PushTicket{Status: t.Status, ID: t.ID, Message: t.Message, Error: t.Details.Error}
	}
	return tickets, nil
}
