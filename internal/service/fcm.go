package service

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"adsboard/internal/model"
)

// FCMClient sends push notifications through Firebase Cloud Messaging.
//
// Credentials come from a service account:
// Project Settings -> Service Accounts -> Generate New Private Key
type FCMClient struct {
	client *messaging.Client
	log    *zap.Logger
}

// fcmChunkSize is the SendEach per-call message limit.
const fcmChunkSize = 500

// NewFCMClient creates a new FCM client from environment credentials.
// The private key may carry literal "\n" sequences as stored in .env files.
func NewFCMClient(ctx context.Context, projectID, clientEmail, privateKey string, log *zap.Logger) (*FCMClient, error) {
	if projectID == "" || clientEmail == "" || privateKey == "" {
		return nil, fmt.Errorf("missing FCM configuration")
	}
	privateKey = strings.ReplaceAll(privateKey, "\\n", "\n")

	credsJSON := fmt.Sprintf(`{
		"type": "service_account",
		"project_id": %q,
		"private_key": %q,
		"client_email": %q,
		"token_uri": "https://oauth2.googleapis.com/token"
	}`, projectID, privateKey, clientEmail)

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsJSON([]byte(credsJSON)))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log = log.Named("fcm")
	log.Info("fcm initialized", zap.String("project_id", projectID))
	return &FCMClient{client: client, log: log}, nil
}

// IsValidToken accepts any non-Expo registration token.
func (c *FCMClient) IsValidToken(token string) bool {
	token = strings.TrimSpace(token)
	return token != "" && !strings.Contains(token, "PushToken[")
}

func (c *FCMClient) SendBatch(ctx context.Context, messages []model.PushMessage) ([]model.PushTicket, error) {
	tickets := make([]model.PushTicket, 0, len(messages))
	for start := 0; start < len(messages); start += fcmChunkSize {
		end := min(start+fcmChunkSize, len(messages))

		batch := make([]*messaging.Message, 0, end-start)
		for _, m := range messages[start:end] {
			batch = append(batch, &messaging.Message{
				Token:        m.To,
				Notification: &messaging.Notification{Title: m.Title, Body: m.Body},
				Data:         m.Data,
				Android: &messaging.AndroidConfig{
					Priority:     "high",
					Notification: &messaging.AndroidNotification{Sound: "default"},
				},
				APNS: &messaging.APNSConfig{
					Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
				},
			})
		}

		resp, err := c.client.SendEach(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("send each: %w", err)
		}
		for _, r := range resp.Responses {
			if r.Success {
				tickets = append(tickets, model.PushTicket{Status: model.PushStatusOK, ID: r.MessageID})
				continue
			}
			t := model.PushTicket{Status: model.PushStatusError}
			if r.Error != nil {
				t.Message = r.Error.Error()
			}
			tickets = append(tickets, t)
		}
		c.log.Info("fcm batch sent", zap.Int("messages", len(batch)),
			zap.Int("ok", resp.SuccessCount), zap.Int("failed", resp.FailureCount))
	}
	return tickets, nil
}
