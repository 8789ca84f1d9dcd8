package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier fans one message out to a set of recipients, persisting a
// notification per user and delivering to per-user webhooks when configured.
type Notifier struct {
	store  *Store
	client *http.Client
	log    zerolog.Logger
}

// NewNotifier creates a Notifier backed by the given store.
func NewNotifier(store *Store, log zerolog.Logger) *Notifier {
	return &Notifier{
		store: store,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Notify creates a notification for each recipient, skipping duplicates,
// empty IDs, and the excluded user (normally the actor).
func (n *Notifier) Notify(ctx context.Context, recipients []string, message, exclude string) {
	seen := map[string]bool{}
	for _, userID := range recipients {
		if userID == "" || userID == exclude || seen[userID] {
			continue
		}
		seen[userID] = true

		if _, err := n.store.Create(ctx, userID, message); err != nil {
			n.log.Error().Err(err).Str("user", userID).Msg("creating notification")
			continue
		}

		url, err := n.store.webhookURL(ctx, userID)
		if err != nil || url == "" {
			continue
		}
		if err := n.sendWebhook(ctx, url, userID, message); err != nil {
			n.log.Warn().Err(err).Str("user", userID).Msg("webhook delivery failed")
		}
	}
}

// sendWebhook POSTs the notification payload to the given URL.
func (n *Notifier) sendWebhook(ctx context.Context, url, userID, message string) error {
	payload, err := json.Marshal(map[string]string{
		"user_id": userID,
		"content": message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
