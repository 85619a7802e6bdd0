package email

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// WebhookResult summarises one processed provider event batch.
type WebhookResult struct {
	Processed int `json:"processed"`
	Matched   int `json:"matched"`
	Skipped   int `json:"skipped"`
}

// eventStatus maps provider event names to stored statuses. Events
// without a mapping (opens, clicks, processed) are skipped.
func eventStatus(event string) (string, bool) {
	switch event {
	case "delivered":
		return core.EmailStatusDelivered, true
	case "bounce", "blocked":
		return core.EmailStatusBounced, true
	case "dropped", "deferred":
		return core.EmailStatusFailed, true
	default:
		return "", false
	}
}

// ProcessWebhook applies a SendGrid event batch to stored notification
// records. The payload is a JSON array of event objects; malformed
// payloads and events for unknown message ids are skipped, never errors,
// so the provider does not retry them forever.
func ProcessWebhook(ctx context.Context, store NotificationStore, payload []byte) WebhookResult {
	var result WebhookResult

	parsed := gjson.ParseBytes(payload)
	if !parsed.IsArray() {
		slog.Warn("email webhook payload is not an array, ignoring")
		return result
	}

	for _, event := range parsed.Array() {
		result.Processed++

		status, ok := eventStatus(event.Get("event").String())
		if !ok {
			result.Skipped++
			continue
		}

		providerID := normalizeMessageID(event.Get("sg_message_id").String())
		if providerID == "" {
			result.Skipped++
			continue
		}

		matched, err := store.UpdateStatusByProviderID(ctx, providerID, status)
		if err != nil {
			slog.Warn("failed to apply email webhook event",
				"provider_id", providerID,
				"status", status,
				"error", err,
			)
			result.Skipped++
			continue
		}
		if !matched {
			result.Skipped++
			continue
		}
		result.Matched++
	}

	return result
}

// normalizeMessageID strips the filter-id suffix SendGrid appends to the
// message id in events ("<id>.filterNNN...").
func normalizeMessageID(id string) string {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return id
}
