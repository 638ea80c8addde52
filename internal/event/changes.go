package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/livedoc/livedoc/internal/logging"
)

// LogChanges subscribes to the hub's watermill mirror and logs every change
// until ctx is cancelled or the hub is closed. The subscription is
// established before LogChanges returns; logging happens in the background.
func LogChanges(ctx context.Context, h *Hub) error {
	messages, err := h.PubSub().Subscribe(ctx, ChangesTopic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", ChangesTopic, err)
	}

	go func() {
		for msg := range messages {
			var ev ChangeEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				logging.Warn().Err(err).Str("message", msg.UUID).Msg("malformed change event")
				msg.Ack()
				continue
			}
			logging.Info().
				Str("path", ev.Path).
				Str("kind", string(ev.Kind)).
				Time("occurredAt", ev.OccurredAt).
				Msg("file modified")
			msg.Ack()
		}
	}()

	return nil
}
