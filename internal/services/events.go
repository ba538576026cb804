package services

import (
	"context"
	"log/slog"
	"strings"

	"impegni/internal/amqp"
	"impegni/internal/core"
)

// EventPublisher announces committed changes. Publication is best effort:
// the change is already stored when Publish runs.
type EventPublisher interface {
	Publish(ctx context.Context, e *amqp.CommitmentEvent) error
}

func publishEvent(ctx context.Context, pub EventPublisher, e *amqp.CommitmentEvent) {
	if pub == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping event", "type", e.Type)
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		// the change is stored; only the notification is lost
		slog.WarnContext(ctx, "Failed to publish commitment event",
			"type", e.Type,
			"owner", e.Owner,
			"entity_id", e.EntityID,
			"error", err)
	}
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return core.ErrEmptyOwner
	}
	return nil
}
