package workers

import (
	"context"
	"log/slog"

	application "tally/contexts/governance/voting-system/application"
	"tally/contexts/governance/voting-system/ports"
)

// NotificationLogger is the default external observer: it subscribes to every
// voting topic and writes each notification to the structured log.
type NotificationLogger struct {
	Subscriber    ports.EventSubscriber
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c NotificationLogger) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = "voting-system-notification-log-cg"
	}
	for _, topic := range ports.Topics {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.Handle); err != nil {
			return err
		}
	}
	return nil
}

func (c NotificationLogger) Handle(_ context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	logger.Info("voting notification received",
		"event", "voting_notification_received",
		"module", application.Module,
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"data", string(event.Data),
	)
	return nil
}
