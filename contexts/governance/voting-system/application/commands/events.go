package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"tally/contexts/governance/voting-system/ports"
)

// appendEvent writes one notification through the unit-of-work outbox so the
// event commits or rolls back together with the state change it describes.
func appendEvent(
	ctx context.Context,
	tx ports.Tx,
	idGen ports.IDGenerator,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) error {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return err
	}
	data["occurred_at"] = occurredAt.UTC().Format(time.RFC3339)
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "voting-system",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             payload,
	})
}

func proposalKey(proposalID uint64) string {
	return strconv.FormatUint(proposalID, 10)
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
