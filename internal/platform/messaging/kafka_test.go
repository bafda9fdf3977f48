package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/contexts/governance/voting-system/ports"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus, err := NewKafka([]string{"localhost:9092"}, nil)
	if err != nil {
		t.Fatalf("new kafka failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 1)
	if err := bus.Subscribe(ctx, ports.EventProposalEnded, "test-cg", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := bus.Publish(ctx, ports.EventProposalCreated, ports.EventEnvelope{EventID: "other"}); err != nil {
		t.Fatalf("publish to unrelated topic failed: %v", err)
	}
	if err := bus.Publish(ctx, ports.EventProposalEnded, ports.EventEnvelope{EventID: "evt-1", EventType: ports.EventProposalEnded}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case event := <-received:
		if event.EventID != "evt-1" {
			t.Fatalf("expected evt-1, got %s", event.EventID)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestClosedBusRejectsPublish(t *testing.T) {
	bus, _ := NewKafka(nil, nil)
	if err := bus.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	err := bus.Publish(context.Background(), ports.EventVoterRegistered, ports.EventEnvelope{})
	if !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected closed bus error, got %v", err)
	}
}
