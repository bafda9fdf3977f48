package ports

import (
	"context"
	"encoding/json"
	"time"

	"tally/contexts/governance/voting-system/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// Reader exposes consistent point-in-time reads of voting state.
type Reader interface {
	GetOwner(ctx context.Context) (common.Address, error)
	IsRegisteredVoter(ctx context.Context, voter common.Address) (bool, error)
	CountProposals(ctx context.Context) (uint64, error)
	GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error)
	HasVoted(ctx context.Context, proposalID uint64, voter common.Address) (bool, error)
	ListProposals(ctx context.Context, filter ProposalFilter) ([]entities.Proposal, error)
}

// Tx is the write side of one unit of work. Nothing written through it is
// observable by other callers until the surrounding WithinTx returns nil.
type Tx interface {
	Reader
	SetOwner(ctx context.Context, owner common.Address) error
	AddVoter(ctx context.Context, voter entities.Voter) error
	InsertProposal(ctx context.Context, proposal entities.Proposal) error
	UpdateProposal(ctx context.Context, proposal entities.Proposal) error
	InsertBallot(ctx context.Context, ballot entities.Ballot) error
	OutboxWriter
}

type Repository interface {
	Reader
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type ProposalFilter struct {
	Status         entities.ProposalStatus
	DeadlineBefore *time.Time
	Limit          int
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Topics lists every notification the voting system emits.
var Topics = []string{
	EventVoterRegistered,
	EventProposalCreated,
	EventProposalVoted,
	EventProposalEnded,
	EventOwnershipTransferred,
}

const (
	EventVoterRegistered      = "voter.registered"
	EventProposalCreated      = "proposal.created"
	EventProposalVoted        = "proposal.voted"
	EventProposalEnded        = "proposal.ended"
	EventOwnershipTransferred = "ownership.transferred"
)
