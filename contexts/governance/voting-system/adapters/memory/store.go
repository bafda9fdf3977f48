package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"tally/contexts/governance/voting-system/domain/entities"
	domainerrors "tally/contexts/governance/voting-system/domain/errors"
	"tally/contexts/governance/voting-system/ports"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

type ballotKey struct {
	proposalID uint64
	voter      common.Address
}

type outboxRecord struct {
	message   ports.OutboxMessage
	seq       uint64
	published bool
}

// Store keeps the whole voting state behind one lock. A unit of work holds the
// write lock for its full duration and buffers writes until it succeeds.
type Store struct {
	mu sync.RWMutex

	owner     common.Address
	voters    map[common.Address]entities.Voter
	proposals []entities.Proposal
	ballots   map[ballotKey]entities.Ballot
	outbox    map[string]outboxRecord
	outboxSeq uint64
}

func NewStore(owner common.Address) *Store {
	return &Store{
		owner:   owner,
		voters:  make(map[common.Address]entities.Voter),
		ballots: make(map[ballotKey]entities.Ballot),
		outbox:  make(map[string]outboxRecord),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &storeTx{
		store:   s,
		voters:  make(map[common.Address]entities.Voter),
		updated: make(map[uint64]entities.Proposal),
		ballots: make(map[ballotKey]entities.Ballot),
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *Store) GetOwner(_ context.Context) (common.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner, nil
}

func (s *Store) IsRegisteredVoter(_ context.Context, voter common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voters[voter].Registered, nil
}

func (s *Store) CountProposals(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.proposals)), nil
}

func (s *Store) GetProposal(_ context.Context, proposalID uint64) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if proposalID >= uint64(len(s.proposals)) {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return cloneProposal(s.proposals[proposalID]), nil
}

func (s *Store) HasVoted(_ context.Context, proposalID uint64, voter common.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ballots[ballotKey{proposalID: proposalID, voter: voter}]
	return ok, nil
}

func (s *Store) ListProposals(_ context.Context, filter ports.ProposalFilter) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterProposals(s.proposals, filter), nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq < rows[j].seq
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

type storeTx struct {
	store *Store

	owner     *common.Address
	voters    map[common.Address]entities.Voter
	inserted  []entities.Proposal
	updated   map[uint64]entities.Proposal
	ballots   map[ballotKey]entities.Ballot
	envelopes []ports.EventEnvelope
}

func (t *storeTx) GetOwner(_ context.Context) (common.Address, error) {
	if t.owner != nil {
		return *t.owner, nil
	}
	return t.store.owner, nil
}

func (t *storeTx) IsRegisteredVoter(_ context.Context, voter common.Address) (bool, error) {
	if item, ok := t.voters[voter]; ok {
		return item.Registered, nil
	}
	return t.store.voters[voter].Registered, nil
}

func (t *storeTx) CountProposals(_ context.Context) (uint64, error) {
	return uint64(len(t.store.proposals) + len(t.inserted)), nil
}

func (t *storeTx) GetProposal(_ context.Context, proposalID uint64) (entities.Proposal, error) {
	if item, ok := t.updated[proposalID]; ok {
		return cloneProposal(item), nil
	}
	committed := uint64(len(t.store.proposals))
	switch {
	case proposalID < committed:
		return cloneProposal(t.store.proposals[proposalID]), nil
	case proposalID < committed+uint64(len(t.inserted)):
		return cloneProposal(t.inserted[proposalID-committed]), nil
	default:
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
}

func (t *storeTx) HasVoted(_ context.Context, proposalID uint64, voter common.Address) (bool, error) {
	key := ballotKey{proposalID: proposalID, voter: voter}
	if _, ok := t.ballots[key]; ok {
		return true, nil
	}
	_, ok := t.store.ballots[key]
	return ok, nil
}

func (t *storeTx) ListProposals(ctx context.Context, filter ports.ProposalFilter) ([]entities.Proposal, error) {
	count, _ := t.CountProposals(ctx)
	merged := make([]entities.Proposal, 0, count)
	for id := uint64(0); id < count; id++ {
		item, err := t.GetProposal(ctx, id)
		if err != nil {
			return nil, err
		}
		merged = append(merged, item)
	}
	return filterProposals(merged, filter), nil
}

func (t *storeTx) SetOwner(_ context.Context, owner common.Address) error {
	t.owner = &owner
	return nil
}

func (t *storeTx) AddVoter(_ context.Context, voter entities.Voter) error {
	if t.store.voters[voter.Address].Registered {
		return domainerrors.ErrAlreadyRegistered
	}
	if _, ok := t.voters[voter.Address]; ok {
		return domainerrors.ErrAlreadyRegistered
	}
	t.voters[voter.Address] = voter
	return nil
}

func (t *storeTx) InsertProposal(ctx context.Context, proposal entities.Proposal) error {
	next, _ := t.CountProposals(ctx)
	if proposal.ProposalID != next {
		return domainerrors.ErrConflict
	}
	t.inserted = append(t.inserted, cloneProposal(proposal))
	return nil
}

func (t *storeTx) UpdateProposal(ctx context.Context, proposal entities.Proposal) error {
	if _, err := t.GetProposal(ctx, proposal.ProposalID); err != nil {
		return err
	}
	committed := uint64(len(t.store.proposals))
	if proposal.ProposalID >= committed {
		t.inserted[proposal.ProposalID-committed] = cloneProposal(proposal)
		return nil
	}
	t.updated[proposal.ProposalID] = cloneProposal(proposal)
	return nil
}

func (t *storeTx) InsertBallot(ctx context.Context, ballot entities.Ballot) error {
	voted, _ := t.HasVoted(ctx, ballot.ProposalID, ballot.Voter)
	if voted {
		return domainerrors.ErrDuplicateVote
	}
	t.ballots[ballotKey{proposalID: ballot.ProposalID, voter: ballot.Voter}] = ballot
	return nil
}

func (t *storeTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	t.envelopes = append(t.envelopes, envelope)
	return nil
}

// commit runs under the store write lock held by WithinTx. Outbox rows are
// encoded before any state is touched so a failure leaves nothing applied.
func (t *storeTx) commit() error {
	s := t.store
	rows := make([]outboxRecord, 0, len(t.envelopes))
	for _, envelope := range t.envelopes {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		outboxID := strings.TrimSpace(envelope.EventID)
		if outboxID == "" {
			outboxID = uuid.NewString()
		}
		if existing, ok := s.outbox[outboxID]; ok && !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		createdAt := envelope.OccurredAt.UTC()
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		rows = append(rows, outboxRecord{
			message: ports.OutboxMessage{
				OutboxID:     outboxID,
				EventType:    strings.TrimSpace(envelope.EventType),
				PartitionKey: strings.TrimSpace(envelope.PartitionKey),
				Payload:      payload,
				CreatedAt:    createdAt,
			},
		})
	}

	if t.owner != nil {
		s.owner = *t.owner
	}
	for address, voter := range t.voters {
		s.voters[address] = voter
	}
	for id, proposal := range t.updated {
		s.proposals[id] = proposal
	}
	s.proposals = append(s.proposals, t.inserted...)
	for key, ballot := range t.ballots {
		s.ballots[key] = ballot
	}
	for _, row := range rows {
		if _, ok := s.outbox[row.message.OutboxID]; ok {
			continue
		}
		s.outboxSeq++
		row.seq = s.outboxSeq
		s.outbox[row.message.OutboxID] = row
	}
	return nil
}

func filterProposals(items []entities.Proposal, filter ports.ProposalFilter) []entities.Proposal {
	out := make([]entities.Proposal, 0)
	for _, item := range items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.DeadlineBefore != nil && !item.Deadline.Before(*filter.DeadlineBefore) {
			continue
		}
		out = append(out, cloneProposal(item))
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

func cloneProposal(p entities.Proposal) entities.Proposal {
	if p.EndedAt != nil {
		endedAt := *p.EndedAt
		p.EndedAt = &endedAt
	}
	return p
}

var _ ports.Repository = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
