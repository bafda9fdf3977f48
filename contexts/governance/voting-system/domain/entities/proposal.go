package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type ProposalStatus string

const (
	ProposalStatusActive   ProposalStatus = "active"
	ProposalStatusPassed   ProposalStatus = "passed"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// Terminal reports whether no further votes or finalization are accepted.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalStatusPassed || s == ProposalStatusRejected
}

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalStatusActive, ProposalStatusPassed, ProposalStatusRejected:
		return true
	default:
		return false
	}
}

// Proposal is an immutable snapshot of one proposal. Ballots are kept by the
// repository and never exposed as a list.
type Proposal struct {
	ProposalID  uint64
	Title       string
	Description string
	Deadline    time.Time
	YesVotes    uint64
	NoVotes     uint64
	Status      ProposalStatus
	CreatedAt   time.Time
	EndedAt     *time.Time
}

func (p Proposal) Counts() VoteCounts {
	return VoteCounts{Yes: p.YesVotes, No: p.NoVotes}
}

// VotingOpen reports whether the time window still accepts ballots. It does
// not look at Status.
func (p Proposal) VotingOpen(now time.Time) bool {
	return now.Before(p.Deadline)
}

type VoteCounts struct {
	Yes uint64
	No  uint64
}

func (c VoteCounts) Total() uint64 {
	return c.Yes + c.No
}

type Voter struct {
	Address      common.Address
	Registered   bool
	RegisteredAt time.Time
}

type Ballot struct {
	ProposalID uint64
	Voter      common.Address
	Support    bool
	CastAt     time.Time
}
