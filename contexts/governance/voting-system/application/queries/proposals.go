package queries

import (
	"context"

	"tally/contexts/governance/voting-system/domain/entities"
	domainerrors "tally/contexts/governance/voting-system/domain/errors"
	"tally/contexts/governance/voting-system/ports"

	"github.com/ethereum/go-ethereum/common"
)

const maxListLimit = 500

type ProposalQueries struct {
	Proposals ports.Reader
}

func (q ProposalQueries) GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	return q.Proposals.GetProposal(ctx, proposalID)
}

func (q ProposalQueries) GetVoteCounts(ctx context.Context, proposalID uint64) (entities.VoteCounts, error) {
	proposal, err := q.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return entities.VoteCounts{}, err
	}
	return proposal.Counts(), nil
}

// HasVoted never fails on an unknown proposal; it simply reports false.
func (q ProposalQueries) HasVoted(ctx context.Context, proposalID uint64, voter common.Address) (bool, error) {
	return q.Proposals.HasVoted(ctx, proposalID, voter)
}

func (q ProposalQueries) ProposalCount(ctx context.Context) (uint64, error) {
	return q.Proposals.CountProposals(ctx)
}

func (q ProposalQueries) ListProposals(ctx context.Context, status entities.ProposalStatus, limit int) ([]entities.Proposal, error) {
	if status != "" && !status.Valid() {
		return nil, domainerrors.ErrInvalidArgument
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	return q.Proposals.ListProposals(ctx, ports.ProposalFilter{
		Status: status,
		Limit:  limit,
	})
}

type RegistryQueries struct {
	Registry ports.Reader
}

func (q RegistryQueries) IsRegisteredVoter(ctx context.Context, voter common.Address) (bool, error) {
	return q.Registry.IsRegisteredVoter(ctx, voter)
}

func (q RegistryQueries) Owner(ctx context.Context) (common.Address, error) {
	return q.Registry.GetOwner(ctx)
}
