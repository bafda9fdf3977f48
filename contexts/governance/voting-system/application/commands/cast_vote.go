package commands

import (
	"context"
	"log/slog"

	application "tally/contexts/governance/voting-system/application"
	"tally/contexts/governance/voting-system/domain/entities"
	domainerrors "tally/contexts/governance/voting-system/domain/errors"
	"tally/contexts/governance/voting-system/ports"

	"github.com/ethereum/go-ethereum/common"
)

type CastVoteCommand struct {
	Caller     common.Address
	ProposalID uint64
	Support    bool
}

// CastVoteUseCase records one ballot per registered voter per proposal.
type CastVoteUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

// Execute validates in a fixed order: proposal existence, voter eligibility,
// time window, repeat ballot. The window check ignores status, so a proposal
// past its deadline rejects votes even before it is finalized.
func (uc CastVoteUseCase) Execute(ctx context.Context, cmd CastVoteCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)

	var proposal entities.Proposal
	err := uc.Repository.WithinTx(ctx, func(tx ports.Tx) error {
		var err error
		proposal, err = tx.GetProposal(ctx, cmd.ProposalID)
		if err != nil {
			return err
		}
		registered, err := tx.IsRegisteredVoter(ctx, cmd.Caller)
		if err != nil {
			return err
		}
		if !registered {
			return domainerrors.ErrNotRegisteredVoter
		}
		if !proposal.VotingOpen(now) {
			return domainerrors.ErrVotingClosed
		}
		voted, err := tx.HasVoted(ctx, cmd.ProposalID, cmd.Caller)
		if err != nil {
			return err
		}
		if voted {
			return domainerrors.ErrDuplicateVote
		}

		if err := tx.InsertBallot(ctx, entities.Ballot{
			ProposalID: cmd.ProposalID,
			Voter:      cmd.Caller,
			Support:    cmd.Support,
			CastAt:     now,
		}); err != nil {
			return err
		}
		if cmd.Support {
			proposal.YesVotes++
		} else {
			proposal.NoVotes++
		}
		if err := tx.UpdateProposal(ctx, proposal); err != nil {
			return err
		}
		return appendEvent(ctx, tx, uc.IDGen, ports.EventProposalVoted, "proposal_id", proposalKey(cmd.ProposalID), now, map[string]any{
			"proposal_id": cmd.ProposalID,
			"voter":       cmd.Caller.Hex(),
			"support":     cmd.Support,
		})
	})
	if err != nil {
		logger.Warn("vote rejected",
			"event", "voting_vote_rejected",
			"module", application.Module,
			"layer", "application",
			"proposal_id", cmd.ProposalID,
			"voter", cmd.Caller.Hex(),
			"error", err.Error(),
		)
		return entities.Proposal{}, err
	}

	logger.Info("vote cast",
		"event", "voting_vote_cast",
		"module", application.Module,
		"layer", "application",
		"proposal_id", cmd.ProposalID,
		"voter", cmd.Caller.Hex(),
		"support", cmd.Support,
		"yes_votes", proposal.YesVotes,
		"no_votes", proposal.NoVotes,
	)
	return proposal, nil
}
