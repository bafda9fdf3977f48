package commands

import (
	"context"
	"log/slog"

	application "tally/contexts/governance/voting-system/application"
	"tally/contexts/governance/voting-system/domain/entities"
	domainerrors "tally/contexts/governance/voting-system/domain/errors"
	"tally/contexts/governance/voting-system/domain/services"
	"tally/contexts/governance/voting-system/ports"

	"github.com/ethereum/go-ethereum/common"
)

type EndProposalCommand struct {
	Caller     common.Address
	ProposalID uint64
}

// EndProposalUseCase moves an active proposal to its terminal outcome once the
// voting window has closed. It succeeds at most once per proposal.
type EndProposalUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc EndProposalUseCase) Execute(ctx context.Context, cmd EndProposalCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)

	var proposal entities.Proposal
	err := uc.Repository.WithinTx(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(ctx, tx, cmd.Caller); err != nil {
			return err
		}
		var err error
		proposal, err = tx.GetProposal(ctx, cmd.ProposalID)
		if err != nil {
			return err
		}
		if proposal.VotingOpen(now) {
			return domainerrors.ErrTooEarly
		}
		if proposal.Status != entities.ProposalStatusActive {
			return domainerrors.ErrAlreadyFinalized
		}

		endedAt := now
		proposal.Status = services.Outcome(proposal.Counts())
		proposal.EndedAt = &endedAt
		if err := tx.UpdateProposal(ctx, proposal); err != nil {
			return err
		}
		return appendEvent(ctx, tx, uc.IDGen, ports.EventProposalEnded, "proposal_id", proposalKey(cmd.ProposalID), now, map[string]any{
			"proposal_id": cmd.ProposalID,
			"status":      string(proposal.Status),
			"yes_votes":   proposal.YesVotes,
			"no_votes":    proposal.NoVotes,
		})
	})
	if err != nil {
		logger.Warn("proposal finalization rejected",
			"event", "voting_proposal_end_rejected",
			"module", application.Module,
			"layer", "application",
			"caller", cmd.Caller.Hex(),
			"proposal_id", cmd.ProposalID,
			"error", err.Error(),
		)
		return entities.Proposal{}, err
	}

	logger.Info("proposal ended",
		"event", "voting_proposal_ended",
		"module", application.Module,
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"status", string(proposal.Status),
		"yes_votes", proposal.YesVotes,
		"no_votes", proposal.NoVotes,
	)
	return proposal, nil
}
