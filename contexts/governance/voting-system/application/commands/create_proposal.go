package commands

import (
	"context"
	"log/slog"
	"math"
	"time"

	application "tally/contexts/governance/voting-system/application"
	"tally/contexts/governance/voting-system/domain/entities"
	domainerrors "tally/contexts/governance/voting-system/domain/errors"
	"tally/contexts/governance/voting-system/ports"

	"github.com/ethereum/go-ethereum/common"
)

// MaxDurationSeconds is the longest voting window representable as a
// time.Duration.
const MaxDurationSeconds = uint64(math.MaxInt64 / int64(time.Second))

type CreateProposalCommand struct {
	Caller          common.Address
	Title           string
	Description     string
	DurationSeconds uint64
}

// CreateProposalUseCase opens a new proposal under the next sequential id.
type CreateProposalUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc CreateProposalUseCase) Execute(ctx context.Context, cmd CreateProposalCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)

	var proposal entities.Proposal
	err := uc.Repository.WithinTx(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(ctx, tx, cmd.Caller); err != nil {
			return err
		}
		// Zero-length windows would open already-closed proposals.
		if cmd.DurationSeconds == 0 || cmd.DurationSeconds > MaxDurationSeconds {
			return domainerrors.ErrInvalidArgument
		}
		nextID, err := tx.CountProposals(ctx)
		if err != nil {
			return err
		}
		proposal = entities.Proposal{
			ProposalID:  nextID,
			Title:       cmd.Title,
			Description: cmd.Description,
			Deadline:    now.Add(time.Duration(cmd.DurationSeconds) * time.Second),
			Status:      entities.ProposalStatusActive,
			CreatedAt:   now,
		}
		if err := tx.InsertProposal(ctx, proposal); err != nil {
			return err
		}
		return appendEvent(ctx, tx, uc.IDGen, ports.EventProposalCreated, "proposal_id", proposalKey(nextID), now, map[string]any{
			"proposal_id": nextID,
			"title":       proposal.Title,
			"description": proposal.Description,
			"deadline":    proposal.Deadline.Format(time.RFC3339),
		})
	})
	if err != nil {
		logger.Warn("proposal creation rejected",
			"event", "voting_proposal_create_rejected",
			"module", application.Module,
			"layer", "application",
			"caller", cmd.Caller.Hex(),
			"duration_seconds", cmd.DurationSeconds,
			"error", err.Error(),
		)
		return entities.Proposal{}, err
	}

	logger.Info("proposal created",
		"event", "voting_proposal_created",
		"module", application.Module,
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"deadline", proposal.Deadline.Format(time.RFC3339),
	)
	return proposal, nil
}
