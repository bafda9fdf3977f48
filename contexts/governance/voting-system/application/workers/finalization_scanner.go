package workers

import (
	"context"
	"log/slog"
	"time"

	application "tally/contexts/governance/voting-system/application"
	"tally/contexts/governance/voting-system/domain/entities"
	"tally/contexts/governance/voting-system/ports"
)

// FinalizationScanner sweeps active proposals whose voting window has closed.
// Finalization stays an administrator action, so the sweep only reports them.
type FinalizationScanner struct {
	Proposals ports.Reader
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (j FinalizationScanner) RunOnce(ctx context.Context) ([]entities.Proposal, error) {
	logger := application.ResolveLogger(j.Logger)
	now := time.Now().UTC()
	if j.Clock != nil {
		now = j.Clock.Now().UTC()
	}

	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}

	// A deadline equal to now already closes voting, so the bound is inclusive.
	cutoff := now.Add(time.Nanosecond)
	awaiting, err := j.Proposals.ListProposals(ctx, ports.ProposalFilter{
		Status:         entities.ProposalStatusActive,
		DeadlineBefore: &cutoff,
		Limit:          limit,
	})
	if err != nil {
		logger.Error("finalization sweep failed",
			"event", "voting_finalization_sweep_failed",
			"module", application.Module,
			"layer", "worker",
			"error", err.Error(),
		)
		return nil, err
	}
	for _, proposal := range awaiting {
		logger.Warn("proposal awaiting finalization",
			"event", "voting_proposal_awaiting_finalization",
			"module", application.Module,
			"layer", "worker",
			"proposal_id", proposal.ProposalID,
			"deadline", proposal.Deadline.Format(time.RFC3339),
			"overdue", now.Sub(proposal.Deadline).String(),
		)
	}
	return awaiting, nil
}
