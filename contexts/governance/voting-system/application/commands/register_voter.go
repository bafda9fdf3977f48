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

type RegisterVoterCommand struct {
	Caller common.Address
	Voter  common.Address
}

// RegisterVoterUseCase makes an identity permanently eligible to vote.
// Registration is never reversible.
type RegisterVoterUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc RegisterVoterUseCase) Execute(ctx context.Context, cmd RegisterVoterCommand) (entities.Voter, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)

	voter := entities.Voter{
		Address:      cmd.Voter,
		Registered:   true,
		RegisteredAt: now,
	}
	err := uc.Repository.WithinTx(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(ctx, tx, cmd.Caller); err != nil {
			return err
		}
		registered, err := tx.IsRegisteredVoter(ctx, cmd.Voter)
		if err != nil {
			return err
		}
		if registered {
			return domainerrors.ErrAlreadyRegistered
		}
		if err := tx.AddVoter(ctx, voter); err != nil {
			return err
		}
		return appendEvent(ctx, tx, uc.IDGen, ports.EventVoterRegistered, "voter", cmd.Voter.Hex(), now, map[string]any{
			"voter": cmd.Voter.Hex(),
		})
	})
	if err != nil {
		logger.Warn("voter registration rejected",
			"event", "voting_voter_register_rejected",
			"module", application.Module,
			"layer", "application",
			"caller", cmd.Caller.Hex(),
			"voter", cmd.Voter.Hex(),
			"error", err.Error(),
		)
		return entities.Voter{}, err
	}

	logger.Info("voter registered",
		"event", "voting_voter_registered",
		"module", application.Module,
		"layer", "application",
		"voter", cmd.Voter.Hex(),
	)
	return voter, nil
}
