package commands

import (
	"context"
	"log/slog"

	application "tally/contexts/governance/voting-system/application"
	domainerrors "tally/contexts/governance/voting-system/domain/errors"
	"tally/contexts/governance/voting-system/ports"

	"github.com/ethereum/go-ethereum/common"
)

// requireAdmin fails with ErrUnauthorized unless caller is the current
// administrator as seen by the running unit of work.
func requireAdmin(ctx context.Context, tx ports.Tx, caller common.Address) error {
	owner, err := tx.GetOwner(ctx)
	if err != nil {
		return err
	}
	if caller != owner {
		return domainerrors.ErrUnauthorized
	}
	return nil
}

type TransferOwnershipCommand struct {
	Caller   common.Address
	NewOwner common.Address
}

type TransferOwnershipResult struct {
	PreviousOwner common.Address
	NewOwner      common.Address
}

// TransferOwnershipUseCase hands administrator rights to exactly one new
// identity. The previous administrator loses every right in the same unit of
// work.
type TransferOwnershipUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc TransferOwnershipUseCase) Execute(ctx context.Context, cmd TransferOwnershipCommand) (TransferOwnershipResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	now := resolveNow(uc.Clock)

	var result TransferOwnershipResult
	err := uc.Repository.WithinTx(ctx, func(tx ports.Tx) error {
		if err := requireAdmin(ctx, tx, cmd.Caller); err != nil {
			return err
		}
		if cmd.NewOwner == (common.Address{}) {
			return domainerrors.ErrInvalidArgument
		}
		previous, err := tx.GetOwner(ctx)
		if err != nil {
			return err
		}
		if err := tx.SetOwner(ctx, cmd.NewOwner); err != nil {
			return err
		}
		result = TransferOwnershipResult{PreviousOwner: previous, NewOwner: cmd.NewOwner}
		return appendEvent(ctx, tx, uc.IDGen, ports.EventOwnershipTransferred, "new_owner", cmd.NewOwner.Hex(), now, map[string]any{
			"previous_owner": previous.Hex(),
			"new_owner":      cmd.NewOwner.Hex(),
		})
	})
	if err != nil {
		logger.Warn("ownership transfer rejected",
			"event", "voting_ownership_transfer_rejected",
			"module", application.Module,
			"layer", "application",
			"caller", cmd.Caller.Hex(),
			"new_owner", cmd.NewOwner.Hex(),
			"error", err.Error(),
		)
		return TransferOwnershipResult{}, err
	}

	logger.Info("ownership transferred",
		"event", "voting_ownership_transferred",
		"module", application.Module,
		"layer", "application",
		"previous_owner", result.PreviousOwner.Hex(),
		"new_owner", result.NewOwner.Hex(),
	)
	return result, nil
}
