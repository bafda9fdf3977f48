package votingsystem

import (
	"log/slog"

	httpadapter "tally/contexts/governance/voting-system/adapters/http"
	"tally/contexts/governance/voting-system/adapters/memory"
	"tally/contexts/governance/voting-system/application/commands"
	"tally/contexts/governance/voting-system/application/queries"
	"tally/contexts/governance/voting-system/ports"

	"github.com/ethereum/go-ethereum/common"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Repository ports.Repository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			RegisterVoter: commands.RegisterVoterUseCase{
				Repository: deps.Repository,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				Logger:     deps.Logger,
			},
			CreateProposal: commands.CreateProposalUseCase{
				Repository: deps.Repository,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				Logger:     deps.Logger,
			},
			CastVote: commands.CastVoteUseCase{
				Repository: deps.Repository,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				Logger:     deps.Logger,
			},
			EndProposal: commands.EndProposalUseCase{
				Repository: deps.Repository,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				Logger:     deps.Logger,
			},
			TransferOwnership: commands.TransferOwnershipUseCase{
				Repository: deps.Repository,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				Logger:     deps.Logger,
			},
			Proposals: queries.ProposalQueries{Proposals: deps.Repository},
			Registry:  queries.RegistryQueries{Registry: deps.Repository},
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module over a fresh in-memory store whose
// administrator is owner. A nil clock falls back to the store's wall clock.
func NewInMemoryModule(owner common.Address, clock ports.Clock, logger *slog.Logger) Module {
	store := memory.NewStore(owner)
	if clock == nil {
		clock = store
	}
	module := NewModule(Dependencies{
		Repository: store,
		Clock:      clock,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
