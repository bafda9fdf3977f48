package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "tally/contexts/governance/voting-system/application"
	"tally/contexts/governance/voting-system/application/commands"
	"tally/contexts/governance/voting-system/application/queries"
	"tally/contexts/governance/voting-system/domain/entities"
	domainerrors "tally/contexts/governance/voting-system/domain/errors"
	httptransport "tally/contexts/governance/voting-system/transport/http"

	"github.com/ethereum/go-ethereum/common"
)

type Handler struct {
	RegisterVoter     commands.RegisterVoterUseCase
	CreateProposal    commands.CreateProposalUseCase
	CastVote          commands.CastVoteUseCase
	EndProposal       commands.EndProposalUseCase
	TransferOwnership commands.TransferOwnershipUseCase
	Proposals         queries.ProposalQueries
	Registry          queries.RegistryQueries
	Logger            *slog.Logger
}

// RegisterVoterHandler godoc
// @Summary Register a voter
// @Description Administrator-only. Makes an address permanently eligible to vote.
// @Tags voting-system
// @Accept json
// @Produce json
// @Security SignedRequest
// @Param request body httptransport.RegisterVoterRequest true "Voter address"
// @Success 201 {object} httptransport.VoterResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/voters [post]
func (h Handler) RegisterVoterHandler(
	ctx context.Context,
	caller common.Address,
	req httptransport.RegisterVoterRequest,
) (httptransport.VoterResponse, error) {
	voter, err := ParseAddress(req.Voter)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	registered, err := h.RegisterVoter.Execute(ctx, commands.RegisterVoterCommand{
		Caller: caller,
		Voter:  voter,
	})
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return httptransport.VoterResponse{
		Voter:      registered.Address.Hex(),
		Registered: registered.Registered,
	}, nil
}

// IsRegisteredVoterHandler godoc
// @Summary Check voter registration
// @Tags voting-system
// @Produce json
// @Param address path string true "Voter address"
// @Success 200 {object} httptransport.VoterResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/voters/{address} [get]
func (h Handler) IsRegisteredVoterHandler(ctx context.Context, address string) (httptransport.VoterResponse, error) {
	voter, err := ParseAddress(address)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	registered, err := h.Registry.IsRegisteredVoter(ctx, voter)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return httptransport.VoterResponse{
		Voter:      voter.Hex(),
		Registered: registered,
	}, nil
}

// CreateProposalHandler godoc
// @Summary Create a proposal
// @Description Administrator-only. Opens a proposal whose voting window lasts duration_seconds.
// @Tags voting-system
// @Accept json
// @Produce json
// @Security SignedRequest
// @Param request body httptransport.CreateProposalRequest true "Proposal"
// @Success 201 {object} httptransport.ProposalResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Router /v1/proposals [post]
func (h Handler) CreateProposalHandler(
	ctx context.Context,
	caller common.Address,
	req httptransport.CreateProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.CreateProposal.Execute(ctx, commands.CreateProposalCommand{
		Caller:          caller,
		Title:           req.Title,
		Description:     req.Description,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

// ListProposalsHandler godoc
// @Summary List proposals
// @Tags voting-system
// @Produce json
// @Param status query string false "active, passed or rejected"
// @Param limit query int false "Page size (max 500)"
// @Success 200 {object} httptransport.ListProposalsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/proposals [get]
func (h Handler) ListProposalsHandler(ctx context.Context, status string, limit int) (httptransport.ListProposalsResponse, error) {
	items, err := h.Proposals.ListProposals(ctx, entities.ProposalStatus(strings.ToLower(strings.TrimSpace(status))), limit)
	if err != nil {
		return httptransport.ListProposalsResponse{}, err
	}
	count, err := h.Proposals.ProposalCount(ctx)
	if err != nil {
		return httptransport.ListProposalsResponse{}, err
	}
	resp := httptransport.ListProposalsResponse{
		Count: count,
		Items: make([]httptransport.ProposalResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, mapProposal(item))
	}
	return resp, nil
}

// GetProposalHandler godoc
// @Summary Get a proposal
// @Tags voting-system
// @Produce json
// @Param proposal_id path int true "Proposal id"
// @Success 200 {object} httptransport.ProposalResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id} [get]
func (h Handler) GetProposalHandler(ctx context.Context, proposalID uint64) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

// GetVoteCountsHandler godoc
// @Summary Get vote counts
// @Tags voting-system
// @Produce json
// @Param proposal_id path int true "Proposal id"
// @Success 200 {object} httptransport.VoteCountsResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/counts [get]
func (h Handler) GetVoteCountsHandler(ctx context.Context, proposalID uint64) (httptransport.VoteCountsResponse, error) {
	counts, err := h.Proposals.GetVoteCounts(ctx, proposalID)
	if err != nil {
		return httptransport.VoteCountsResponse{}, err
	}
	return httptransport.VoteCountsResponse{
		ProposalID: proposalID,
		Yes:        counts.Yes,
		No:         counts.No,
	}, nil
}

// CastVoteHandler godoc
// @Summary Cast a ballot
// @Description Registered voters only; one ballot per proposal while the window is open.
// @Tags voting-system
// @Accept json
// @Produce json
// @Security SignedRequest
// @Param proposal_id path int true "Proposal id"
// @Param request body httptransport.CastVoteRequest true "Ballot"
// @Success 200 {object} httptransport.VoteCountsResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/votes [post]
func (h Handler) CastVoteHandler(
	ctx context.Context,
	caller common.Address,
	proposalID uint64,
	req httptransport.CastVoteRequest,
) (httptransport.VoteCountsResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("cast vote request received",
		"event", "http_cast_vote_received",
		"module", application.Module,
		"layer", "transport",
		"proposal_id", proposalID,
		"voter", caller.Hex(),
	)
	proposal, err := h.CastVote.Execute(ctx, commands.CastVoteCommand{
		Caller:     caller,
		ProposalID: proposalID,
		Support:    req.Support,
	})
	if err != nil {
		return httptransport.VoteCountsResponse{}, err
	}
	return httptransport.VoteCountsResponse{
		ProposalID: proposal.ProposalID,
		Yes:        proposal.YesVotes,
		No:         proposal.NoVotes,
	}, nil
}

// HasVotedHandler godoc
// @Summary Check whether an address voted
// @Tags voting-system
// @Produce json
// @Param proposal_id path int true "Proposal id"
// @Param address path string true "Voter address"
// @Success 200 {object} httptransport.HasVotedResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/votes/{address} [get]
func (h Handler) HasVotedHandler(ctx context.Context, proposalID uint64, address string) (httptransport.HasVotedResponse, error) {
	voter, err := ParseAddress(address)
	if err != nil {
		return httptransport.HasVotedResponse{}, err
	}
	voted, err := h.Proposals.HasVoted(ctx, proposalID, voter)
	if err != nil {
		return httptransport.HasVotedResponse{}, err
	}
	return httptransport.HasVotedResponse{
		ProposalID: proposalID,
		Voter:      voter.Hex(),
		HasVoted:   voted,
	}, nil
}

// EndProposalHandler godoc
// @Summary Finalize a proposal
// @Description Administrator-only. Allowed once, after the deadline.
// @Tags voting-system
// @Produce json
// @Security SignedRequest
// @Param proposal_id path int true "Proposal id"
// @Success 200 {object} httptransport.ProposalResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /v1/proposals/{proposal_id}/end [post]
func (h Handler) EndProposalHandler(ctx context.Context, caller common.Address, proposalID uint64) (httptransport.ProposalResponse, error) {
	proposal, err := h.EndProposal.Execute(ctx, commands.EndProposalCommand{
		Caller:     caller,
		ProposalID: proposalID,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal), nil
}

// OwnerHandler godoc
// @Summary Current administrator
// @Tags voting-system
// @Produce json
// @Success 200 {object} httptransport.OwnerResponse
// @Router /v1/owner [get]
func (h Handler) OwnerHandler(ctx context.Context) (httptransport.OwnerResponse, error) {
	owner, err := h.Registry.Owner(ctx)
	if err != nil {
		return httptransport.OwnerResponse{}, err
	}
	return httptransport.OwnerResponse{Owner: owner.Hex()}, nil
}

// TransferOwnershipHandler godoc
// @Summary Transfer administrator rights
// @Tags voting-system
// @Accept json
// @Produce json
// @Security SignedRequest
// @Param request body httptransport.TransferOwnershipRequest true "New owner"
// @Success 200 {object} httptransport.TransferOwnershipResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Router /v1/owner/transfer [post]
func (h Handler) TransferOwnershipHandler(
	ctx context.Context,
	caller common.Address,
	req httptransport.TransferOwnershipRequest,
) (httptransport.TransferOwnershipResponse, error) {
	newOwner, err := ParseAddress(req.NewOwner)
	if err != nil {
		return httptransport.TransferOwnershipResponse{}, err
	}
	result, err := h.TransferOwnership.Execute(ctx, commands.TransferOwnershipCommand{
		Caller:   caller,
		NewOwner: newOwner,
	})
	if err != nil {
		return httptransport.TransferOwnershipResponse{}, err
	}
	return httptransport.TransferOwnershipResponse{
		PreviousOwner: result.PreviousOwner.Hex(),
		NewOwner:      result.NewOwner.Hex(),
	}, nil
}

// ParseAddress accepts 0x-prefixed or bare 40-digit hex addresses.
func ParseAddress(raw string) (common.Address, error) {
	value := strings.TrimSpace(raw)
	if !common.IsHexAddress(value) {
		return common.Address{}, domainerrors.ErrInvalidArgument
	}
	return common.HexToAddress(value), nil
}

func mapProposal(proposal entities.Proposal) httptransport.ProposalResponse {
	resp := httptransport.ProposalResponse{
		ProposalID:  proposal.ProposalID,
		Title:       proposal.Title,
		Description: proposal.Description,
		Deadline:    proposal.Deadline.UTC().Format(time.RFC3339),
		YesVotes:    proposal.YesVotes,
		NoVotes:     proposal.NoVotes,
		Status:      string(proposal.Status),
		CreatedAt:   proposal.CreatedAt.UTC().Format(time.RFC3339),
	}
	if proposal.EndedAt != nil {
		endedAt := proposal.EndedAt.UTC().Format(time.RFC3339)
		resp.EndedAt = &endedAt
	}
	return resp
}
