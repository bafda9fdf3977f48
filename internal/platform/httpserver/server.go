package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	votingsystem "tally/contexts/governance/voting-system"
	votingerrors "tally/contexts/governance/voting-system/domain/errors"
	"tally/contexts/governance/voting-system/ports"
	votinghttp "tally/contexts/governance/voting-system/transport/http"

	"github.com/ethereum/go-ethereum/common"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "tally/internal/platform/httpserver/docs"
)

const maxRequestBodyBytes = 64 << 10

type Server struct {
	mux     *http.ServeMux
	http    *http.Server
	logger  *slog.Logger
	addr    string
	voting  votingsystem.Module
	clock   ports.Clock
	maxSkew time.Duration
	nonces  *replayGuard
}

func New(
	voting votingsystem.Module,
	clock ports.Clock,
	maxSkew time.Duration,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	if maxSkew <= 0 {
		maxSkew = 5 * time.Minute
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		voting:  voting,
		clock:   clock,
		maxSkew: maxSkew,
		nonces:  newReplayGuard(defaultReplayCapacity),
	}
	s.registerRoutes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/voters", s.handleRegisterVoter)
	s.mux.HandleFunc("GET /v1/voters/{address}", s.handleIsRegisteredVoter)

	s.mux.HandleFunc("POST /v1/proposals", s.handleCreateProposal)
	s.mux.HandleFunc("GET /v1/proposals", s.handleListProposals)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}", s.handleGetProposal)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}/counts", s.handleGetVoteCounts)
	s.mux.HandleFunc("POST /v1/proposals/{proposal_id}/votes", s.handleCastVote)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}/votes/{address}", s.handleHasVoted)
	s.mux.HandleFunc("POST /v1/proposals/{proposal_id}/end", s.handleEndProposal)

	s.mux.HandleFunc("GET /v1/owner", s.handleOwner)
	s.mux.HandleFunc("POST /v1/owner/transfer", s.handleTransferOwnership)
}

func (s *Server) handleRegisterVoter(w http.ResponseWriter, r *http.Request) {
	caller, body, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req votinghttp.RegisterVoterRequest
	if !decodeBody(w, body, &req) {
		return
	}
	resp, err := s.voting.Handler.RegisterVoterHandler(r.Context(), caller, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleIsRegisteredVoter(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.IsRegisteredVoterHandler(r.Context(), r.PathValue("address"))
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	caller, body, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req votinghttp.CreateProposalRequest
	if !decodeBody(w, body, &req) {
		return
	}
	resp, err := s.voting.Handler.CreateProposalHandler(r.Context(), caller, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		value, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeVotingError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = value
	}
	resp, err := s.voting.Handler.ListProposalsHandler(r.Context(), query.Get("status"), limit)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.GetProposalHandler(r.Context(), proposalID)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVoteCounts(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.GetVoteCountsHandler(r.Context(), proposalID)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	caller, body, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req votinghttp.CastVoteRequest
	if !decodeBody(w, body, &req) {
		return
	}
	resp, err := s.voting.Handler.CastVoteHandler(r.Context(), caller, proposalID, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHasVoted(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.HasVotedHandler(r.Context(), proposalID, r.PathValue("address"))
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := parseProposalID(w, r)
	if !ok {
		return
	}
	caller, _, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	resp, err := s.voting.Handler.EndProposalHandler(r.Context(), caller, proposalID)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOwner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.OwnerHandler(r.Context())
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	caller, body, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req votinghttp.TransferOwnershipRequest
	if !decodeBody(w, body, &req) {
		return
	}
	resp, err := s.voting.Handler.TransferOwnershipHandler(r.Context(), caller, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// authenticate verifies the request signature, burns its nonce and returns
// the recovered caller together with the consumed body.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (common.Address, []byte, bool) {
	now := s.now()
	signed, err := verifySignedRequest(r, now, s.maxSkew, maxRequestBodyBytes)
	if err == nil {
		err = s.nonces.remember(signed.Caller, signed.Nonce, signed.IssuedAt.Add(s.maxSkew), now)
	}
	if err != nil {
		s.logger.Warn("signed request rejected",
			"event", "http_signature_rejected",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeVotingError(w, http.StatusUnauthorized, "invalid_signature", err.Error())
		return common.Address{}, nil, false
	}
	return signed.Caller, signed.Body, true
}

func (s *Server) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}

func (s *Server) writeVotingDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, votingerrors.ErrUnauthorized):
		writeVotingError(w, http.StatusForbidden, "unauthorized", err.Error())
	case errors.Is(err, votingerrors.ErrProposalNotFound):
		writeVotingError(w, http.StatusNotFound, "proposal_not_found", err.Error())
	case errors.Is(err, votingerrors.ErrAlreadyRegistered):
		writeVotingError(w, http.StatusConflict, "already_registered", err.Error())
	case errors.Is(err, votingerrors.ErrDuplicateVote):
		writeVotingError(w, http.StatusConflict, "duplicate_vote", err.Error())
	case errors.Is(err, votingerrors.ErrAlreadyFinalized):
		writeVotingError(w, http.StatusConflict, "already_finalized", err.Error())
	case errors.Is(err, votingerrors.ErrVotingClosed):
		writeVotingError(w, http.StatusConflict, "voting_closed", err.Error())
	case errors.Is(err, votingerrors.ErrTooEarly):
		writeVotingError(w, http.StatusConflict, "too_early", err.Error())
	case errors.Is(err, votingerrors.ErrConflict):
		writeVotingError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, votingerrors.ErrInvalidArgument):
		writeVotingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error("voting request failed",
			"event", "http_voting_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err.Error(),
		)
		writeVotingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func parseProposalID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	proposalID, err := strconv.ParseUint(r.PathValue("proposal_id"), 10, 64)
	if err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_proposal_id", "proposal_id must be a non-negative integer")
		return 0, false
	}
	return proposalID, true
}

func decodeBody(w http.ResponseWriter, body []byte, target any) bool {
	if err := json.Unmarshal(body, target); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeVotingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
