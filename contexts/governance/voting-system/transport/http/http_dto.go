package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterVoterRequest struct {
	Voter string `json:"voter"`
}

type VoterResponse struct {
	Voter      string `json:"voter"`
	Registered bool   `json:"registered"`
}

type CreateProposalRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	DurationSeconds uint64 `json:"duration_seconds"`
}

type ProposalResponse struct {
	ProposalID  uint64  `json:"proposal_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Deadline    string  `json:"deadline"`
	YesVotes    uint64  `json:"yes_votes"`
	NoVotes     uint64  `json:"no_votes"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	EndedAt     *string `json:"ended_at,omitempty"`
}

type ListProposalsResponse struct {
	Count uint64             `json:"count"`
	Items []ProposalResponse `json:"items"`
}

type VoteCountsResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Yes        uint64 `json:"yes"`
	No         uint64 `json:"no"`
}

type CastVoteRequest struct {
	Support bool `json:"support"`
}

type HasVotedResponse struct {
	ProposalID uint64 `json:"proposal_id"`
	Voter      string `json:"voter"`
	HasVoted   bool   `json:"has_voted"`
}

type OwnerResponse struct {
	Owner string `json:"owner"`
}

type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

type TransferOwnershipResponse struct {
	PreviousOwner string `json:"previous_owner"`
	NewOwner      string `json:"new_owner"`
}
