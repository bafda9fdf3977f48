package services

import "tally/contexts/governance/voting-system/domain/entities"

// Outcome resolves the terminal status of a proposal. A strict yes majority is
// the only passing condition, so ties and empty ballots are rejected.
func Outcome(counts entities.VoteCounts) entities.ProposalStatus {
	if counts.Yes > counts.No {
		return entities.ProposalStatusPassed
	}
	return entities.ProposalStatusRejected
}
