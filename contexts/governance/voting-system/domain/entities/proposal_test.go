package entities

import (
	"testing"
	"time"
)

func TestVotingOpenIgnoresStatus(t *testing.T) {
	deadline := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	proposal := Proposal{Deadline: deadline, Status: ProposalStatusPassed}

	if !proposal.VotingOpen(deadline.Add(-time.Second)) {
		t.Fatalf("expected window open before deadline")
	}
	if proposal.VotingOpen(deadline) {
		t.Fatalf("expected window closed at deadline")
	}
}

func TestProposalStatusValid(t *testing.T) {
	for _, status := range []ProposalStatus{ProposalStatusActive, ProposalStatusPassed, ProposalStatusRejected} {
		if !status.Valid() {
			t.Fatalf("expected %s valid", status)
		}
	}
	if ProposalStatus("pending").Valid() {
		t.Fatalf("expected unknown status invalid")
	}
	if ProposalStatusActive.Terminal() {
		t.Fatalf("active must not be terminal")
	}
}

func TestCounts(t *testing.T) {
	counts := Proposal{YesVotes: 3, NoVotes: 2}.Counts()
	if counts.Yes != 3 || counts.No != 2 || counts.Total() != 5 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}
