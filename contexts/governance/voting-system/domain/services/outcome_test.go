package services

import (
	"testing"

	"tally/contexts/governance/voting-system/domain/entities"
)

func TestOutcome(t *testing.T) {
	cases := []struct {
		name   string
		counts entities.VoteCounts
		want   entities.ProposalStatus
	}{
		{name: "majority yes", counts: entities.VoteCounts{Yes: 2, No: 1}, want: entities.ProposalStatusPassed},
		{name: "majority no", counts: entities.VoteCounts{Yes: 1, No: 3}, want: entities.ProposalStatusRejected},
		{name: "tie", counts: entities.VoteCounts{Yes: 4, No: 4}, want: entities.ProposalStatusRejected},
		{name: "no ballots", counts: entities.VoteCounts{}, want: entities.ProposalStatusRejected},
		{name: "single yes", counts: entities.VoteCounts{Yes: 1}, want: entities.ProposalStatusPassed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Outcome(tc.counts); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			if !Outcome(tc.counts).Terminal() {
				t.Fatalf("outcome must be terminal")
			}
		})
	}
}
