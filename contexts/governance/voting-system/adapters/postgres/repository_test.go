package postgresadapter

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"tally/contexts/governance/voting-system/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	wrapped := fmt.Errorf("insert ballot: %w", &pgconn.PgError{Code: "23505"})
	if !isUniqueViolation(wrapped) {
		t.Fatalf("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation must not map to unique violation")
	}
	if isUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain errors must not map to unique violation")
	}
}

func TestEncodeAddressIgnoresChecksumCasing(t *testing.T) {
	upper := common.HexToAddress("0xABCDEF0000000000000000000000000000000001")
	lower := common.HexToAddress("0xabcdef0000000000000000000000000000000001")
	if encodeAddress(upper) != encodeAddress(lower) {
		t.Fatalf("expected identical encodings")
	}
	if got := encodeAddress(lower); got != "0xabcdef0000000000000000000000000000000001" {
		t.Fatalf("unexpected encoding %s", got)
	}
}

func TestProposalModelKeepsOutcomeFields(t *testing.T) {
	local := time.FixedZone("UTC+2", 2*60*60)
	ended := time.Date(2026, 4, 1, 12, 0, 0, 0, local)
	proposal := entities.Proposal{
		ProposalID: 4,
		Title:      "Budget",
		Deadline:   time.Date(2026, 4, 1, 11, 0, 0, 0, local),
		YesVotes:   3,
		NoVotes:    1,
		Status:     entities.ProposalStatusPassed,
		CreatedAt:  time.Date(2026, 3, 31, 11, 0, 0, 0, local),
		EndedAt:    &ended,
	}

	got := proposalModelFromEntity(proposal).toEntity()
	if got.ProposalID != 4 || got.Status != entities.ProposalStatusPassed || got.YesVotes != 3 || got.NoVotes != 1 {
		t.Fatalf("unexpected proposal %+v", got)
	}
	if got.EndedAt == nil || got.EndedAt.Location() != time.UTC || !got.EndedAt.Equal(ended) {
		t.Fatalf("expected ended_at normalized to UTC, got %v", got.EndedAt)
	}
	if got.EndedAt == proposal.EndedAt {
		t.Fatalf("ended_at must be copied, not aliased")
	}
}
