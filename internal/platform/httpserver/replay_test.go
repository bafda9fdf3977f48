package httpserver

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestReplayGuardRejectsSecondUse(t *testing.T) {
	guard := newReplayGuard(8)
	caller := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := guard.remember(caller, "n-1", now.Add(time.Minute), now); err != nil {
		t.Fatalf("first use: %v", err)
	}
	if err := guard.remember(caller, "n-1", now.Add(time.Minute), now.Add(time.Minute)); !errors.Is(err, errReplayedRequest) {
		t.Fatalf("expected errReplayedRequest at window edge, got %v", err)
	}
}

func TestReplayGuardFailsClosedWhenFull(t *testing.T) {
	guard := newReplayGuard(2)
	caller := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(time.Minute)

	for _, nonce := range []string{"a", "b"} {
		if err := guard.remember(caller, nonce, expires, now); err != nil {
			t.Fatalf("remember %s: %v", nonce, err)
		}
	}
	if err := guard.remember(caller, "c", expires, now); !errors.Is(err, errReplayCacheFull) {
		t.Fatalf("expected errReplayCacheFull, got %v", err)
	}
	if err := guard.remember(caller, "a", expires, now); !errors.Is(err, errReplayedRequest) {
		t.Fatalf("expected earlier nonce still tracked, got %v", err)
	}
}

func TestReplayGuardPrunesExpiredEntries(t *testing.T) {
	guard := newReplayGuard(2)
	caller := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, nonce := range []string{"a", "b"} {
		if err := guard.remember(caller, nonce, now.Add(time.Minute), now); err != nil {
			t.Fatalf("remember %s: %v", nonce, err)
		}
	}
	later := now.Add(2 * time.Minute)
	if err := guard.remember(caller, "c", later.Add(time.Minute), later); err != nil {
		t.Fatalf("expected expired entries pruned, got %v", err)
	}
	if guard.seen.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", guard.seen.Len())
	}
}
