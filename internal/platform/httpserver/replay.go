package httpserver

import (
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
)

const defaultReplayCapacity = 1 << 16

var (
	errReplayedRequest = errors.New("request nonce already used")
	errReplayCacheFull = errors.New("too many signed requests in flight, retry later")
)

type nonceKey struct {
	caller common.Address
	nonce  string
}

// replayGuard remembers (caller, nonce) pairs until their signed timestamp
// leaves the skew window. Past that point the timestamp check rejects them.
type replayGuard struct {
	mu       sync.Mutex
	seen     lru.BasicLRU[nonceKey, time.Time]
	capacity int
}

func newReplayGuard(capacity int) *replayGuard {
	if capacity <= 0 {
		capacity = defaultReplayCapacity
	}
	return &replayGuard{
		seen:     lru.NewBasicLRU[nonceKey, time.Time](capacity),
		capacity: capacity,
	}
}

// remember records the pair or reports it as a replay. A full cache of live
// entries fails closed so an eviction can never reopen a nonce.
func (g *replayGuard) remember(caller common.Address, nonce string, expiresAt, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := nonceKey{caller: caller, nonce: nonce}
	if g.seen.Contains(key) {
		return errReplayedRequest
	}
	for {
		_, oldest, ok := g.seen.GetOldest()
		if !ok || !oldest.Before(now) {
			break
		}
		g.seen.RemoveOldest()
	}
	if g.seen.Len() >= g.capacity {
		return errReplayCacheFull
	}
	g.seen.Add(key, expiresAt)
	return nil
}
