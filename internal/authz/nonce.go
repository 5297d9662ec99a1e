package authz

import (
	"sync"
	"time"
)

// NonceSource issues wall-clock millisecond nonces with a monotonic bump,
// so two requests in the same millisecond from the same signer never
// collide. The contract is assumed to track consumed nonces as a set
// rather than requiring strict ordering.
type NonceSource struct {
	mu   sync.Mutex
	last uint64
	now  func() time.Time
}

func NewNonceSource() *NonceSource {
	return &NonceSource{now: time.Now}
}

func (n *NonceSource) Next() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	candidate := uint64(n.now().UnixMilli())
	if candidate <= n.last {
		candidate = n.last + 1
	}
	n.last = candidate
	return candidate
}
