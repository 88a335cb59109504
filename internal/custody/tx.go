package custody

import (
	"context"
	"sync"
	"time"

	dErrors "krishichain/pkg/domain-errors"
)

// Tx provides the atomic boundary for custody writes. Implementations may
// wrap a database transaction or, in-memory, a per-product lock. productKey
// identifies the product being written (its QR token) so concurrent writes on
// the same product serialize while different products proceed in parallel.
// fn must use the context it receives; transactional implementations attach
// the live transaction to it.
type Tx interface {
	RunInTx(ctx context.Context, productKey string, fn func(ctx context.Context, stores Stores) error) error
}

// numShards spreads per-product locks across sharded mutexes so unrelated
// products rarely contend.
const numShards = 128

// defaultTxTimeout is the maximum duration for a custody transaction.
const defaultTxTimeout = 5 * time.Second

// ShardedTx serializes custody writes per product using sharded mutexes over
// plain in-memory stores. All validation happens before the first write, so
// serialized sections never leave partial state behind.
type ShardedTx struct {
	shards  [numShards]sync.Mutex
	stores  Stores
	timeout time.Duration
}

func NewShardedTx(stores Stores) *ShardedTx {
	return &ShardedTx{stores: stores}
}

func (t *ShardedTx) RunInTx(ctx context.Context, productKey string, fn func(ctx context.Context, stores Stores) error) error {
	// Check if context is already cancelled
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	// Apply timeout if not already set
	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := hashString(productKey) % numShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.stores)
}

// hashString uses FNV-1a for shard distribution.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
