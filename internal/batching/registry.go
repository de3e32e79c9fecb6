package batching

import (
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/concave-dev/coalesce/internal/utils"
)

// batch is a group of pending requests sharing a Key. Until it is committed
// the batch is reachable from the registry and its fields are guarded by the
// owning shard's mutex. After commit only the flushing goroutine touches it
// until done is closed, after which responses and err are read-only.
type batch struct {
	key      Key
	id       string // flush ID, sent with the combined request
	requests []*Request
	timer    *time.Timer // scheduled eventual flush, nil when none
	created  time.Time

	done      chan struct{}
	responses []Response
	err       error
}

func newBatch(key Key) *batch {
	return &batch{
		key:     key,
		id:      utils.GenerateFlushID(),
		created: time.Now(),
		done:    make(chan struct{}),
	}
}

// stopTimer cancels the eventual flush. Safe to call when the timer has
// already fired or was never set.
func (b *batch) stopTimer() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// result returns the response at idx. Must only be called after done is
// closed.
func (b *batch) result(idx int) (*Response, error) {
	if b.err != nil {
		return nil, b.err
	}
	if idx >= len(b.responses) {
		return nil, fmt.Errorf("%w: index %d of %d in batch %s", ErrMissingResponse, idx, len(b.responses), b.key)
	}
	resp := b.responses[idx]
	return &resp, nil
}

// shard is one independently locked slice of the registry.
type shard struct {
	mu      sync.Mutex
	batches map[Key]*batch
}

// registry maps batch keys to their pending batch. Keys are spread over
// shards by xxhash so unrelated groups do not contend on one lock; every
// operation on a given key goes through the same shard.
type registry struct {
	shards []*shard
}

func newRegistry(n int) *registry {
	if n < 1 {
		n = 1
	}
	r := &registry{shards: make([]*shard, n)}
	for i := range r.shards {
		r.shards[i] = &shard{batches: make(map[Key]*batch)}
	}
	return r
}

func (r *registry) shardFor(k Key) *shard {
	h := xxhash.Sum64String(k.Group + "\x00" + k.Method)
	return r.shards[h%uint64(len(r.shards))]
}

// stats returns the number of pending batches and pending requests.
func (r *registry) stats() (batches, requests int64) {
	for _, s := range r.shards {
		s.mu.Lock()
		batches += int64(len(s.batches))
		for _, b := range s.batches {
			requests += int64(len(b.requests))
		}
		s.mu.Unlock()
	}
	return batches, requests
}
