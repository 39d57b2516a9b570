// Package lockmap provides a lock for every block number without keeping a
// mutex per block. Block numbers are spread over a fixed set of shards; a
// shard only remembers which of its blocks are currently held.
package lockmap

import (
	"sync"

	"github.com/mit-pdos/go-ffs/common"
)

const NSHARD uint32 = 43

type shard struct {
	mu   *sync.Mutex
	cond *sync.Cond // signalled on every release
	held map[common.Bnum]bool
}

func mkShard() *shard {
	mu := new(sync.Mutex)
	return &shard{
		mu:   mu,
		cond: sync.NewCond(mu),
		held: make(map[common.Bnum]bool),
	}
}

func (s *shard) acquire(bn common.Bnum) {
	s.mu.Lock()
	for s.held[bn] {
		s.cond.Wait()
	}
	s.held[bn] = true
	s.mu.Unlock()
}

func (s *shard) release(bn common.Bnum) {
	s.mu.Lock()
	if !s.held[bn] {
		s.mu.Unlock()
		panic("lockmap: release of unheld block")
	}
	delete(s.held, bn)
	s.cond.Broadcast()
	s.mu.Unlock()
}

type LockMap struct {
	shards []*shard
}

func MkLockMap() *LockMap {
	shards := make([]*shard, NSHARD)
	for i := range shards {
		shards[i] = mkShard()
	}
	return &LockMap{shards: shards}
}

func (lm *LockMap) Acquire(bn common.Bnum) {
	lm.shards[bn%NSHARD].acquire(bn)
}

func (lm *LockMap) Release(bn common.Bnum) {
	lm.shards[bn%NSHARD].release(bn)
}

// Held reports whether bn is currently locked by anyone.
func (lm *LockMap) Held(bn common.Bnum) bool {
	s := lm.shards[bn%NSHARD]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held[bn]
}
