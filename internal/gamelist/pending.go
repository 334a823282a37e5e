package gamelist

import "sync/atomic"

// pendingQueue is a lock-free multi-producer single-consumer handoff of
// discovered servers. Producers (network goroutines) push records onto an
// intrusive stack; the owning goroutine takes the whole stack in a single
// exchange once per tick and merges it into the list.
//
// Ordering across producers is unspecified (LIFO under contention); merge is
// idempotent per address so correctness does not depend on it. A record is
// only ever freed by the consumer after merge, so producers never race its
// memory.
type pendingQueue struct {
	head atomic.Pointer[PendingRecord]
}

// push adds a record. Callable from any goroutine, non-blocking.
func (q *pendingQueue) push(rec *PendingRecord) {
	for {
		old := q.head.Load()
		rec.next = old
		if q.head.CompareAndSwap(old, rec) {
			return
		}
	}
}

// take atomically detaches the entire pending stack and returns its head,
// or nil when empty. A push that lands mid-take is deferred to the next
// take; nothing is ever dropped.
func (q *pendingQueue) take() *PendingRecord {
	return q.head.Swap(nil)
}
