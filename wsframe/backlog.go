// File: wsframe/backlog.go
//
// Best-effort control-frame backlog. When the TX ring has no room for an
// automatic PONG or CLOSE reply, the frame is queued here instead of
// blocking or being silently dropped, and retried on the next Update pass
// via Engine.FlushBacklog. Grounded on the teacher's own dependency
// choice: github.com/eapache/queue is already a direct require of the
// teacher module (used there as internal/concurrency/executor.go's task
// queue); this package repurposes it as a small FIFO for
// control-frame retries, per spec.md §4.D's "Failure semantics" for
// automatic replies.
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsframe

import "github.com/eapache/queue"

// controlFrame is a queued automatic reply awaiting TX ring space.
type controlFrame struct {
	opcode  Opcode
	payload []byte
}

// controlBacklog is a small FIFO of pending control-frame replies. It is
// never expected to hold more than a handful of entries: sustained TX
// backpressure means the peer is not draining, at which point the
// connection is in trouble regardless of this queue.
type controlBacklog struct {
	q *queue.Queue
}

func newControlBacklog() *controlBacklog {
	return &controlBacklog{q: queue.New()}
}

func (b *controlBacklog) push(cf controlFrame) {
	b.q.Add(cf)
}

func (b *controlBacklog) peek() (controlFrame, bool) {
	if b.q.Length() == 0 {
		return controlFrame{}, false
	}
	return b.q.Peek().(controlFrame), true
}

func (b *controlBacklog) pop() {
	if b.q.Length() == 0 {
		return
	}
	b.q.Remove()
}
