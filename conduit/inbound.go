package conduit

import "sync"

// inboundMessage pairs a decoded Envelope with the connection it arrived
// on, so handlers can reply (OpenStream) or identify which connection to
// register/drop.
type inboundMessage struct {
	conn *Connection
	env  Envelope
}

// InboundQueue is the single multiple-producer/single-consumer channel
// between network reader goroutines and the driver loop — spec.md §4.7's
// "Single-writer discipline. The ConduitExec loop is... the only consumer
// of the inbound channel; inbound messages are drained non-blockingly
// each tick". Adapted from the teacher's CommandBuffer (command_buffer.go):
// same push/drain shape, generalized from a same-goroutine scheduler
// buffer to a cross-goroutine mutex-guarded queue, since here pushes
// originate from network reader goroutines rather than from deferred
// in-tick command emission.
type InboundQueue struct {
	mu     sync.Mutex
	buffer []inboundMessage
}

// NewInboundQueue constructs an empty queue.
func NewInboundQueue() *InboundQueue {
	return &InboundQueue{}
}

// Push enqueues one inbound message. Called from a connection's reader
// goroutine; never blocks the driver.
func (q *InboundQueue) Push(conn *Connection, env Envelope) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buffer = append(q.buffer, inboundMessage{conn: conn, env: env})
}

// Drain returns every message enqueued since the last Drain and empties
// the queue — called once per tick, after the tick has advanced.
func (q *InboundQueue) Drain() []inboundMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.buffer
	q.buffer = nil
	return drained
}

// Len reports how many messages are currently queued.
func (q *InboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buffer)
}
