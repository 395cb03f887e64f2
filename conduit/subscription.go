package conduit

import "github.com/vectorframe/conduit/ecs"

// Subscription tracks one client's interest in one component's column
// (spec.md §4.7's Subscribe handler): the stream it was assigned, the
// connection to write to, and for asset-kind components, the highest
// asset generation already sent so send_sub can skip unchanged assets.
type Subscription struct {
	ComponentID    ecs.ComponentId
	StreamID       StreamId
	Conn           *Connection
	SentGeneration uint64
}
