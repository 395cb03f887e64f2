// Package conduit implements the network-facing simulation driver
// (spec.md's C10, ConduitExec): the tick loop, client connections and
// subscriptions, column/asset fan-out, inbound mutation application, and
// play/pause/replay. The wire codec and TCP listener are an external
// collaborator per spec.md §1 ("opaque byte-framed duplex channel"); this
// module binds that collaborator to gorilla/websocket rather than hand
// rolling a framing format or a protobuf schema.
package conduit

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"

	"github.com/vectorframe/conduit/ecs"
)

// StreamId is a 64-bit stream identifier, minted from a random UUID's
// leading bytes — spec.md calls for "a random 64-bit StreamId"; this keeps
// that contract while drawing randomness from a real, testable generator
// instead of rolling one over math/rand.
type StreamId uint64

func newStreamId() StreamId {
	id := uuid.New()
	return StreamId(binary.BigEndian.Uint64(id[:8]))
}

// MessageKind discriminates the envelope's payload so one physical
// connection can multiplex the control stream and every data stream
// spec.md's wire protocol describes, without needing the two-channel
// handshake the original implementation's codec performs at the
// transport layer.
type MessageKind uint8

const (
	// Server -> client
	KindStartSim MessageKind = iota
	KindOpenStream
	KindTick
	KindAsset
	KindColumnOut
	// Client -> server
	KindConnect
	KindSubscribe
	KindSetPlaying
	KindRewind
	KindColumnIn
)

// Envelope is the single frame type carried over the websocket connection;
// StreamID is zero for control-stream messages and the subscription's
// StreamId for data-stream Column payloads.
type Envelope struct {
	Kind     MessageKind `json:"kind"`
	StreamID StreamId    `json:"stream_id,omitempty"`
	Payload  any         `json:"payload"`
}

// ComponentManifestEntry is a (name, primitive, shape, id) tuple — the wire
// form of ecs.Metadata, omitting Tags/Asset flags clients don't need to
// render a subscription.
type ComponentManifestEntry struct {
	Name      string `json:"name"`
	Primitive string `json:"primitive"`
	Shape     []int  `json:"shape"`
	ID        uint64 `json:"id"`
}

func manifestEntry(m ecs.Metadata) ComponentManifestEntry {
	return ComponentManifestEntry{Name: m.Name, Primitive: m.Type.Primitive.String(), Shape: m.Type.Shape, ID: uint64(m.ID())}
}

// StartSim is sent once, immediately after Connect (spec.md §4.7).
type StartSim struct {
	Metadata  []ComponentManifestEntry `json:"metadata_store"`
	TimeStep  time.Duration            `json:"time_step"`
	EntityIDs []uint64                 `json:"entity_ids"`
}

// OpenStream acknowledges a successful Subscribe.
type OpenStream struct {
	StreamID StreamId               `json:"stream_id"`
	Metadata ComponentManifestEntry `json:"metadata"`
}

// Tick is sent on the control stream every run cycle.
type Tick struct {
	Tick    uint64 `json:"tick"`
	MaxTick uint64 `json:"max_tick"`
}

// Asset carries one updated asset blob for one entity.
type Asset struct {
	EntityID uint64 `json:"entity_id"`
	Bytes    []byte `json:"bytes"`
	AssetID  uint64 `json:"asset_id"`
}

// ColumnOut is a full column snapshot sent on a subscription's data
// stream: little-endian, row-major, matching spec.md §6's wire format.
type ColumnOut struct {
	Time      uint64 `json:"time"`
	Len       int    `json:"len"`
	EntityBuf []byte `json:"entity_buf"`
	ValueBuf  []byte `json:"value_buf"`
}

// Connect requests StartSim. Connections are deduped by the underlying
// websocket connection's identity, not by any field here.
type Connect struct{}

// Subscribe resolves Query against the metadata store; the core only
// supports queries resolving to exactly one ComponentId.
type Subscribe struct {
	Query string `json:"query"`
}

// SetPlaying toggles ConduitExec.playing.
type SetPlaying struct {
	Playing bool `json:"playing"`
}

// Rewind transitions the state machine into Replaying{Index}.
type Rewind struct {
	Index int `json:"index"`
}

// ColumnIn is an inbound mutation: one component's updated rows.
type ColumnIn struct {
	Metadata ComponentManifestEntry `json:"metadata"`
	Rows     []ColumnRow            `json:"rows"`
}

// ColumnRow is one (entity, value) pair within a ColumnIn message.
type ColumnRow struct {
	EntityID uint64 `json:"entity_id"`
	Value    []byte `json:"value"`
}
