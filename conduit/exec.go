package conduit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/ecs/storage"
	"github.com/vectorframe/conduit/internal/telemetry"
	"github.com/vectorframe/conduit/sim"
)

// RunState is ConduitExec's top-level state (spec.md §4.7).
type RunState uint8

const (
	Running RunState = iota
	Replaying
)

// ConduitExec is the network-facing simulation driver (C10): it owns the
// only reference to the live WorldExec, the connection/subscription
// tables, and the inbound mutation queue, and is the sole writer to the
// world (spec.md's single-writer discipline).
type ConduitExec struct {
	mu sync.Mutex

	WorldExec *sim.WorldExec
	History   *ecs.History
	TimeStep  time.Duration
	Logger    telemetry.Logger
	Observer  telemetry.TickObserver

	playing      bool
	state        RunState
	replayIndex  int
	connections  map[uint64]*Connection
	subs         []*Subscription
	inbound      *InboundQueue
	nextConnID   uint64
}

// NewConduitExec wraps we for network driving. The initial world state is
// pushed onto history immediately, per ecs.History's "index 0 is the
// pre-tick state" convention.
func NewConduitExec(we *sim.WorldExec, timeStep time.Duration, history *ecs.History, logger telemetry.Logger) *ConduitExec {
	if logger == nil {
		logger = telemetry.NewNoop()
	}
	history.PushWorld(we.Shared.Host)
	return &ConduitExec{
		WorldExec:   we,
		History:     history,
		TimeStep:    timeStep,
		Logger:      logger,
		playing:     true,
		state:       Running,
		connections: make(map[uint64]*Connection),
		inbound:     NewInboundQueue(),
	}
}

// Inbound exposes the queue network reader goroutines push onto.
func (c *ConduitExec) Inbound() *InboundQueue { return c.inbound }

// RegisterConnection admits conn under a fresh identity, matching how a
// real listener would hand ConduitExec a freshly-accepted socket. The
// caller still has to send it a Connect envelope to trigger StartSim.
func (c *ConduitExec) RegisterConnection(conn *websocket.Conn) *Connection {
	id := atomic.AddUint64(&c.nextConnID, 1)
	wrapped := NewConnection(id, conn)
	c.mu.Lock()
	c.connections[id] = wrapped
	c.mu.Unlock()
	return wrapped
}

// Run advances one cycle: (replay-or-tick) -> fan-out tick -> fan-out
// subscriptions -> drain inbound. It never sleeps; the caller's driver
// loop is responsible for pacing against TimeStep (spec.md §5).
func (c *ConduitExec) Run(ctx context.Context) error {
	tick, maxTick, refWorld, err := c.advance(ctx)
	if err != nil {
		return err
	}

	c.fanOutTick(tick, maxTick)
	c.fanOutSubscriptions(refWorld, tick)
	c.drainInbound(refWorld)
	return nil
}

func (c *ConduitExec) advance(ctx context.Context) (tick uint64, maxTick uint64, refWorld *ecs.World, err error) {
	c.mu.Lock()
	state := c.state
	replayIndex := c.replayIndex
	playing := c.playing
	c.mu.Unlock()

	switch state {
	case Replaying:
		replayIndex++
		// History.Len()-1 is the live world's own tick, already reflected
		// by the untouched host — replaying it again would repeat a tick
		// instead of handing control back to Running one cycle early.
		if replayIndex >= c.History.Len()-1 {
			c.mu.Lock()
			c.state = Running
			c.mu.Unlock()
			return c.advance(ctx)
		}
		c.mu.Lock()
		c.replayIndex = replayIndex
		c.mu.Unlock()
		snap, _ := c.History.Get(replayIndex)
		return snap.Tick(), uint64(c.History.Len() - 1), snap, nil

	default:
		if playing && c.WorldExec.AllCompiled() {
			if err := c.WorldExec.Run(ctx); err != nil {
				return 0, 0, nil, err
			}
			c.History.PushWorld(c.WorldExec.Shared.Host)
		}
		host := c.WorldExec.Shared.Host
		return host.Tick(), uint64(c.History.Len() - 1), host, nil
	}
}

func (c *ConduitExec) fanOutTick(tick, maxTick uint64) {
	c.mu.Lock()
	conns := make([]*Connection, 0, len(c.connections))
	for _, conn := range c.connections {
		conns = append(conns, conn)
	}
	c.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Send(Envelope{Kind: KindTick, Payload: Tick{Tick: tick, MaxTick: maxTick}}); err != nil {
			c.dropConnection(conn.ID)
		}
	}
}

func (c *ConduitExec) fanOutSubscriptions(world *ecs.World, tick uint64) {
	c.mu.Lock()
	subs := append([]*Subscription(nil), c.subs...)
	c.mu.Unlock()

	var alive []*Subscription
	for _, sub := range subs {
		if c.sendSub(world, tick, sub) {
			alive = append(alive, sub)
		}
	}

	c.mu.Lock()
	c.subs = alive
	c.mu.Unlock()
}

// sendSub implements spec.md §4.7's per-subscription send: asset-kind
// components fan out Asset messages only when their generation changed,
// everything else fans out a full Column snapshot.
func (c *ConduitExec) sendSub(world *ecs.World, tick uint64, sub *Subscription) bool {
	col, err := world.Column(sub.ComponentID)
	if err != nil {
		return false
	}
	meta, _ := world.Metadata.Get(sub.ComponentID)

	if meta.Asset {
		return c.sendAssetSub(world, col, meta, sub)
	}

	table, ok := world.ArchetypeOf(sub.ComponentID)
	if !ok {
		return false
	}
	entityBuf := storage.Uint64ToBytes(uint64sOf(table.EntityIDs()))
	payload := ColumnOut{Time: tick, Len: col.Len, EntityBuf: entityBuf, ValueBuf: append([]byte(nil), col.Buf...)}
	err = sub.Conn.Send(Envelope{Kind: KindColumnOut, StreamID: sub.StreamID, Payload: payload})
	return err == nil
}

// sendAssetSub implements spec.md §8's asset fan-out property: if any
// handle's generation exceeds the subscription's sent_generation, every
// (handle, entity) pair is sent — not just the ones whose own generation
// moved — matching the original implementation's send_sub (filtering
// per-handle would silently drop a sibling handle that didn't change this
// tick even though the subscriber needs the full picture once any of them
// did).
func (c *ConduitExec) sendAssetSub(world *ecs.World, col *storage.HostColumn, meta ecs.Metadata, sub *Subscription) bool {
	handles, ok := col.Uint64View()
	if !ok {
		return false
	}
	table, ok := world.ArchetypeOf(sub.ComponentID)
	if !ok {
		return false
	}
	entityIDs := table.EntityIDs()

	assetKind := storage.AssetId(sub.ComponentID)
	maxGen := sub.SentGeneration
	changed := false
	for _, raw := range handles {
		handle := storage.AssetHandle{AssetID: assetKind, ID: uint32(raw)}
		gen, ok := world.Assets().Gen(handle)
		if ok && gen > sub.SentGeneration {
			changed = true
			if gen > maxGen {
				maxGen = gen
			}
		}
	}
	if !changed {
		return true
	}

	for i, raw := range handles {
		handle := storage.AssetHandle{AssetID: assetKind, ID: uint32(raw)}
		value, _ := world.Assets().Value(handle)
		err := sub.Conn.Send(Envelope{Kind: KindAsset, Payload: Asset{
			EntityID: uint64(entityIDs[i]),
			Bytes:    value,
			AssetID:  uint64(handle.AssetID),
		}})
		if err != nil {
			return false
		}
	}
	sub.SentGeneration = maxGen
	return true
}

func uint64sOf(ids []ecs.EntityID) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}

func (c *ConduitExec) dropConnection(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.connections, id)
	var alive []*Subscription
	for _, s := range c.subs {
		if s.Conn.ID != id {
			alive = append(alive, s)
		}
	}
	c.subs = alive
}
