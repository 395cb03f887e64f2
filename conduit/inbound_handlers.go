package conduit

import (
	"github.com/vectorframe/conduit/ecs"
)

// drainInbound applies every queued inbound message against the live host
// world, never the historical snapshot used for replay fan-out — a
// mutation delivered mid-replay still only ever touches the canonical
// world, becoming visible once Running resumes (spec.md §5's ordering
// guarantees).
func (c *ConduitExec) drainInbound(refWorld *ecs.World) {
	for _, msg := range c.inbound.Drain() {
		switch p := msg.env.Payload.(type) {
		case Connect:
			c.handleConnect(msg.conn)
		case Subscribe:
			c.handleSubscribe(msg.conn, p)
		case SetPlaying:
			c.handleSetPlaying(p)
		case Rewind:
			c.handleRewind(p)
		case ColumnIn:
			c.handleColumnIn(p)
		}
	}
}

func (c *ConduitExec) handleConnect(conn *Connection) {
	c.mu.Lock()
	c.connections[conn.ID] = conn
	c.mu.Unlock()

	host := c.WorldExec.Shared.Host
	manifest := make([]ComponentManifestEntry, 0)
	for _, meta := range host.Metadata.All() {
		manifest = append(manifest, manifestEntry(meta))
	}

	var entityIDs []uint64
	for _, name := range host.ArchetypeNames() {
		table := host.Archetype(name)
		entityIDs = append(entityIDs, uint64sOf(table.EntityIDs())...)
	}

	_ = conn.Send(Envelope{Kind: KindStartSim, Payload: StartSim{
		Metadata:  manifest,
		TimeStep:  c.TimeStep,
		EntityIDs: entityIDs,
	}})
}

func (c *ConduitExec) handleSubscribe(conn *Connection, msg Subscribe) {
	host := c.WorldExec.Shared.Host
	id, ok := host.Metadata.Resolve(msg.Query)
	if !ok {
		c.Logger.Error("subscribe failed: invalid query", "query", msg.Query)
		return
	}
	meta, _ := host.Metadata.Get(id)

	streamID := newStreamId()
	if err := conn.Send(Envelope{Kind: KindOpenStream, Payload: OpenStream{StreamID: streamID, Metadata: manifestEntry(meta)}}); err != nil {
		return
	}

	c.mu.Lock()
	c.subs = append(c.subs, &Subscription{ComponentID: id, StreamID: streamID, Conn: conn})
	c.mu.Unlock()
}

func (c *ConduitExec) handleSetPlaying(msg SetPlaying) {
	c.mu.Lock()
	c.playing = msg.Playing
	c.mu.Unlock()
}

func (c *ConduitExec) handleRewind(msg Rewind) {
	c.mu.Lock()
	c.state = Replaying
	c.replayIndex = msg.Index - 1
	c.mu.Unlock()
}

// handleColumnIn applies an inbound column mutation using the
// forward-only entity-id scan spec.md §4.7 requires: the incoming
// entities must be a subsequence of the column's entity-id order; a
// cursor advances monotonically through the column so a match can never
// be found "behind" a prior match, and unmatched entries are dropped with
// a warning instead of aborting the whole message.
func (c *ConduitExec) handleColumnIn(msg ColumnIn) {
	host := c.WorldExec.Shared.Host
	id := ecs.ComponentId(msg.Metadata.ID)

	table, ok := host.ArchetypeOf(id)
	if !ok {
		c.Logger.Error("inbound column: unknown component", "id", id)
		return
	}
	existing := table.EntityIDs()

	cursor := 0
	for _, row := range msg.Rows {
		target := ecs.EntityID(row.EntityID)
		matched := -1
		for cursor < len(existing) {
			if existing[cursor] == target {
				matched = cursor
				cursor++
				break
			}
			cursor++
		}
		if matched < 0 {
			c.Logger.Error("inbound column: entity not found in forward scan", "entity_id", row.EntityID)
			continue
		}
		if err := host.UpdateRow(id, matched, row.Value); err != nil {
			c.Logger.Error("inbound column: update failed", "entity_id", row.EntityID, "err", err)
			continue
		}
	}
	c.WorldExec.Shared.MarkDirty(id)
}
