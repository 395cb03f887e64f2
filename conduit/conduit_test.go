package conduit_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/vectorframe/conduit/conduit"
	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/ecs/storage"
	"github.com/vectorframe/conduit/pipeline"
	"github.com/vectorframe/conduit/sim"
)

// dialExec starts a real httptest-backed websocket server fronting exec and
// dials it, so these tests drive ConduitExec through the same wire path a
// network peer would instead of poking its unexported state.
func dialExec(t *testing.T, exec *conduit.ConduitExec) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(conduit.NewServer(exec, nil))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireEnvelope struct {
	Kind     conduit.MessageKind `json:"kind"`
	StreamID uint64              `json:"stream_id"`
	Payload  json.RawMessage     `json:"payload"`
}

type tickPayload struct {
	Tick    uint64 `json:"tick"`
	MaxTick uint64 `json:"max_tick"`
}

type assetPayload struct {
	EntityID uint64 `json:"entity_id"`
	Bytes    []byte `json:"bytes"`
	AssetID  uint64 `json:"asset_id"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wireEnvelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env wireEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func readUntilKind(t *testing.T, conn *websocket.Conn, kind conduit.MessageKind) wireEnvelope {
	t.Helper()
	for {
		env := readEnvelope(t, conn)
		if env.Kind == kind {
			return env
		}
	}
}

// readAssets collects exactly n KindAsset envelopes, skipping any
// interleaved Tick/OpenStream frames — fanOutTick always runs before
// fanOutSubscriptions within one Run call.
func readAssets(t *testing.T, conn *websocket.Conn, n int) []assetPayload {
	t.Helper()
	out := make([]assetPayload, 0, n)
	for len(out) < n {
		env := readUntilKind(t, conn, conduit.KindAsset)
		var p assetPayload
		require.NoError(t, json.Unmarshal(env.Payload, &p))
		out = append(out, p)
	}
	return out
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, kind conduit.MessageKind, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(conduit.Envelope{Kind: kind, Payload: payload}))
}

func waitInbound(t *testing.T, exec *conduit.ConduitExec) {
	t.Helper()
	require.Eventually(t, func() bool { return exec.Inbound().Len() > 0 }, time.Second, time.Millisecond)
}

// TestConduitExecReplayExitsOneCycleEarly covers spec.md §8's rewind
// scenario: after Rewind(2), the driver must replay every historical tick
// up to (but not including) the live world's own tick, then hand control
// back to Running exactly one cycle early rather than repeating the live
// world's last tick a second time.
func TestConduitExecReplayExitsOneCycleEarly(t *testing.T) {
	a := ecs.Metadata{Name: "replay_a", Type: ecs.ComponentType{Primitive: ecs.F64}}
	world := ecs.NewWorld()
	_, err := world.Spawn("entities", []ecs.ComponentValue{
		{Meta: a, Bytes: storage.Float64ToBytes([]float64{1})},
	})
	require.NoError(t, err)

	tickSys := pipeline.FromFn1("increment", a, a, func(av pipeline.Var) pipeline.Var {
		one := device.Const(device.Shape{1}, device.F64, []float64{1})
		return pipeline.Var{Meta: a, Expr: device.Add(av.Expr, one)}
	})
	we, err := sim.NewWorldExec(world, device.NewLocal(), nil, nil, []pipeline.System{tickSys}, 8)
	require.NoError(t, err)

	exec := conduit.NewConduitExec(we, time.Millisecond, ecs.NewHistory(), nil)
	conn := dialExec(t, exec)
	ctx := context.Background()

	sendEnvelope(t, conn, conduit.KindConnect, conduit.Connect{})
	waitInbound(t, exec)
	require.NoError(t, exec.Run(ctx)) // tick 1; registers conn, sends StartSim
	readUntilKind(t, conn, conduit.KindStartSim)

	for i := 0; i < 4; i++ { // ticks 2..5
		require.NoError(t, exec.Run(ctx))
		readUntilKind(t, conn, conduit.KindTick)
	}
	require.Equal(t, 6, exec.History.Len())

	sendEnvelope(t, conn, conduit.KindRewind, conduit.Rewind{Index: 2})
	waitInbound(t, exec)

	// Rewind only takes effect once drainInbound processes it at the end of
	// this call, so the world still advances live one more time here.
	require.NoError(t, exec.Run(ctx))
	readUntilKind(t, conn, conduit.KindTick)
	histLen := exec.History.Len()
	require.Equal(t, 7, histLen)

	wantReplayed := histLen - 1 - 2 // replayed ticks are [2, histLen-2]
	for i := 0; i < wantReplayed; i++ {
		require.NoError(t, exec.Run(ctx))
		env := readUntilKind(t, conn, conduit.KindTick)
		var tick tickPayload
		require.NoError(t, json.Unmarshal(env.Payload, &tick))
		require.Equal(t, uint64(2+i), tick.Tick)
	}

	// The next call must exit replay and resume live ticking one cycle
	// early instead of repeating the last replayed tick a second time.
	require.NoError(t, exec.Run(ctx))
	env := readUntilKind(t, conn, conduit.KindTick)
	var tick tickPayload
	require.NoError(t, json.Unmarshal(env.Payload, &tick))
	require.Equal(t, uint64(histLen), tick.Tick)

	col, err := world.Column(a.ID())
	require.NoError(t, err)
	values, ok := col.Float64View()
	require.True(t, ok)
	require.Equal(t, []float64{8}, values)
}

// TestConduitExecAssetFanOutSendsAllHandlesOnAnyChange covers spec.md §8's
// asset fan-out property: once any handle's generation exceeds the
// subscription's sent generation, every (handle, entity) pair is sent, not
// just the handles whose own generation moved this tick.
func TestConduitExecAssetFanOutSendsAllHandlesOnAnyChange(t *testing.T) {
	mesh := ecs.Metadata{Name: "mesh", Type: ecs.ComponentType{Primitive: ecs.U64}, Asset: true}
	assetKind := storage.AssetId(mesh.ID())

	world := ecs.NewWorld()
	h0 := world.Assets().InsertBytes(assetKind, []byte("first"))
	h1 := world.Assets().InsertBytes(assetKind, []byte("second"))

	e0, err := world.Spawn("meshes", []ecs.ComponentValue{
		{Meta: mesh, Bytes: storage.Uint64ToBytes([]uint64{uint64(h0.ID)})},
	})
	require.NoError(t, err)
	e1, err := world.Spawn("meshes", []ecs.ComponentValue{
		{Meta: mesh, Bytes: storage.Uint64ToBytes([]uint64{uint64(h1.ID)})},
	})
	require.NoError(t, err)

	we, err := sim.NewWorldExec(world, device.NewLocal(), nil, nil, nil, 8)
	require.NoError(t, err)

	exec := conduit.NewConduitExec(we, time.Millisecond, ecs.NewHistory(), nil)
	conn := dialExec(t, exec)
	ctx := context.Background()

	sendEnvelope(t, conn, conduit.KindConnect, conduit.Connect{})
	waitInbound(t, exec)
	require.NoError(t, exec.Run(ctx))
	readUntilKind(t, conn, conduit.KindStartSim)

	sendEnvelope(t, conn, conduit.KindSubscribe, conduit.Subscribe{Query: "mesh"})
	waitInbound(t, exec)
	require.NoError(t, exec.Run(ctx))
	readUntilKind(t, conn, conduit.KindOpenStream)

	// First fan-out since subscribing: both handles are above the
	// subscription's zero-valued sent generation, so both are sent.
	require.NoError(t, exec.Run(ctx))
	first := readAssets(t, conn, 2)
	byEntity := map[uint64]assetPayload{first[0].EntityID: first[0], first[1].EntityID: first[1]}
	require.Equal(t, "first", string(byEntity[uint64(e0)].Bytes))
	require.Equal(t, "second", string(byEntity[uint64(e1)].Bytes))

	// Only h0's content changes. A per-handle filter would now send just
	// h0; the fix must still send h1's unchanged value too.
	require.True(t, world.Assets().Replace(h0, []byte("first-v2")))

	require.NoError(t, exec.Run(ctx))
	second := readAssets(t, conn, 2)
	byEntity = map[uint64]assetPayload{second[0].EntityID: second[0], second[1].EntityID: second[1]}
	require.Equal(t, "first-v2", string(byEntity[uint64(e0)].Bytes))
	require.Equal(t, "second", string(byEntity[uint64(e1)].Bytes))
}
