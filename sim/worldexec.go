package sim

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/internal/telemetry"
	"github.com/vectorframe/conduit/pipeline"
)

// WorldExec drives one ordered list of compiled pipeline.Systems against a
// SharedWorld: an optional startup list runs exactly once, consumed on the
// first Run call, and the tick list runs every call (spec.md §4.6's
// "startup exec (run once) and tick exec (run each tick)"). Each call pulls
// its systems' inputs onto the device (via a bounded LRU of recently-used
// column buffers, since most systems in a tick re-read the same handful of
// components), runs them, and scatters their outputs back. This is
// spec.md's C9.
type WorldExec struct {
	Shared  *SharedWorld
	pool    *device.CompilePool
	client  device.Client
	startup []*pipeline.Exec // run once, then discarded
	execs   []*pipeline.Exec
	cache   *lru.Cache[ecs.ComponentId, *device.Buffer]

	// Observer receives a TickSummary after every Run call, if set.
	Observer telemetry.TickObserver
}

// NewWorldExec traces every system in startup and tick against host's
// current archetype row counts and starts background compilation for all
// of them. startup may be nil or empty for scenarios with no once-only
// setup step. cacheSize bounds the number of device.Buffers kept warm
// between systems within a tick (github.com/hashicorp/golang-lru/v2 backs
// this — unlike ecs.History, which must never evict out of tick order,
// this cache is a pure performance aid and LRU eviction is exactly the
// right policy).
func NewWorldExec(host *ecs.World, client device.Client, pool *device.CompilePool, startup, tick []pipeline.System, cacheSize int) (*WorldExec, error) {
	shared := NewSharedWorld(host, client)
	rows := rowsForHost(host)

	traceAll := func(systems []pipeline.System) ([]*pipeline.Exec, error) {
		execs := make([]*pipeline.Exec, 0, len(systems))
		for _, sys := range systems {
			pe, err := pipeline.NewExec(sys, client, pool, rows)
			if err != nil {
				return nil, fmt.Errorf("sim: tracing system %q: %w", sys.Name(), err)
			}
			pe.StartCompiling(context.Background())
			execs = append(execs, pe)
		}
		return execs, nil
	}

	startupExecs, err := traceAll(startup)
	if err != nil {
		return nil, err
	}
	tickExecs, err := traceAll(tick)
	if err != nil {
		return nil, err
	}

	return newWorldExecFromExecs(shared, client, pool, startupExecs, tickExecs, cacheSize)
}

// NewWorldExecFromExecs wires an already-compiled (or freshly-reconstructed)
// set of Execs into a WorldExec without tracing any System — the
// `read_from_dir` half of spec.md §4.5: pipeline.ReadSetFromDir hands back
// exactly the startup/tick Exec lists this takes, recovered from a prior
// `conduit build` without re-running any Go system body. Each Exec's
// compilation is (re)started if it isn't already compiled.
func NewWorldExecFromExecs(host *ecs.World, client device.Client, pool *device.CompilePool, startup, tick []*pipeline.Exec, cacheSize int) (*WorldExec, error) {
	shared := NewSharedWorld(host, client)
	for _, pe := range startup {
		pe.StartCompiling(context.Background())
	}
	for _, pe := range tick {
		pe.StartCompiling(context.Background())
	}
	return newWorldExecFromExecs(shared, client, pool, startup, tick, cacheSize)
}

func newWorldExecFromExecs(shared *SharedWorld, client device.Client, pool *device.CompilePool, startup, tick []*pipeline.Exec, cacheSize int) (*WorldExec, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[ecs.ComponentId, *device.Buffer](cacheSize)
	if err != nil {
		return nil, err
	}

	return &WorldExec{Shared: shared, pool: pool, client: client, startup: startup, execs: tick, cache: cache}, nil
}

// rowsForHost returns a pipeline.RowsFor deriving each component's row
// count from its own archetype in host, rather than one value shared
// across a system's whole parameter list — spec.md §8's indexed-get
// scenario binds a one-row Seed against a differently-sized Value column,
// which a single shared row count cannot express correctly.
func rowsForHost(host *ecs.World) pipeline.RowsFor {
	return func(meta ecs.Metadata) (int, error) {
		table, ok := host.ArchetypeOf(meta.ID())
		if !ok {
			return 0, ecs.Wrapf(ecs.ErrComponentNotFound, "component %q", meta.Name)
		}
		return table.Len(), nil
	}
}

// Run advances the world by one tick: every system runs in registration
// order against the row-aligned device buffers bound at trace time, and
// the host tick counter is advanced exactly once at the end.
func (we *WorldExec) Run(ctx context.Context) error {
	start := time.Now()
	tick := we.Shared.Host.Tick()
	compiling := 0
	systemsRun := len(we.startup) + len(we.execs)
	err := we.runLocked(ctx, &compiling)

	if we.Observer != nil {
		we.Observer.ObserveTick(telemetry.TickSummary{
			Tick:       tick,
			Duration:   time.Since(start),
			SystemsRun: systemsRun,
			Compiling:  compiling,
			Err:        err,
		})
	}
	return err
}

func (we *WorldExec) runLocked(ctx context.Context, compiling *int) error {
	if len(we.startup) > 0 {
		if err := we.runExecs(ctx, we.startup, compiling); err != nil {
			return err
		}
		we.startup = nil // take-and-discard: runs exactly once per WorldExec
	}
	if err := we.runExecs(ctx, we.execs, compiling); err != nil {
		return err
	}
	we.Shared.Host.AdvanceTick()
	return nil
}

// runExecs runs each compiled system in list in order against the current
// device-mirrored columns, scattering its outputs back to the host. Shared
// by the once-only startup list and the every-tick list; neither call
// advances the host tick counter itself.
func (we *WorldExec) runExecs(ctx context.Context, list []*pipeline.Exec, compiling *int) error {
	for _, pe := range list {
		if pe.State() != pipeline.Compiled {
			*compiling++
		}

		args := make([]*device.Buffer, len(pe.Params()))
		for i, meta := range pe.Params() {
			buf, err := we.cachedColumn(meta.ID())
			if err != nil {
				return fmt.Errorf("sim: system %q: %w", pe.Name(), err)
			}
			args[i] = buf
		}

		outs, err := pe.Run(ctx, args)
		if err != nil {
			return fmt.Errorf("sim: system %q run: %w", pe.Name(), err)
		}
		if len(outs) != len(pe.Outputs()) {
			return fmt.Errorf("sim: system %q returned %d outputs, expected %d", pe.Name(), len(outs), len(pe.Outputs()))
		}

		for i, meta := range pe.Outputs() {
			id := meta.ID()
			table, ok := we.Shared.Host.ArchetypeOf(id)
			if !ok {
				return ecs.Wrapf(ecs.ErrComponentNotFound, "system %q output %q", pe.Name(), meta.Name)
			}
			if err := we.Shared.LoadColumnFromDevice(id, outs[i], table.EntityIDs()); err != nil {
				return err
			}
			we.cache.Add(id, outs[i])
		}
	}
	return nil
}

// cachedColumn returns the device buffer bound to id, copying it to the
// device and remembering it in the LRU cache on a miss.
func (we *WorldExec) cachedColumn(id ecs.ComponentId) (*device.Buffer, error) {
	if !we.Shared.IsDirty(id) {
		if buf, ok := we.cache.Get(id); ok {
			return buf, nil
		}
	}
	buf, err := we.Shared.CopyToDevice(id)
	if err != nil {
		return nil, err
	}
	we.cache.Add(id, buf)
	return buf, nil
}

// CachedColumn exposes cachedColumn for tests and callers inspecting the
// current device-resident value without running a tick.
func (we *WorldExec) CachedColumn(id ecs.ComponentId) (*device.Buffer, error) {
	return we.cachedColumn(id)
}

// AllCompiled reports whether every system's Exec — startup or tick — has
// finished compilation — ConduitExec only advances the tick exec once this
// is true and the engine is playing (spec.md §4.7).
func (we *WorldExec) AllCompiled() bool {
	for _, pe := range we.startup {
		if pe.State() != pipeline.Compiled {
			return false
		}
	}
	for _, pe := range we.execs {
		if pe.State() != pipeline.Compiled {
			return false
		}
	}
	return true
}

// Fork clones the underlying host World (sharing metadata/registry/assets,
// per ecs.World.Clone) and starts a fresh WorldExec over the clone with
// independent device-mirroring state, reusing the same compiled systems —
// a forked world never needs to recompile, only to re-mirror its own
// column data (spec.md §4.8's replay/rewind support). The fork never has a
// pending startup exec of its own: startup already ran (or was forked from
// a world where it had) before Fork is ever called.
func (we *WorldExec) Fork() *WorldExec {
	forkedHost := we.Shared.Host.Clone()
	shared := NewSharedWorld(forkedHost, we.client)
	cache, _ := lru.New[ecs.ComponentId, *device.Buffer](we.cache.Len() + 1)
	return &WorldExec{Shared: shared, pool: we.pool, client: we.client, execs: we.execs, cache: cache}
}
