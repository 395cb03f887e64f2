package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vectorframe/conduit/cmd/conduit/examples/startuptick"
	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/pipeline"
)

// newBuildCmd implements `conduit build --dir <path>`: traces the bundled
// scenario's startup and tick systems, compiles them concurrently (tracing
// is cheap and independent per system, so there's no single-writer concern
// here the way there is once a WorldExec starts running ticks), and writes
// the whole startup/tick Exec set into dir via pipeline.WriteSetToDir —
// what `conduit run --dir` reads back without re-tracing anything.
func newBuildCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "trace and serialize the bundled scenario's compiled execs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return fmt.Errorf("conduit build: --dir is required")
			}

			world, startupSystems, tickSystems := startuptick.Build()
			client := device.NewLocal()
			pool := device.NewCompilePool(2)
			defer pool.Close()

			rows := rowsFromWorld(world)
			startupExecs, err := traceAll(startupSystems, client, pool, rows)
			if err != nil {
				return fmt.Errorf("conduit build: %w", err)
			}
			tickExecs, err := traceAll(tickSystems, client, pool, rows)
			if err != nil {
				return fmt.Errorf("conduit build: %w", err)
			}

			g, _ := errgroup.WithContext(cmd.Context())
			for _, exec := range append(append([]*pipeline.Exec{}, startupExecs...), tickExecs...) {
				exec := exec
				g.Go(func() error {
					if err := waitCompiled(exec); err != nil {
						return fmt.Errorf("conduit build: compile %q: %w", exec.Name(), err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if err := pipeline.WriteSetToDir(dir, startupExecs, tickExecs); err != nil {
				return fmt.Errorf("conduit build: write %q: %w", dir, err)
			}
			fmt.Printf("wrote %s (%d startup, %d tick)\n", dir, len(startupExecs), len(tickExecs))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory for serialized execs")
	return cmd
}

func traceAll(systems []pipeline.System, client device.Client, pool *device.CompilePool, rows pipeline.RowsFor) ([]*pipeline.Exec, error) {
	execs := make([]*pipeline.Exec, len(systems))
	for i, sys := range systems {
		exec, err := pipeline.NewExec(sys, client, pool, rows)
		if err != nil {
			return nil, fmt.Errorf("trace %q: %w", sys.Name(), err)
		}
		exec.StartCompiling(context.Background())
		execs[i] = exec
	}
	return execs, nil
}

// rowsFromWorld resolves each traced component's own archetype row count
// against world, so a system whose inputs span differently-sized
// archetypes gets every parameter shaped correctly rather than bound to
// one shared count.
func rowsFromWorld(world *ecs.World) pipeline.RowsFor {
	return func(meta ecs.Metadata) (int, error) {
		table, ok := world.ArchetypeOf(meta.ID())
		if !ok {
			return 0, ecs.Wrapf(ecs.ErrComponentNotFound, "component %q", meta.Name)
		}
		return table.Len(), nil
	}
}

// waitCompiled blocks the calling goroutine (unlike WorldExec, which never
// blocks a tick on compilation) until exec's background compile finishes,
// since `build` has nothing useful to do until the manifest it writes
// reflects a fully compiled module.
func waitCompiled(exec *pipeline.Exec) error {
	deadline := time.Now().Add(30 * time.Second)
	for exec.State() != pipeline.Compiled {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %q to compile", exec.Name())
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}
