package motion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vectorframe/conduit/cmd/conduit/examples/motion"
	"github.com/vectorframe/conduit/device"
	"github.com/vectorframe/conduit/ecs"
	"github.com/vectorframe/conduit/sim"
)

func TestIntegratePosition(t *testing.T) {
	world, systems := motion.Build()

	we, err := sim.NewWorldExec(world, device.NewLocal(), nil, nil, systems, 8)
	require.NoError(t, err)
	require.NoError(t, we.Run(context.Background()))

	col, err := world.Column(ecs.WellKnownWorldPos.ID())
	require.NoError(t, err)
	values, ok := col.Float64View()
	require.True(t, ok)
	require.Equal(t, []float64{1, 0, 0, 10, 9, 12}, values)
}
