package pipeline

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/seqsense/pcdcluster/config"
	"github.com/seqsense/pcdcluster/mat"
	"github.com/seqsense/pcdcluster/pcd"
)

// tableScene returns a 20x20 noisy table at z=0 followed by a 5x5x6
// lattice cube standing 5cm above it.
func tableScene(seed int64) []mat.Vec3 {
	rnd := rand.New(rand.NewSource(seed))
	var vs []mat.Vec3
	for i := 0; i < 20; i++ {
		for j := 0; j < 20; j++ {
			vs = append(vs, mat.Vec3{
				float32(i)*0.03 + 0.001,
				float32(j)*0.03 + 0.001,
				(rnd.Float32() - 0.5) * 0.002,
			})
		}
	}
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			for k := 0; k < 6; k++ {
				vs = append(vs, mat.Vec3{
					0.2 + float32(i)*0.015 + 0.0025,
					0.2 + float32(j)*0.015 + 0.0025,
					0.05 + float32(k)*0.015 + 0.0025,
				})
			}
		}
	}
	return vs
}

func newObservedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	return zap.New(core).Sugar(), logs
}

func TestRun_TableTop(t *testing.T) {
	pc := pcd.NewFromVec3s(tableScene(1))
	require.Equal(t, 550, pc.Points)

	logger, logs := newObservedLogger()
	p, err := New(config.Default(), WithLogger(logger))
	require.NoError(t, err)

	res, err := p.Run(pc)
	require.NoError(t, err)

	assert.Equal(t, 550, res.InputPoints)
	assert.Equal(t, 550, res.FilteredPoints)
	require.Len(t, res.Planes, 1)
	assert.Equal(t, 400, res.Planes[0].Cloud.Points)
	assert.Equal(t, 150, res.Residual.Points)

	require.Len(t, res.Clusters, 1)
	c := res.Clusters[0]
	assert.Equal(t, 150, c.Points)
	assert.Equal(t, 150, c.Width)
	assert.Equal(t, 1, c.Height)
	assert.True(t, c.IsDense)

	min, _, err := pcd.MinMaxVec3(c)
	require.NoError(t, err)
	assert.Greater(t, min[2], float32(0.04))

	assert.Len(t, logs.FilterMessage("planar component").All(), 1)
	assert.Len(t, logs.FilterMessage("cluster").All(), 1)
}

// cubeOnTableScene returns 400 points: a flat 25x10 table at z=0 with a
// 5x5x6 lattice cube resting on its middle. Cube layers are 2.5cm apart
// starting 1.2cm above the table.
func cubeOnTableScene() []mat.Vec3 {
	var vs []mat.Vec3
	for i := 0; i < 25; i++ {
		for j := 0; j < 10; j++ {
			vs = append(vs, mat.Vec3{float32(i) * 0.02, float32(j) * 0.02, 0})
		}
	}
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			for k := 0; k < 6; k++ {
				vs = append(vs, mat.Vec3{
					0.21 + float32(i)*0.015,
					0.06 + float32(j)*0.015,
					0.012 + float32(k)*0.025,
				})
			}
		}
	}
	return vs
}

func TestRun_CubeOnTable(t *testing.T) {
	pc := pcd.NewFromVec3s(cubeOnTableScene())
	require.Equal(t, 400, pc.Points)

	for _, seed := range []int64{1, 2, 3, 4, 5} {
		for _, workers := range []int{1, 4} {
			cfg := config.Default()
			cfg.Seed = seed
			cfg.Workers = workers
			cfg.MaxPlanes = 1
			// Layers are 2.5cm apart.
			cfg.ClusterTolerance = 0.03

			p, err := New(cfg)
			require.NoError(t, err)
			res, err := p.Run(pc)
			require.NoError(t, err)

			assert.Equal(t, 400, res.FilteredPoints, "seed=%d workers=%d", seed, workers)

			// The bottom cube layer lies within the distance threshold of the
			// table, so its 25 points are removed together with the table.
			require.Len(t, res.Planes, 1, "seed=%d workers=%d", seed, workers)
			plane := res.Planes[0]
			assert.Equal(t, 250+25, plane.Cloud.Points, "seed=%d workers=%d", seed, workers)
			assert.Greater(t, float32(math.Abs(float64(plane.Coefficients[2]))), float32(0.99))

			// Hence the single cluster holds the 5 upper layers of the cube,
			// 125 of its 150 points.
			require.Len(t, res.Clusters, 1, "seed=%d workers=%d", seed, workers)
			c := res.Clusters[0]
			assert.Equal(t, 125, c.Points, "seed=%d workers=%d", seed, workers)
			assert.Equal(t, 125, res.Residual.Points)

			min, max, err := pcd.MinMaxVec3(c)
			require.NoError(t, err)
			assert.InDelta(t, 0.037, min[2], 1e-5)
			assert.InDelta(t, 0.137, max[2], 1e-5)
		}
	}
}

func TestRun_Deterministic(t *testing.T) {
	pc := pcd.NewFromVec3s(tableScene(2))

	var expected *Result
	for _, workers := range []int{1, 3} {
		cfg := config.Default()
		cfg.Workers = workers
		p, err := New(cfg)
		require.NoError(t, err)
		res, err := p.Run(pc)
		require.NoError(t, err)
		if expected == nil {
			expected = res
			continue
		}
		require.Len(t, res.Planes, len(expected.Planes))
		for i := range res.Planes {
			assert.Equal(t, expected.Planes[i].Coefficients, res.Planes[i].Coefficients)
		}
		require.Len(t, res.Indices, len(expected.Indices))
		for i := range res.Indices {
			assert.Equal(t, expected.Indices[i].Indices, res.Indices[i].Indices)
		}
	}
}

func TestRun_SearchMethod(t *testing.T) {
	pc := pcd.NewFromVec3s(tableScene(3))

	cfg := config.Default()
	cfg.SearchMethod = config.SearchVoxelGrid
	p, err := New(cfg)
	require.NoError(t, err)
	res, err := p.Run(pc)
	require.NoError(t, err)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, 150, res.Clusters[0].Points)
}

func TestRun_MaxPlanes(t *testing.T) {
	var vs []mat.Vec3
	for z := 0; z < 2; z++ {
		for i := 0; i < 15; i++ {
			for j := 0; j < 20; j++ {
				vs = append(vs, mat.Vec3{float32(i)*0.05 + 0.001, float32(j)*0.05 + 0.001, float32(z)})
			}
		}
	}
	pc := pcd.NewFromVec3s(vs)

	for name, tt := range map[string]struct {
		maxPlanes        int
		expectedPlanes   int
		expectedResidual int
	}{
		"NoLimit":  {maxPlanes: 16, expectedPlanes: 2, expectedResidual: 0},
		"OnePlane": {maxPlanes: 1, expectedPlanes: 1, expectedResidual: 300},
		"Disabled": {maxPlanes: 0, expectedPlanes: 0, expectedResidual: 600},
	} {
		tt := tt
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.MaxPlanes = tt.maxPlanes
			p, err := New(cfg)
			require.NoError(t, err)
			res, err := p.Run(pc)
			require.NoError(t, err)
			assert.Len(t, res.Planes, tt.expectedPlanes)
			assert.Equal(t, tt.expectedResidual, res.Residual.Points)
		})
	}
}

func TestRun_NoPlaneFound(t *testing.T) {
	var vs []mat.Vec3
	for i := 0; i < 100; i++ {
		vs = append(vs, mat.Vec3{float32(i) * 0.05, 0, 0})
	}
	pc := pcd.NewFromVec3s(vs)

	t.Run("Abort", func(t *testing.T) {
		cfg := config.Default()
		cfg.NoPlanePolicy = config.NoPlaneAbort
		p, err := New(cfg)
		require.NoError(t, err)
		_, err = p.Run(pc)
		assert.True(t, errors.Is(err, pcd.ErrNoPlaneFound), "got %v", err)
	})
	t.Run("Accept", func(t *testing.T) {
		logger, logs := newObservedLogger()
		p, err := New(config.Default(), WithLogger(logger))
		require.NoError(t, err)
		res, err := p.Run(pc)
		require.NoError(t, err)
		assert.Empty(t, res.Planes)
		assert.Equal(t, 100, res.Residual.Points)
		assert.Empty(t, res.Clusters)
		assert.Len(t, logs.FilterLevelExact(zapcore.WarnLevel).All(), 1)
	})
}

func TestRun_Empty(t *testing.T) {
	p, err := New(config.Default())
	require.NoError(t, err)
	res, err := p.Run(pcd.NewFromVec3s(nil))
	require.NoError(t, err)
	assert.Equal(t, 0, res.FilteredPoints)
	assert.Empty(t, res.Clusters)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MinClusterSize = 30000
	_, err := New(cfg)
	assert.True(t, errors.Is(err, pcd.ErrInvalidParameter), "got %v", err)
}
