// Package euclidean extracts clusters of points connected by chains of
// neighbours closer than a distance tolerance.
package euclidean

import (
	"math"

	"github.com/pkg/errors"

	"github.com/seqsense/pcdcluster/mat"
	"github.com/seqsense/pcdcluster/pcd"
)

const initialSliceCap = 8192

// Searcher answers radius queries over the points of a cloud.
// Both kdtree.KDTree and voxelgrid.Index implement it.
type Searcher interface {
	RadiusSearch(p mat.Vec3, r float32) []int
	Len() int
}

type Options struct {
	Tolerance      float32
	MinClusterSize int
	MaxClusterSize int
}

func DefaultOptions() Options {
	return Options{
		Tolerance:      0.02,
		MinClusterSize: 100,
		MaxClusterSize: 25000,
	}
}

func (o Options) Validate() error {
	if !(o.Tolerance > 0) || math.IsInf(float64(o.Tolerance), 1) {
		return errors.Wrapf(pcd.ErrInvalidParameter, "cluster tolerance must be positive, got %v", o.Tolerance)
	}
	if o.MinClusterSize < 0 {
		return errors.Wrapf(pcd.ErrInvalidParameter, "min cluster size must not be negative, got %d", o.MinClusterSize)
	}
	if o.MinClusterSize > o.MaxClusterSize {
		return errors.Wrapf(pcd.ErrInvalidParameter, "min cluster size %d exceeds max %d", o.MinClusterSize, o.MaxClusterSize)
	}
	return nil
}

// Extract grows a region from each unvisited point in ascending index
// order. A region is returned only if its size is within
// [MinClusterSize, MaxClusterSize]; points of rejected regions are not
// reconsidered. Indices of each cluster are sorted ascending.
func Extract(pc *pcd.PointCloud, s Searcher, opts Options) ([]*pcd.IndexSet, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if s.Len() != pc.Points {
		return nil, errors.Wrapf(pcd.ErrInvalidParameter, "search index has %d points, cloud has %d", s.Len(), pc.Points)
	}
	if pc.Points == 0 {
		return nil, nil
	}
	it, err := pc.Vec3Iterator()
	if err != nil {
		return nil, err
	}

	n := pc.Points
	visited := make([]bool, n)
	next := make([]int, 0, initialSliceCap)
	var clusters []*pcd.IndexSet

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true
		if p := it.Vec3At(i); !p.IsFinite() {
			continue
		}

		next = append(next[:0], i)
		for head := 0; head < len(next); head++ {
			p := it.Vec3At(next[head])
			for _, j := range s.RadiusSearch(p, opts.Tolerance) {
				if visited[j] {
					continue
				}
				visited[j] = true
				next = append(next, j)
			}
		}

		if len(next) < opts.MinClusterSize || len(next) > opts.MaxClusterSize {
			continue
		}
		cluster := pcd.NewIndexSet(pc, append([]int(nil), next...))
		cluster.Sort()
		clusters = append(clusters, cluster)
	}
	return clusters, nil
}
