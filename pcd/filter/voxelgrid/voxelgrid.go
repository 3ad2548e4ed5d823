// Package voxelgrid implements a downsampling filter which replaces the
// points inside each occupied voxel with their centroid.
package voxelgrid

import (
	"math"

	"github.com/pkg/errors"

	"github.com/seqsense/pcdcluster/mat"
	"github.com/seqsense/pcdcluster/pcd"
	"github.com/seqsense/pcdcluster/pcd/filter"
	storage "github.com/seqsense/pcdcluster/pcd/storage/voxelgrid"
)

type Options struct {
	LeafSize mat.Vec3
}

type voxelGrid struct {
	Options
}

type voxel struct {
	sum   [3]float64
	num   int
	index int
}

func New(leafSize mat.Vec3) filter.Filter {
	vg := &voxelGrid{
		Options: Options{
			LeafSize: leafSize,
		},
	}
	return vg
}

// ValidateLeafSize returns pcd.ErrInvalidParameter unless every
// dimension is finite and positive.
func ValidateLeafSize(l mat.Vec3) error {
	for i, s := range l {
		if !(s > 0) || math.IsInf(float64(s), 1) {
			return errors.Wrapf(pcd.ErrInvalidParameter, "leaf size[%d] must be positive, got %v", i, s)
		}
	}
	return nil
}

// Filter returns an unorganized dense cloud with one point per occupied
// voxel. Other fields of each output point are copied from the first
// input point of the voxel. Non-finite points are dropped.
func (f *voxelGrid) Filter(pc *pcd.PointCloud) (*pcd.PointCloud, error) {
	if err := ValidateLeafSize(f.LeafSize); err != nil {
		return nil, err
	}
	if pc.Points == 0 {
		out := pcd.New(pc.PointCloudHeader, 0)
		return out, nil
	}
	it, err := pc.Vec3Iterator()
	if err != nil {
		return nil, err
	}

	grid := storage.New(f.LeafSize)
	var voxels []voxel
	for i := 0; it.IsValid(); it.Incr() {
		p := it.Vec3()
		if !p.IsFinite() {
			i++
			continue
		}
		k, ok := grid.Key(p)
		if !ok {
			return nil, errors.Wrapf(pcd.ErrInvalidParameter, "leaf size %v is too small for point %v", f.LeafSize, p)
		}
		slot := grid.GetByKey(k)
		if slot == nil {
			grid.AddByKey(k, len(voxels))
			voxels = append(voxels, voxel{index: i})
			slot = grid.GetByKey(k)
		}
		v := &voxels[slot[0]]
		v.num++
		v.sum[0] += float64(p[0])
		v.sum[1] += float64(p[1])
		v.sum[2] += float64(p[2])
		i++
	}

	n := len(voxels)
	newPc := pcd.New(pc.PointCloudHeader, n)
	if n == 0 {
		return newPc, nil
	}
	jt, err := newPc.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	for j := range voxels {
		v := &voxels[j]
		pcd.Copy(newPc, j, pc, v.index, 1)
		inv := 1 / float64(v.num)
		jt.SetVec3(mat.Vec3{
			float32(v.sum[0] * inv),
			float32(v.sum[1] * inv),
			float32(v.sum[2] * inv),
		})
		jt.Incr()
	}
	return newPc, nil
}
