// Package voxelgrid provides a sparse voxel grid keyed by integer cell
// coordinates. Cells are allocated on first use, so the grid covers an
// unbounded space.
package voxelgrid

import (
	"math"

	"github.com/seqsense/pcdcluster/mat"
)

// Key is the integer cell coordinate floor(p/leaf) of a point.
type Key [3]int

func (k Key) Add(d Key) Key {
	return Key{k[0] + d[0], k[1] + d[1], k[2] + d[2]}
}

// maxKey keeps cell coordinates representable on every platform.
const maxKey = 1 << 31

type VoxelGrid struct {
	voxel   map[Key]int
	indices [][]int
	keys    []Key
	leaf    [3]float64
}

func New(leafSize mat.Vec3) *VoxelGrid {
	return &VoxelGrid{
		voxel: make(map[Key]int),
		leaf: [3]float64{
			float64(leafSize[0]),
			float64(leafSize[1]),
			float64(leafSize[2]),
		},
	}
}

// Key returns the cell of p. ok is false if p is not finite or the cell
// coordinate does not fit.
func (v *VoxelGrid) Key(p mat.Vec3) (Key, bool) {
	var k Key
	for i := range p {
		f := math.Floor(float64(p[i]) / v.leaf[i])
		if math.IsNaN(f) || f >= maxKey || f < -maxKey {
			return Key{}, false
		}
		k[i] = int(f)
	}
	return k, true
}

// Add stores index in the cell of p.
func (v *VoxelGrid) Add(p mat.Vec3, index int) bool {
	k, ok := v.Key(p)
	if !ok {
		return false
	}
	v.AddByKey(k, index)
	return true
}

func (v *VoxelGrid) AddByKey(k Key, index int) {
	slot, ok := v.voxel[k]
	if !ok {
		slot = len(v.keys)
		v.voxel[k] = slot
		v.keys = append(v.keys, k)
		v.indices = append(v.indices, nil)
	}
	v.indices[slot] = append(v.indices[slot], index)
}

func (v *VoxelGrid) Get(p mat.Vec3) []int {
	k, ok := v.Key(p)
	if !ok {
		return nil
	}
	return v.GetByKey(k)
}

func (v *VoxelGrid) GetByKey(k Key) []int {
	slot, ok := v.voxel[k]
	if !ok {
		return nil
	}
	return v.indices[slot]
}

// Keys returns occupied cells in the order they were first occupied.
func (v *VoxelGrid) Keys() []Key {
	return v.keys
}

// Len returns the number of occupied cells.
func (v *VoxelGrid) Len() int {
	return len(v.keys)
}
