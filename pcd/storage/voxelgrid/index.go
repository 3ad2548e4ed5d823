package voxelgrid

import (
	"sort"

	"github.com/seqsense/pcdcluster/mat"
	"github.com/seqsense/pcdcluster/pcd"
)

// Index answers radius queries by scanning the cells around the query
// point. It works best when the cell size is close to the query radius.
type Index struct {
	grid   *VoxelGrid
	points []mat.Vec3
	cell   float32
}

// NewIndex builds an Index over a copy of the points of ra.
// Non-finite points are stored but never returned.
func NewIndex(ra pcd.Vec3RandomAccessor, cell float32) *Index {
	n := ra.Len()
	idx := &Index{
		grid:   New(mat.Vec3{cell, cell, cell}),
		points: make([]mat.Vec3, n),
		cell:   cell,
	}
	for i := 0; i < n; i++ {
		p := ra.Vec3At(i)
		idx.points[i] = p
		idx.grid.Add(p, i)
	}
	return idx
}

func (idx *Index) Len() int {
	return len(idx.points)
}

// RadiusSearch returns indices of the points within r of p in ascending
// order.
func (idx *Index) RadiusSearch(p mat.Vec3, r float32) []int {
	if !p.IsFinite() || r < 0 {
		return nil
	}
	lo, ok := idx.grid.Key(p.Sub(mat.Vec3{r, r, r}))
	if !ok {
		return nil
	}
	hi, ok := idx.grid.Key(p.Add(mat.Vec3{r, r, r}))
	if !ok {
		return nil
	}
	var out []int
	rsq := r * r
	if span := float64(hi[0]-lo[0]+1) * float64(hi[1]-lo[1]+1) * float64(hi[2]-lo[2]+1); span > float64(idx.grid.Len()) {
		// radius covers more cells than are occupied
		for _, k := range idx.grid.Keys() {
			if !inRange(k, lo, hi) {
				continue
			}
			out = idx.appendWithin(out, idx.grid.GetByKey(k), p, rsq)
		}
	} else {
		for x := lo[0]; x <= hi[0]; x++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for z := lo[2]; z <= hi[2]; z++ {
					out = idx.appendWithin(out, idx.grid.GetByKey(Key{x, y, z}), p, rsq)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}

func (idx *Index) appendWithin(out, cand []int, p mat.Vec3, rsq float32) []int {
	for _, i := range cand {
		if idx.points[i].DistSq(p) <= rsq {
			out = append(out, i)
		}
	}
	return out
}

func inRange(k, lo, hi Key) bool {
	for i := range k {
		if k[i] < lo[i] || k[i] > hi[i] {
			return false
		}
	}
	return true
}
