package pcd

import (
	"github.com/seqsense/pcdcluster/mat"
)

type Vec3RandomAccessor interface {
	Vec3At(int) mat.Vec3
	Len() int
}

type vec3Slice []mat.Vec3

func (s vec3Slice) Vec3At(i int) mat.Vec3 {
	return s[i]
}

func (s vec3Slice) Len() int {
	return len(s)
}

// NewVec3SliceRandomAccessor wraps a slice of positions.
func NewVec3SliceRandomAccessor(vs []mat.Vec3) Vec3RandomAccessor {
	return vec3Slice(vs)
}
