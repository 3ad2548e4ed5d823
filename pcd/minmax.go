package pcd

import (
	"math"

	"github.com/pkg/errors"

	"github.com/seqsense/pcdcluster/mat"
)

// MinMaxVec3 returns the bounding box of the finite points in the cloud.
func MinMaxVec3(pc *PointCloud) (mat.Vec3, mat.Vec3, error) {
	it, err := pc.Vec3Iterator()
	if err != nil {
		return mat.Vec3{}, mat.Vec3{}, err
	}
	return MinMaxVec3RandomAccessor(it)
}

func MinMaxVec3RandomAccessor(ra Vec3RandomAccessor) (mat.Vec3, mat.Vec3, error) {
	min := mat.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max := mat.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	var found bool
	n := ra.Len()
	for j := 0; j < n; j++ {
		v := ra.Vec3At(j)
		if !v.IsFinite() {
			continue
		}
		found = true
		for i := range v {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	if !found {
		return mat.Vec3{}, mat.Vec3{}, errors.New("no point")
	}
	return min, max, nil
}
