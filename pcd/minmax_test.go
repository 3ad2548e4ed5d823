package pcd

import (
	"math"
	"testing"

	"github.com/seqsense/pcdcluster/mat"
	"github.com/seqsense/pcdcluster/pcd/internal/float"
)

func TestMinMaxVec3(t *testing.T) {
	pc := PointCloud{
		PointCloudHeader: XYZHeader(4),
		Points:           4,
		Data: float.Float32SliceAsByteSlice([]float32{
			10.1, -20.2, 3.3,
			1.1, 2.2, 4.3,
			float32(math.NaN()), 100, 100,
			15.1, 21.2, 0.3,
		}),
	}

	expectedMin := mat.Vec3{1.1, -20.2, 0.3}
	expectedMax := mat.Vec3{15.1, 21.2, 4.3}

	min, max, err := MinMaxVec3(&pc)
	if err != nil {
		t.Fatal(err)
	}

	if !expectedMin.Equal(min) {
		t.Errorf("Expected min: %v, got: %v", expectedMin, min)
	}
	if !expectedMax.Equal(max) {
		t.Errorf("Expected max: %v, got: %v", expectedMax, max)
	}

	if _, _, err := MinMaxVec3(NewFromVec3s(nil)); err == nil {
		t.Error("Expected error on empty cloud")
	}
}
