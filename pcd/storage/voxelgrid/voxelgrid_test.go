package voxelgrid

import (
	"math"
	"reflect"
	"testing"

	"github.com/seqsense/pcdcluster/mat"
)

func TestVoxelGrid(t *testing.T) {
	v := New(mat.Vec3{0.5, 0.5, 0.5})

	nan := float32(math.NaN())
	points := []mat.Vec3{
		{nan, 0, 0},
		{2, 5, 10},
		{2.1, 5, 10},
		{2 + 1, 5 + 1, 10 + 1},
		{-0.01, -0.01, -0.01},
	}

	if v.Add(points[0], 0) {
		t.Error("Non-finite point should not be added")
	}
	for i := 1; i < len(points); i++ {
		if !v.Add(points[i], i) {
			t.Errorf("Point %d should be added", i)
		}
	}

	if ids := v.Get(points[0]); ids != nil {
		t.Error("Non-finite point should not be found")
	}
	if ids := v.Get(points[1]); !reflect.DeepEqual([]int{1, 2}, ids) {
		t.Errorf("Points in the voxel differs: %v", ids)
	}
	if ids := v.Get(points[2]); !reflect.DeepEqual([]int{1, 2}, ids) {
		t.Errorf("Points in the voxel differs: %v", ids)
	}
	if ids := v.Get(points[3]); !reflect.DeepEqual([]int{3}, ids) {
		t.Errorf("Points in the voxel differs: %v", ids)
	}
	if ids := v.Get(mat.Vec3{100, 100, 100}); ids != nil {
		t.Error("Empty voxel should return nil")
	}

	if k, _ := v.Key(points[4]); k != (Key{-1, -1, -1}) {
		t.Errorf("Negative coordinates must floor, got %v", k)
	}
	if n := v.Len(); n != 3 {
		t.Errorf("Expected 3 occupied voxels, got %d", n)
	}
	expectedKeys := []Key{{4, 10, 20}, {6, 12, 22}, {-1, -1, -1}}
	if !reflect.DeepEqual(expectedKeys, v.Keys()) {
		t.Errorf("Expected keys in insertion order %v, got %v", expectedKeys, v.Keys())
	}
}

func TestVoxelGrid_KeyOverflow(t *testing.T) {
	v := New(mat.Vec3{1e-10, 1e-10, 1e-10})
	if _, ok := v.Key(mat.Vec3{1e10, 0, 0}); ok {
		t.Error("Overflowing key must be rejected")
	}
}
