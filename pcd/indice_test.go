package pcd

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsense/pcdcluster/mat"
)

func TestIndexSet(t *testing.T) {
	nan := float32(math.NaN())
	src := NewFromVec3s([]mat.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{nan, 0, 0},
		{3, 0, 0},
		{4, 0, 0},
	})

	t.Run("Extract", func(t *testing.T) {
		s := NewIndexSet(src, []int{4, 1})
		out, err := s.Extract()
		require.NoError(t, err)
		require.NoError(t, out.Validate())
		assert.Equal(t, 2, out.Width)
		assert.Equal(t, 1, out.Height)
		assert.True(t, out.IsDense)

		vs, err := out.Vec3s()
		require.NoError(t, err)
		if diff := cmp.Diff([]mat.Vec3{{4, 0, 0}, {1, 0, 0}}, vs); diff != "" {
			t.Errorf("Extracted points differ (-want +got):\n%s", diff)
		}
	})

	t.Run("ExtractNonFinite", func(t *testing.T) {
		out, err := NewIndexSet(src, []int{2}).Extract()
		require.NoError(t, err)
		assert.False(t, out.IsDense)
	})

	t.Run("ExtractOutOfRange", func(t *testing.T) {
		_, err := NewIndexSet(src, []int{5}).Extract()
		assert.Error(t, err)
	})

	t.Run("Complement", func(t *testing.T) {
		c := NewIndexSet(src, []int{3, 0}).Complement()
		assert.Same(t, src, c.Source)
		if diff := cmp.Diff([]int{1, 2, 4}, c.Indices); diff != "" {
			t.Errorf("Complement differs (-want +got):\n%s", diff)
		}
	})

	t.Run("Sort", func(t *testing.T) {
		s := NewIndexSet(src, []int{4, 0, 3, 1})
		s.Sort()
		assert.Same(t, src, s.Source)
		if diff := cmp.Diff([]int{0, 1, 3, 4}, s.Indices); diff != "" {
			t.Errorf("Sorted indices differ (-want +got):\n%s", diff)
		}
	})

	t.Run("Vec3RandomAccessor", func(t *testing.T) {
		ra, err := NewIndexSet(src, []int{3, 1}).Vec3RandomAccessor()
		require.NoError(t, err)
		assert.Equal(t, 2, ra.Len())
		assert.Equal(t, mat.Vec3{1, 0, 0}, ra.Vec3At(1))
	})
}
