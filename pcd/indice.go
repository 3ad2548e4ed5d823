package pcd

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/seqsense/pcdcluster/mat"
)

type indiceVec3RandomAccessor struct {
	indice []int
	ra     Vec3RandomAccessor
}

func (i *indiceVec3RandomAccessor) Len() int {
	return len(i.indice)
}

func (i *indiceVec3RandomAccessor) Vec3At(j int) mat.Vec3 {
	return i.ra.Vec3At(i.indice[j])
}

func NewIndiceVec3RandomAccessor(ra Vec3RandomAccessor, indice []int) Vec3RandomAccessor {
	return &indiceVec3RandomAccessor{
		ra:     ra,
		indice: indice,
	}
}

// IndexSet is a list of point indices into Source.
// Source is not owned by the IndexSet and must outlive it.
type IndexSet struct {
	Source  *PointCloud
	Indices []int
}

func NewIndexSet(src *PointCloud, indices []int) *IndexSet {
	return &IndexSet{Source: src, Indices: indices}
}

func (s *IndexSet) Len() int {
	return len(s.Indices)
}

// Validate checks that every index is inside Source.
func (s *IndexSet) Validate() error {
	if s.Source == nil {
		return errors.New("index set has no source cloud")
	}
	for _, i := range s.Indices {
		if i < 0 || i >= s.Source.Points {
			return errors.Errorf("index %d out of range [0, %d)", i, s.Source.Points)
		}
	}
	return nil
}

// Extract copies the selected records into a new unorganized cloud
// with the field layout of Source.
func (s *IndexSet) Extract() (*PointCloud, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out := New(s.Source.PointCloudHeader, len(s.Indices))
	for j, i := range s.Indices {
		Copy(out, j, s.Source, i, 1)
	}
	out.IsDense = s.Source.IsDense
	if !out.IsDense && out.Points > 0 {
		it, err := out.Vec3Iterator()
		if err != nil {
			return nil, err
		}
		out.IsDense = true
		for ; it.IsValid(); it.Incr() {
			if v := it.Vec3(); !v.IsFinite() {
				out.IsDense = false
				break
			}
		}
	}
	return out, nil
}

// Complement returns the indices of Source not contained in s, in
// ascending order.
func (s *IndexSet) Complement() *IndexSet {
	in := make([]bool, s.Source.Points)
	for _, i := range s.Indices {
		if i >= 0 && i < len(in) {
			in[i] = true
		}
	}
	var out []int
	for i, ok := range in {
		if !ok {
			out = append(out, i)
		}
	}
	return &IndexSet{Source: s.Source, Indices: out}
}

// Vec3RandomAccessor returns positions of the selected points.
func (s *IndexSet) Vec3RandomAccessor() (Vec3RandomAccessor, error) {
	it, err := s.Source.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	return NewIndiceVec3RandomAccessor(it, s.Indices), nil
}

// Sort orders the indices ascending.
func (s *IndexSet) Sort() {
	sort.Ints(s.Indices)
}
