// Package kdtree provides a static 3-d tree for neighbour queries.
//
// The tree is stored implicitly in a single permutation slice: the node of
// the range [lo, hi) is at the middle element, and its children are the
// ranges on either side. No per-node allocation is made.
package kdtree

import (
	"sort"

	"github.com/seqsense/pcdcluster/mat"
	"github.com/seqsense/pcdcluster/pcd"
)

type KDTree struct {
	points []mat.Vec3
	ids    []int
	axis   []uint8
	source *pcd.PointCloud
}

// NewFromPointCloud builds a tree over the positions of pc.
// Results of RadiusQuery refer to pc.
func NewFromPointCloud(pc *pcd.PointCloud) (*KDTree, error) {
	if pc.Points == 0 {
		t := New(pcd.NewVec3SliceRandomAccessor(nil))
		t.source = pc
		return t, nil
	}
	it, err := pc.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	t := New(it)
	t.source = pc
	return t, nil
}

// New builds a tree over a copy of the points of ra.
// Later changes to the source do not affect the tree. Non-finite points
// are kept in the index space but never returned.
func New(ra pcd.Vec3RandomAccessor) *KDTree {
	n := ra.Len()
	t := &KDTree{
		points: make([]mat.Vec3, n),
		ids:    make([]int, 0, n),
	}
	for i := 0; i < n; i++ {
		p := ra.Vec3At(i)
		t.points[i] = p
		if p.IsFinite() {
			t.ids = append(t.ids, i)
		}
	}
	t.axis = make([]uint8, len(t.ids))
	t.build(0, len(t.ids), 0)
	return t
}

// Len returns the number of points the tree was built from.
func (t *KDTree) Len() int {
	return len(t.points)
}

// Vec3At returns the position of the i-th point.
func (t *KDTree) Vec3At(i int) mat.Vec3 {
	return t.points[i]
}

func (t *KDTree) build(lo, hi, depth int) {
	if hi-lo <= 0 {
		return
	}
	axis := depth % 3
	m := (lo + hi) / 2
	t.nthElement(t.ids[lo:hi], m-lo, axis)
	t.axis[m] = uint8(axis)
	t.build(lo, m, depth+1)
	t.build(m+1, hi, depth+1)
}

// nthElement partially sorts ids so that ids[k] is in its sorted position
// along axis, with smaller or equal elements before it and larger or equal
// elements after it.
func (t *KDTree) nthElement(ids []int, k int, axis int) {
	lo, hi := 0, len(ids)-1
	for lo < hi {
		pivot := t.points[ids[(lo+hi)/2]][axis]
		i, j := lo, hi
		for i <= j {
			for t.points[ids[i]][axis] < pivot {
				i++
			}
			for t.points[ids[j]][axis] > pivot {
				j--
			}
			if i <= j {
				ids[i], ids[j] = ids[j], ids[i]
				i++
				j--
			}
		}
		switch {
		case k <= j:
			hi = j
		case k >= i:
			lo = i
		default:
			return
		}
	}
}

// RadiusSearch returns indices of all points within r of p, in ascending
// index order.
func (t *KDTree) RadiusSearch(p mat.Vec3, r float32) []int {
	if !p.IsFinite() || r < 0 {
		return nil
	}
	var out []int
	t.radiusSearch(0, len(t.ids), p, r*r, &out)
	sort.Ints(out)
	return out
}

// RadiusQuery is RadiusSearch returning indices into the cloud the tree
// was built from with NewFromPointCloud.
func (t *KDTree) RadiusQuery(p mat.Vec3, r float32) *pcd.IndexSet {
	return pcd.NewIndexSet(t.source, t.RadiusSearch(p, r))
}

func (t *KDTree) radiusSearch(lo, hi int, p mat.Vec3, rsq float32, out *[]int) {
	for lo < hi {
		m := (lo + hi) / 2
		i := t.ids[m]
		q := t.points[i]
		if q.DistSq(p) <= rsq {
			*out = append(*out, i)
		}
		axis := t.axis[m]
		d := p[axis] - q[axis]
		goLeft := d <= 0 || d*d <= rsq
		goRight := d >= 0 || d*d <= rsq
		switch {
		case goLeft && goRight:
			t.radiusSearch(lo, m, p, rsq, out)
			lo = m + 1
		case goLeft:
			hi = m
		default:
			lo = m + 1
		}
	}
}

// Nearest returns the index of the point closest to p and the squared
// distance to it. ok is false if the tree has no finite point.
func (t *KDTree) Nearest(p mat.Vec3) (index int, distSq float32, ok bool) {
	ns := t.KNearest(p, 1)
	if len(ns) == 0 {
		return 0, 0, false
	}
	return ns[0].Index, ns[0].DistSq, true
}

type Neighbor struct {
	Index  int
	DistSq float32
}

func (n Neighbor) less(a Neighbor) bool {
	if n.DistSq != a.DistSq {
		return n.DistSq < a.DistSq
	}
	return n.Index < a.Index
}

// KNearest returns up to k points closest to p ordered by distance.
// Ties are ordered by index.
func (t *KDTree) KNearest(p mat.Vec3, k int) []Neighbor {
	if k <= 0 || !p.IsFinite() || len(t.ids) == 0 {
		return nil
	}
	ns := make([]Neighbor, 0, k+1)
	t.kNearest(0, len(t.ids), p, k, &ns)
	return ns
}

func (t *KDTree) kNearest(lo, hi int, p mat.Vec3, k int, ns *[]Neighbor) {
	if lo >= hi {
		return
	}
	m := (lo + hi) / 2
	i := t.ids[m]
	q := t.points[i]
	insertNeighbor(ns, Neighbor{Index: i, DistSq: q.DistSq(p)}, k)

	axis := t.axis[m]
	d := p[axis] - q[axis]
	nearLo, nearHi, farLo, farHi := lo, m, m+1, hi
	if d > 0 {
		nearLo, nearHi, farLo, farHi = m+1, hi, lo, m
	}
	t.kNearest(nearLo, nearHi, p, k, ns)
	if len(*ns) < k || d*d <= (*ns)[len(*ns)-1].DistSq {
		t.kNearest(farLo, farHi, p, k, ns)
	}
}

func insertNeighbor(ns *[]Neighbor, n Neighbor, k int) {
	s := *ns
	if len(s) == k && !n.less(s[len(s)-1]) {
		return
	}
	pos := sort.Search(len(s), func(j int) bool { return n.less(s[j]) })
	s = append(s, Neighbor{})
	copy(s[pos+1:], s[pos:])
	s[pos] = n
	if len(s) > k {
		s = s[:k]
	}
	*ns = s
}
