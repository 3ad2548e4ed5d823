package sac

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	gmat "gonum.org/v1/gonum/mat"

	"github.com/seqsense/pcdcluster/mat"
	"github.com/seqsense/pcdcluster/pcd"
)

// collinearEpsilon is the squared sine of the smallest accepted angle
// between the two edges of a sample.
const collinearEpsilon = 1e-12

type planeModel struct {
	ra        pcd.Vec3RandomAccessor
	threshold float64
}

// NewPlaneModel returns a model fitting planes to three points.
// Hypotheses are scored by the number of points within threshold.
func NewPlaneModel(ra pcd.Vec3RandomAccessor, threshold float32) Model {
	return &planeModel{ra: ra, threshold: float64(threshold)}
}

func (planeModel) NumRange() (min, max int) {
	return 3, 3
}

func vector(v mat.Vec3) r3.Vector {
	return r3.Vector{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

func (m *planeModel) Fit(ids []int) (ModelCoefficients, bool) {
	if len(ids) != 3 {
		return nil, false
	}
	var ps [3]r3.Vector
	for i, id := range ids {
		v := m.ra.Vec3At(id)
		if !v.IsFinite() {
			return nil, false
		}
		ps[i] = vector(v)
	}
	v1, v2 := ps[1].Sub(ps[0]), ps[2].Sub(ps[0])
	norm := v1.Cross(v2)
	n2 := norm.Norm2()
	if n2 == 0 || n2 <= collinearEpsilon*v1.Norm2()*v2.Norm2() {
		return nil, false
	}
	norm = norm.Normalize()
	return &planeCoefficients{
		model: m,
		norm:  norm,
		d:     -norm.Dot(ps[0]),
	}, true
}

type planeCoefficients struct {
	model *planeModel
	norm  r3.Vector
	d     float64
}

func (c *planeCoefficients) distance(p mat.Vec3) float64 {
	return math.Abs(c.norm.Dot(vector(p)) + c.d)
}

func (c *planeCoefficients) Evaluate() int {
	var cnt int
	n := c.model.ra.Len()
	for i := 0; i < n; i++ {
		if c.distance(c.model.ra.Vec3At(i)) <= c.model.threshold {
			cnt++
		}
	}
	return cnt
}

func (c *planeCoefficients) Inliers(d float32) []int {
	n := c.model.ra.Len()
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if c.distance(c.model.ra.Vec3At(i)) <= float64(d) {
			out = append(out, i)
		}
	}
	return out
}

func (c *planeCoefficients) IsIn(p mat.Vec3, d float32) bool {
	return c.distance(p) <= float64(d)
}

// Coefficients returns a, b, c and d of ax+by+cz+d=0 with a unit normal.
func (c *planeCoefficients) Coefficients() [4]float32 {
	return [4]float32{float32(c.norm.X), float32(c.norm.Y), float32(c.norm.Z), float32(c.d)}
}

// refit returns the least squares plane of the given points, keeping the
// normal on the same side as the current one.
func (c *planeCoefficients) refit(ids []int) (*planeCoefficients, bool) {
	if len(ids) < 3 {
		return nil, false
	}
	var centroid r3.Vector
	for _, id := range ids {
		centroid = centroid.Add(vector(c.model.ra.Vec3At(id)))
	}
	centroid = centroid.Mul(1 / float64(len(ids)))

	var xx, xy, xz, yy, yz, zz float64
	for _, id := range ids {
		p := vector(c.model.ra.Vec3At(id)).Sub(centroid)
		xx += p.X * p.X
		xy += p.X * p.Y
		xz += p.X * p.Z
		yy += p.Y * p.Y
		yz += p.Y * p.Z
		zz += p.Z * p.Z
	}
	cov := gmat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})
	var eigen gmat.EigenSym
	if ok := eigen.Factorize(cov, true); !ok {
		return nil, false
	}
	var vecs gmat.Dense
	eigen.VectorsTo(&vecs)

	// Eigenvalues are in ascending order.
	norm := r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
	if norm.Norm2() == 0 {
		return nil, false
	}
	norm = norm.Normalize()
	if norm.Dot(c.norm) < 0 {
		norm = norm.Mul(-1)
	}
	return &planeCoefficients{
		model: c.model,
		norm:  norm,
		d:     -norm.Dot(centroid),
	}, true
}

// PlaneModel is a fitted plane and the points which support it.
type PlaneModel struct {
	// Coefficients are a, b, c and d of ax+by+cz+d=0 with a unit normal.
	Coefficients [4]float32
	Inliers      *pcd.IndexSet
}

// Distance returns the unsigned distance from p to the plane.
func (m *PlaneModel) Distance(p mat.Vec3) float32 {
	c := m.Coefficients
	return float32(math.Abs(float64(c[0]*p[0] + c[1]*p[1] + c[2]*p[2] + c[3])))
}

type PlaneOptions struct {
	MaxIterations        int
	DistanceThreshold    float32
	OptimizeCoefficients bool
	// Rand is the random source used for sampling.
	// A source seeded with 1 is used if nil.
	Rand    *rand.Rand
	Workers int
}

func DefaultPlaneOptions() PlaneOptions {
	return PlaneOptions{
		MaxIterations:        100,
		DistanceThreshold:    0.02,
		OptimizeCoefficients: true,
	}
}

func (o PlaneOptions) Validate() error {
	if o.MaxIterations < 1 {
		return errors.Wrapf(pcd.ErrInvalidParameter, "max iterations must be positive, got %d", o.MaxIterations)
	}
	if !(o.DistanceThreshold >= 0) || math.IsInf(float64(o.DistanceThreshold), 1) {
		return errors.Wrapf(pcd.ErrInvalidParameter, "distance threshold must be finite and non-negative, got %v", o.DistanceThreshold)
	}
	return nil
}

// SegmentPlane finds the plane supported by the largest number of points
// of pc. The returned model may have no inliers if no hypothesis could be
// fit, such as when all points are collinear.
// With OptimizeCoefficients the coefficients are refit, but the inliers
// are still those of the best sampled hypothesis; they are not re-selected
// against the refit plane.
func SegmentPlane(pc *pcd.PointCloud, opts PlaneOptions) (*PlaneModel, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if pc.Points < 3 {
		return nil, errors.Wrapf(pcd.ErrDegenerateInput, "plane needs 3 points, got %d", pc.Points)
	}
	it, err := pc.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}

	s := New(NewRandomSampler(rnd, pc.Points), NewPlaneModel(it, opts.DistanceThreshold))
	s.Workers = opts.Workers
	ok, err := s.Compute(opts.MaxIterations)
	if err != nil {
		return nil, errors.Wrap(err, "plane consensus")
	}
	if !ok {
		return &PlaneModel{Inliers: pcd.NewIndexSet(pc, nil)}, nil
	}

	coeff := s.Coefficients().(*planeCoefficients)
	inliers := coeff.Inliers(opts.DistanceThreshold)
	if opts.OptimizeCoefficients {
		if refined, ok := coeff.refit(inliers); ok {
			coeff = refined
		}
	}
	return &PlaneModel{
		Coefficients: coeff.Coefficients(),
		Inliers:      pcd.NewIndexSet(pc, inliers),
	}, nil
}
