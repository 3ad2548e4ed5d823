// Package pipeline isolates objects resting on a supporting plane.
//
// A run downsamples the input with a voxel grid, repeatedly removes the
// dominant plane, and groups the remaining points into Euclidean clusters.
package pipeline

import (
	"math/rand"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/seqsense/pcdcluster/config"
	"github.com/seqsense/pcdcluster/mat"
	"github.com/seqsense/pcdcluster/pcd"
	"github.com/seqsense/pcdcluster/pcd/filter"
	"github.com/seqsense/pcdcluster/pcd/filter/voxelgrid"
	"github.com/seqsense/pcdcluster/pcd/sac"
	"github.com/seqsense/pcdcluster/pcd/segmentation/euclidean"
	"github.com/seqsense/pcdcluster/pcd/storage/kdtree"
	storage "github.com/seqsense/pcdcluster/pcd/storage/voxelgrid"
)

type Pipeline struct {
	cfg    config.Config
	logger *zap.SugaredLogger
	filter filter.Filter
}

type Option func(*Pipeline)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		logger: zap.NewNop().Sugar(),
		filter: voxelgrid.New(mat.Vec3(cfg.LeafSize)),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Plane is a planar component removed from the working cloud.
type Plane struct {
	Coefficients [4]float32
	Cloud        *pcd.PointCloud
}

type Result struct {
	InputPoints    int
	FilteredPoints int
	Planes         []Plane
	// Residual is the cloud left after plane removal.
	Residual *pcd.PointCloud
	// Clusters are in the order their first point appears in Residual.
	Clusters []*pcd.PointCloud
	// Indices are the points of each cluster in Residual.
	Indices []*pcd.IndexSet
}

func (p *Pipeline) Run(pc *pcd.PointCloud) (*Result, error) {
	if err := pc.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid input cloud")
	}
	res := &Result{InputPoints: pc.Points}
	p.logger.Infow("point cloud before filtering", "points", pc.Points)

	filtered, err := p.filter.Filter(pc)
	if err != nil {
		return nil, errors.Wrap(err, "voxel grid filter")
	}
	res.FilteredPoints = filtered.Points
	p.logger.Infow("point cloud after filtering", "points", filtered.Points)

	residual, planes, err := p.removePlanes(filtered)
	if err != nil {
		return nil, err
	}
	res.Planes = planes
	res.Residual = residual

	indices, err := p.cluster(residual)
	if err != nil {
		return nil, err
	}
	res.Indices = indices
	for i, s := range indices {
		c, err := s.Extract()
		if err != nil {
			return nil, errors.Wrapf(err, "extracting cluster %d", i)
		}
		p.logger.Infow("cluster", "id", i, "points", c.Points)
		res.Clusters = append(res.Clusters, c)
	}
	return res, nil
}

func (p *Pipeline) removePlanes(filtered *pcd.PointCloud) (*pcd.PointCloud, []Plane, error) {
	rnd := rand.New(rand.NewSource(p.cfg.Seed))
	opts := sac.PlaneOptions{
		MaxIterations:        p.cfg.PlaneMaxIterations,
		DistanceThreshold:    p.cfg.PlaneDistanceThreshold,
		OptimizeCoefficients: p.cfg.PlaneOptimizeCoefficients,
		Rand:                 rnd,
		Workers:              p.cfg.Workers,
	}

	limit := float64(p.cfg.PlaneRemainingRatio) * float64(filtered.Points)
	working := filtered
	var planes []Plane
	for float64(working.Points) > limit {
		if len(planes) >= p.cfg.MaxPlanes {
			p.logger.Debugw("plane limit reached", "planes", len(planes), "remaining", working.Points)
			break
		}
		if working.Points < 3 {
			break
		}
		m, err := sac.SegmentPlane(working, opts)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "segmenting plane %d", len(planes))
		}
		if m.Inliers.Len() == 0 {
			err := errors.Wrapf(pcd.ErrNoPlaneFound, "plane %d, %d points remaining", len(planes), working.Points)
			if p.cfg.NoPlanePolicy == config.NoPlaneAbort {
				return nil, nil, err
			}
			p.logger.Warnw("accepting remaining points as residual", "error", err)
			break
		}

		cloud, err := m.Inliers.Extract()
		if err != nil {
			return nil, nil, err
		}
		rest, err := m.Inliers.Complement().Extract()
		if err != nil {
			return nil, nil, err
		}
		p.logger.Infow("planar component",
			"id", len(planes),
			"points", cloud.Points,
			"coefficients", m.Coefficients,
			"remaining", rest.Points,
		)
		planes = append(planes, Plane{Coefficients: m.Coefficients, Cloud: cloud})
		working = rest
	}
	return working, planes, nil
}

func (p *Pipeline) cluster(residual *pcd.PointCloud) ([]*pcd.IndexSet, error) {
	opts := euclidean.Options{
		Tolerance:      p.cfg.ClusterTolerance,
		MinClusterSize: p.cfg.MinClusterSize,
		MaxClusterSize: p.cfg.MaxClusterSize,
	}
	if residual.Points == 0 {
		return nil, nil
	}
	it, err := residual.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	var s euclidean.Searcher
	switch p.cfg.SearchMethod {
	case config.SearchVoxelGrid:
		s = storage.NewIndex(it, p.cfg.ClusterTolerance)
	default:
		if s, err = kdtree.NewFromPointCloud(residual); err != nil {
			return nil, err
		}
	}
	indices, err := euclidean.Extract(residual, s, opts)
	if err != nil {
		return nil, errors.Wrap(err, "euclidean clustering")
	}
	p.logger.Debugw("clusters extracted", "clusters", len(indices), "search", p.cfg.SearchMethod)
	return indices, nil
}
