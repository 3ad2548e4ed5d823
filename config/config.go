// Package config holds the parameters of a cluster extraction run.
package config

import (
	"bytes"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/seqsense/pcdcluster/mat"
	"github.com/seqsense/pcdcluster/pcd"
)

type NoPlanePolicy string

const (
	// NoPlaneAccept keeps the remaining points as the residual cloud.
	NoPlaneAccept NoPlanePolicy = "accept"
	// NoPlaneAbort stops the run with pcd.ErrNoPlaneFound.
	NoPlaneAbort NoPlanePolicy = "abort"
)

type SearchMethod string

const (
	SearchKDTree    SearchMethod = "kdtree"
	SearchVoxelGrid SearchMethod = "voxelgrid"
)

// LeafSize is the voxel size of the downsampling filter.
// In yaml it is either a scalar applied to all axes or a list of three.
type LeafSize mat.Vec3

func (l *LeafSize) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s float32
		if err := n.Decode(&s); err != nil {
			return err
		}
		*l = LeafSize{s, s, s}
		return nil
	case yaml.SequenceNode:
		var v []float32
		if err := n.Decode(&v); err != nil {
			return err
		}
		if len(v) != 3 {
			return errors.Errorf("line %d: leaf_size must have 3 elements, got %d", n.Line, len(v))
		}
		*l = LeafSize{v[0], v[1], v[2]}
		return nil
	default:
		return errors.Errorf("line %d: leaf_size must be a number or a list", n.Line)
	}
}

func (l LeafSize) MarshalYAML() (interface{}, error) {
	if l[0] == l[1] && l[1] == l[2] {
		return l[0], nil
	}
	return []float32{l[0], l[1], l[2]}, nil
}

type Config struct {
	LeafSize LeafSize `yaml:"leaf_size"`

	PlaneDistanceThreshold    float32       `yaml:"plane_distance_threshold"`
	PlaneMaxIterations        int           `yaml:"plane_max_iterations"`
	PlaneOptimizeCoefficients bool          `yaml:"plane_optimize_coefficients"`
	PlaneRemainingRatio       float32       `yaml:"plane_remaining_ratio"`
	MaxPlanes                 int           `yaml:"max_planes"`
	NoPlanePolicy             NoPlanePolicy `yaml:"no_plane_policy"`

	ClusterTolerance float32      `yaml:"cluster_tolerance"`
	MinClusterSize   int          `yaml:"min_cluster_size"`
	MaxClusterSize   int          `yaml:"max_cluster_size"`
	SearchMethod     SearchMethod `yaml:"search_method"`

	Seed    int64 `yaml:"seed"`
	Workers int   `yaml:"workers"`
}

func Default() Config {
	return Config{
		LeafSize:                  LeafSize{0.01, 0.01, 0.01},
		PlaneDistanceThreshold:    0.02,
		PlaneMaxIterations:        100,
		PlaneOptimizeCoefficients: true,
		PlaneRemainingRatio:       0.3,
		MaxPlanes:                 16,
		NoPlanePolicy:             NoPlaneAccept,
		ClusterTolerance:          0.02,
		MinClusterSize:            100,
		MaxClusterSize:            25000,
		SearchMethod:              SearchKDTree,
		Seed:                      1,
		Workers:                   1,
	}
}

// Parse decodes yaml over the defaults. Keys not present keep their
// default value. Unknown keys are rejected.
func Parse(b []byte) (Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	c, err := Parse(b)
	if err != nil {
		return Config{}, errors.Wrapf(err, "loading config %s", path)
	}
	return c, nil
}

func positive(v float32) bool {
	return v > 0 && !math.IsInf(float64(v), 1)
}

func (c *Config) Validate() error {
	for i, s := range c.LeafSize {
		if !positive(s) {
			return errors.Wrapf(pcd.ErrInvalidParameter, "leaf_size[%d] must be positive, got %v", i, s)
		}
	}
	if !(c.PlaneDistanceThreshold >= 0) || math.IsInf(float64(c.PlaneDistanceThreshold), 1) {
		return errors.Wrapf(pcd.ErrInvalidParameter, "plane_distance_threshold must be non-negative, got %v", c.PlaneDistanceThreshold)
	}
	if c.PlaneMaxIterations < 1 {
		return errors.Wrapf(pcd.ErrInvalidParameter, "plane_max_iterations must be positive, got %d", c.PlaneMaxIterations)
	}
	if !(c.PlaneRemainingRatio >= 0 && c.PlaneRemainingRatio <= 1) {
		return errors.Wrapf(pcd.ErrInvalidParameter, "plane_remaining_ratio must be in [0, 1], got %v", c.PlaneRemainingRatio)
	}
	if c.MaxPlanes < 0 {
		return errors.Wrapf(pcd.ErrInvalidParameter, "max_planes must not be negative, got %d", c.MaxPlanes)
	}
	switch c.NoPlanePolicy {
	case NoPlaneAccept, NoPlaneAbort:
	default:
		return errors.Wrapf(pcd.ErrInvalidParameter, "unknown no_plane_policy %q", c.NoPlanePolicy)
	}
	if !positive(c.ClusterTolerance) {
		return errors.Wrapf(pcd.ErrInvalidParameter, "cluster_tolerance must be positive, got %v", c.ClusterTolerance)
	}
	if c.MinClusterSize < 0 {
		return errors.Wrapf(pcd.ErrInvalidParameter, "min_cluster_size must not be negative, got %d", c.MinClusterSize)
	}
	if c.MinClusterSize > c.MaxClusterSize {
		return errors.Wrapf(pcd.ErrInvalidParameter, "min_cluster_size %d exceeds max_cluster_size %d", c.MinClusterSize, c.MaxClusterSize)
	}
	switch c.SearchMethod {
	case SearchKDTree, SearchVoxelGrid:
	default:
		return errors.Wrapf(pcd.ErrInvalidParameter, "unknown search_method %q", c.SearchMethod)
	}
	if c.Workers < 1 {
		return errors.Wrapf(pcd.ErrInvalidParameter, "workers must be positive, got %d", c.Workers)
	}
	return nil
}

// Marshal encodes the config as yaml.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
