// Package main is a command which extracts objects standing on a table
// from a PCD file and writes one PCD file per object.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/seqsense/pcdcluster/config"
	"github.com/seqsense/pcdcluster/internal/pcdio"
	"github.com/seqsense/pcdcluster/pcd"
	"github.com/seqsense/pcdcluster/pipeline"
)

const (
	flagConfig            = "config"
	flagOutputDir         = "output-dir"
	flagLeafSize          = "leaf-size"
	flagDistanceThreshold = "distance-threshold"
	flagMaxIterations     = "max-iterations"
	flagMaxPlanes         = "max-planes"
	flagNoPlanePolicy     = "no-plane-policy"
	flagTolerance         = "tolerance"
	flagMinClusterSize    = "min-cluster-size"
	flagMaxClusterSize    = "max-cluster-size"
	flagSearch            = "search"
	flagSeed              = "seed"
	flagWorkers           = "workers"
	flagDebug             = "debug"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "pcdcluster",
		Usage:     "extract objects standing on a plane from a point cloud",
		ArgsUsage: "INPUT.pcd",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:    flagOutputDir,
				Aliases: []string{"o"},
				Value:   ".",
				Usage:   "write cloud_cluster_<i>.pcd files to `DIR`",
			},
			&cli.Float64Flag{Name: flagLeafSize, Usage: "voxel grid leaf size"},
			&cli.Float64Flag{Name: flagDistanceThreshold, Usage: "plane inlier distance"},
			&cli.IntFlag{Name: flagMaxIterations, Usage: "RANSAC iterations per plane"},
			&cli.IntFlag{Name: flagMaxPlanes, Usage: "maximum number of planes to remove"},
			&cli.StringFlag{Name: flagNoPlanePolicy, Usage: "accept or abort when no plane is found"},
			&cli.Float64Flag{Name: flagTolerance, Usage: "cluster distance tolerance"},
			&cli.IntFlag{Name: flagMinClusterSize, Usage: "minimum points per cluster"},
			&cli.IntFlag{Name: flagMaxClusterSize, Usage: "maximum points per cluster"},
			&cli.StringFlag{Name: flagSearch, Usage: "neighbour search method, kdtree or voxelgrid"},
			&cli.Int64Flag{Name: flagSeed, Usage: "random seed for plane segmentation"},
			&cli.IntFlag{Name: flagWorkers, Usage: "goroutines evaluating plane hypotheses"},
			&cli.BoolFlag{Name: flagDebug, Usage: "enable debug logging"},
		},
		Action: func(c *cli.Context) error {
			var logger golog.Logger
			if c.Bool(flagDebug) {
				logger = golog.NewDebugLogger("pcdcluster")
			} else {
				logger = golog.NewDevelopmentLogger("pcdcluster")
			}
			return run(c, logger)
		},
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if c.IsSet(flagLeafSize) {
		l := float32(c.Float64(flagLeafSize))
		cfg.LeafSize = config.LeafSize{l, l, l}
	}
	if c.IsSet(flagDistanceThreshold) {
		cfg.PlaneDistanceThreshold = float32(c.Float64(flagDistanceThreshold))
	}
	if c.IsSet(flagMaxIterations) {
		cfg.PlaneMaxIterations = c.Int(flagMaxIterations)
	}
	if c.IsSet(flagMaxPlanes) {
		cfg.MaxPlanes = c.Int(flagMaxPlanes)
	}
	if c.IsSet(flagNoPlanePolicy) {
		cfg.NoPlanePolicy = config.NoPlanePolicy(c.String(flagNoPlanePolicy))
	}
	if c.IsSet(flagTolerance) {
		cfg.ClusterTolerance = float32(c.Float64(flagTolerance))
	}
	if c.IsSet(flagMinClusterSize) {
		cfg.MinClusterSize = c.Int(flagMinClusterSize)
	}
	if c.IsSet(flagMaxClusterSize) {
		cfg.MaxClusterSize = c.Int(flagMaxClusterSize)
	}
	if c.IsSet(flagSearch) {
		cfg.SearchMethod = config.SearchMethod(c.String(flagSearch))
	}
	if c.IsSet(flagSeed) {
		cfg.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func run(c *cli.Context, logger golog.Logger) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one input file")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger = logger.With(zap.String("run", uuid.NewString()))

	input := c.Args().First()
	pc, err := pcdio.ReadFile(input)
	if err != nil {
		return err
	}
	logger.Infow("loaded point cloud", "path", input, "points", pc.Points, "fields", pc.Fields)

	p, err := pipeline.New(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	res, err := p.Run(pc)
	if err != nil {
		return err
	}

	outDir := c.String(flagOutputDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	paths, err := writeClusters(outDir, res.Clusters)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, summary(res, paths))
	return nil
}

func clusterFileName(i int) string {
	return fmt.Sprintf("cloud_cluster_%d.pcd", i)
}

// writeClusters writes every cluster even if some of them fail.
func writeClusters(dir string, clusters []*pcd.PointCloud) ([]string, error) {
	var err error
	paths := make([]string, len(clusters))
	for i, cl := range clusters {
		paths[i] = filepath.Join(dir, clusterFileName(i))
		err = multierr.Append(err, pcdio.WriteFile(paths[i], cl))
	}
	return paths, err
}

func summary(res *pipeline.Result, paths []string) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Stage", "Points", "Detail"})
	t.AppendRow(table.Row{"input", res.InputPoints, ""})
	t.AppendRow(table.Row{"filtered", res.FilteredPoints, ""})
	for i, pl := range res.Planes {
		c := pl.Coefficients
		t.AppendRow(table.Row{
			fmt.Sprintf("plane %d", i),
			pl.Cloud.Points,
			fmt.Sprintf("%.3fx%+.3fy%+.3fz%+.3f=0", c[0], c[1], c[2], c[3]),
		})
	}
	t.AppendRow(table.Row{"residual", res.Residual.Points, ""})
	for i, cl := range res.Clusters {
		t.AppendRow(table.Row{fmt.Sprintf("cluster %d", i), cl.Points, paths[i]})
	}
	return t.Render()
}
