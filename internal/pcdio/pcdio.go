// Package pcdio reads and writes PCD files.
package pcdio

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/seqsense/pcgol/pc"
	"go.uber.org/multierr"

	"github.com/seqsense/pcdcluster/pcd"
)

// FromPC converts a decoded PCD into a point cloud sharing its data.
func FromPC(pp *pc.PointCloud) (*pcd.PointCloud, error) {
	out := &pcd.PointCloud{
		PointCloudHeader: pcd.PointCloudHeader{
			Version:   pp.Version,
			Fields:    pp.Fields,
			Size:      pp.Size,
			Type:      pp.Type,
			Count:     pp.Count,
			Width:     pp.Width,
			Height:    pp.Height,
			Viewpoint: pp.Viewpoint,
		},
		Points: pp.Points,
		Data:   pp.Data,
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	dense, err := isDense(out)
	if err != nil {
		return nil, err
	}
	out.IsDense = dense
	return out, nil
}

func isDense(p *pcd.PointCloud) (bool, error) {
	if p.Points == 0 {
		return true, nil
	}
	it, err := p.Vec3Iterator()
	if err != nil {
		return false, err
	}
	for ; it.IsValid(); it.Incr() {
		if v := it.Vec3(); !v.IsFinite() {
			return false, nil
		}
	}
	return true, nil
}

// ToPC converts a point cloud to the PCD encoder representation.
func ToPC(p *pcd.PointCloud) *pc.PointCloud {
	return &pc.PointCloud{
		PointCloudHeader: pc.PointCloudHeader{
			Version:   p.Version,
			Fields:    p.Fields,
			Size:      p.Size,
			Type:      p.Type,
			Count:     p.Count,
			Width:     p.Width,
			Height:    p.Height,
			Viewpoint: p.Viewpoint,
		},
		Points: p.Points,
		Data:   p.Data[:p.Points*p.Stride()],
	}
}

func Read(r io.Reader) (*pcd.PointCloud, error) {
	pp, err := pc.Unmarshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding pcd")
	}
	return FromPC(pp)
}

func ReadFile(path string) (*pcd.PointCloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return p, nil
}

func Write(w io.Writer, p *pcd.PointCloud) error {
	if len(p.Viewpoint) == 0 {
		p = withDefaultViewpoint(p)
	}
	if err := pc.Marshal(ToPC(p), w); err != nil {
		return errors.Wrap(err, "encoding pcd")
	}
	return nil
}

func withDefaultViewpoint(p *pcd.PointCloud) *pcd.PointCloud {
	out := *p
	out.Viewpoint = []float32{0, 0, 0, 1, 0, 0, 0}
	return &out
}

func WriteFile(path string, p *pcd.PointCloud) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	w := bufio.NewWriter(f)
	if err := Write(w, p); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return w.Flush()
}
