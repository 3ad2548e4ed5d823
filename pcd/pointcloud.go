// Package pcd provides a point cloud container laid out as PCD records.
//
// Each point is a fixed-size little-endian record described by the header
// fields. Geometry is read through the x, y and z fields; any other field
// (intensity, rgb, label, ...) is carried along untouched by the
// processing stages.
package pcd

import (
	"github.com/pkg/errors"

	"github.com/seqsense/pcdcluster/mat"
)

type PointCloudHeader struct {
	Version   float32
	Fields    []string
	Size      []int
	Type      []string
	Count     []int
	Width     int
	Height    int
	Viewpoint []float32
}

func (h *PointCloudHeader) Clone() PointCloudHeader {
	return PointCloudHeader{
		Version:   h.Version,
		Fields:    append([]string{}, h.Fields...),
		Size:      append([]int{}, h.Size...),
		Type:      append([]string{}, h.Type...),
		Count:     append([]int{}, h.Count...),
		Width:     h.Width,
		Height:    h.Height,
		Viewpoint: append([]float32{}, h.Viewpoint...),
	}
}

func (h *PointCloudHeader) Stride() int {
	var stride int
	for i := range h.Fields {
		stride += h.Count[i] * h.Size[i]
	}
	return stride
}

// PointCloud is a sequence of point records.
// Stages never modify a PointCloud they received; they allocate a new one.
type PointCloud struct {
	PointCloudHeader
	Points int
	Data   []byte

	// IsDense is true if no point has a non-finite coordinate.
	IsDense bool
}

// XYZHeader returns the header of an unorganized cloud with float32 x, y
// and z fields only.
func XYZHeader(n int) PointCloudHeader {
	return PointCloudHeader{
		Version: 0.7,
		Fields:  []string{"x", "y", "z"},
		Size:    []int{4, 4, 4},
		Type:    []string{"F", "F", "F"},
		Count:   []int{1, 1, 1},
		Width:   n,
		Height:  1,
	}
}

// New allocates an unorganized cloud of n zeroed records with the field
// layout of h.
func New(h PointCloudHeader, n int) *PointCloud {
	pc := &PointCloud{
		PointCloudHeader: h.Clone(),
		Points:           n,
		IsDense:          true,
	}
	pc.Width = n
	pc.Height = 1
	pc.Data = make([]byte, n*pc.Stride())
	return pc
}

// NewFromVec3s builds an unorganized xyz cloud.
func NewFromVec3s(vs []mat.Vec3) *PointCloud {
	pc := New(XYZHeader(len(vs)), len(vs))
	if len(vs) == 0 {
		return pc
	}
	it, err := pc.Vec3Iterator()
	if err != nil {
		// xyz header always has the position fields
		panic(err)
	}
	for _, v := range vs {
		if !v.IsFinite() {
			pc.IsDense = false
		}
		it.SetVec3(v)
		it.Incr()
	}
	return pc
}

// Clone returns a deep copy.
func (pc *PointCloud) Clone() *PointCloud {
	out := &PointCloud{
		PointCloudHeader: pc.PointCloudHeader.Clone(),
		Points:           pc.Points,
		Data:             make([]byte, len(pc.Data)),
		IsDense:          pc.IsDense,
	}
	copy(out.Data, pc.Data)
	return out
}

// IsOrganized reports whether the cloud keeps an image-like layout.
func (pc *PointCloud) IsOrganized() bool {
	return pc.Height > 1
}

// Validate checks the header against the point count and data length.
func (pc *PointCloud) Validate() error {
	n := len(pc.Fields)
	if len(pc.Size) != n {
		return errors.New("size field size is wrong")
	}
	if len(pc.Type) != n {
		return errors.New("type field size is wrong")
	}
	if len(pc.Count) != n {
		return errors.New("count field size is wrong")
	}
	if pc.Width*pc.Height != pc.Points {
		return errors.Errorf("width*height (%d*%d) does not match points (%d)", pc.Width, pc.Height, pc.Points)
	}
	if need := pc.Points * pc.Stride(); len(pc.Data) < need {
		return errors.Errorf("data too short: %d bytes, expected %d", len(pc.Data), need)
	}
	return nil
}

// Vec3s copies all point positions out of the cloud.
func (pc *PointCloud) Vec3s() ([]mat.Vec3, error) {
	if pc.Points == 0 {
		return nil, nil
	}
	it, err := pc.Vec3Iterator()
	if err != nil {
		return nil, err
	}
	out := make([]mat.Vec3, 0, pc.Points)
	for ; it.IsValid(); it.Incr() {
		out = append(out, it.Vec3())
	}
	return out, nil
}

// Copy copies n records from src starting at i to dst starting at j.
// Both clouds must share the same field layout.
func Copy(dst *PointCloud, j int, src *PointCloud, i int, n int) {
	stride := src.Stride()
	copy(dst.Data[j*stride:(j+n)*stride], src.Data[i*stride:(i+n)*stride])
}

func (pc *PointCloud) fieldOffset(name string) (int, int, bool) {
	offset := 0
	for i, fn := range pc.Fields {
		if fn == name {
			return offset, i, true
		}
		offset += pc.Size[i] * pc.Count[i]
	}
	return 0, 0, false
}
