package pcd

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/seqsense/pcdcluster/mat"
	"github.com/seqsense/pcdcluster/pcd/internal/float"
)

type Float32Iterator interface {
	Incr()
	IsValid() bool
	Float32() float32
	SetFloat32(float32)
	Float32At(int) float32
	Len() int
}

type Uint32Iterator interface {
	Incr()
	IsValid() bool
	Uint32() uint32
	SetUint32(uint32)
	Uint32At(int) uint32
	Len() int
}

type Vec3Iterator interface {
	Incr()
	IsValid() bool
	Vec3() mat.Vec3
	SetVec3(mat.Vec3)
	Vec3RandomAccessor
}

type binaryIterator struct {
	data   []byte
	pos    int
	stride int
	n      int
}

func (i *binaryIterator) Incr() {
	i.pos += i.stride
}

func (i *binaryIterator) IsValid() bool {
	return i.pos < i.n*i.stride
}

func (i *binaryIterator) Len() int {
	return i.n
}

type binaryFloat32Iterator struct {
	binaryIterator
}

func (i *binaryFloat32Iterator) Float32() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(i.data[i.pos:]))
}

func (i *binaryFloat32Iterator) SetFloat32(v float32) {
	binary.LittleEndian.PutUint32(i.data[i.pos:], math.Float32bits(v))
}

func (i *binaryFloat32Iterator) Float32At(j int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(i.data[j*i.stride:]))
}

type binaryUint32Iterator struct {
	binaryIterator
}

func (i *binaryUint32Iterator) Uint32() uint32 {
	return binary.LittleEndian.Uint32(i.data[i.pos:])
}

func (i *binaryUint32Iterator) SetUint32(v uint32) {
	binary.LittleEndian.PutUint32(i.data[i.pos:], v)
}

func (i *binaryUint32Iterator) Uint32At(j int) uint32 {
	return binary.LittleEndian.Uint32(i.data[j*i.stride:])
}

// float32Iterator walks x, y and z stored as three consecutive float32
// values through a float32 view of the record bytes.
type float32Iterator struct {
	data   []float32
	base   int
	pos    int
	stride int
	n      int
}

func (i *float32Iterator) Incr() {
	i.pos += i.stride
}

func (i *float32Iterator) IsValid() bool {
	return i.pos < i.base+i.n*i.stride
}

func (i *float32Iterator) Len() int {
	return i.n
}

func (i *float32Iterator) Vec3() mat.Vec3 {
	return mat.Vec3{i.data[i.pos], i.data[i.pos+1], i.data[i.pos+2]}
}

func (i *float32Iterator) SetVec3(v mat.Vec3) {
	i.data[i.pos] = v[0]
	i.data[i.pos+1] = v[1]
	i.data[i.pos+2] = v[2]
}

func (i *float32Iterator) Vec3At(j int) mat.Vec3 {
	p := i.base + j*i.stride
	return mat.Vec3{i.data[p], i.data[p+1], i.data[p+2]}
}

type naiveVec3Iterator [3]*binaryFloat32Iterator

func (i naiveVec3Iterator) IsValid() bool {
	return i[0].IsValid()
}

func (i naiveVec3Iterator) Incr() {
	i[0].Incr()
	i[1].Incr()
	i[2].Incr()
}

func (i naiveVec3Iterator) Len() int {
	return i[0].Len()
}

func (i naiveVec3Iterator) Vec3() mat.Vec3 {
	return mat.Vec3{i[0].Float32(), i[1].Float32(), i[2].Float32()}
}

func (i naiveVec3Iterator) SetVec3(v mat.Vec3) {
	i[0].SetFloat32(v[0])
	i[1].SetFloat32(v[1])
	i[2].SetFloat32(v[2])
}

func (i naiveVec3Iterator) Vec3At(j int) mat.Vec3 {
	return mat.Vec3{i[0].Float32At(j), i[1].Float32At(j), i[2].Float32At(j)}
}

func (pc *PointCloud) Float32Iterator(name string) (Float32Iterator, error) {
	offset, i, ok := pc.fieldOffset(name)
	if !ok {
		return nil, errors.Errorf("field %q not found", name)
	}
	if pc.Size[i] != 4 || pc.Type[i] != "F" {
		return nil, errors.Errorf("field %q is not float32", name)
	}
	return pc.newBinaryFloat32Iterator(offset), nil
}

func (pc *PointCloud) Uint32Iterator(name string) (Uint32Iterator, error) {
	offset, i, ok := pc.fieldOffset(name)
	if !ok {
		return nil, errors.Errorf("field %q not found", name)
	}
	if pc.Size[i] != 4 || pc.Type[i] != "U" {
		return nil, errors.Errorf("field %q is not uint32", name)
	}
	return &binaryUint32Iterator{binaryIterator: pc.fieldIterator(offset)}, nil
}

func (pc *PointCloud) newBinaryFloat32Iterator(offset int) *binaryFloat32Iterator {
	return &binaryFloat32Iterator{binaryIterator: pc.fieldIterator(offset)}
}

func (pc *PointCloud) fieldIterator(offset int) binaryIterator {
	stride := pc.Stride()
	if pc.Points == 0 {
		return binaryIterator{stride: stride}
	}
	return binaryIterator{
		data:   pc.Data[offset : pc.Points*stride],
		stride: stride,
		n:      pc.Points,
	}
}

// Vec3Iterator returns an iterator over the x, y and z fields.
// A float32 view of the data is used if the fields are packed and aligned.
func (pc *PointCloud) Vec3Iterator() (Vec3Iterator, error) {
	var offsets [3]int
	for j, name := range []string{"x", "y", "z"} {
		offset, i, ok := pc.fieldOffset(name)
		if !ok {
			return nil, errors.Errorf("field %q not found", name)
		}
		if pc.Size[i] != 4 || pc.Type[i] != "F" {
			return nil, errors.Errorf("field %q is not float32", name)
		}
		offsets[j] = offset
	}
	stride := pc.Stride()
	packed := offsets[1] == offsets[0]+4 && offsets[2] == offsets[0]+8
	data := pc.Data[:pc.Points*stride]
	if packed && stride%4 == 0 && offsets[0]%4 == 0 && float.IsAligned(data) {
		return &float32Iterator{
			data:   float.ByteSliceAsFloat32Slice(data),
			base:   offsets[0] / 4,
			pos:    offsets[0] / 4,
			stride: stride / 4,
			n:      pc.Points,
		}, nil
	}
	return naiveVec3Iterator{
		pc.newBinaryFloat32Iterator(offsets[0]),
		pc.newBinaryFloat32Iterator(offsets[1]),
		pc.newBinaryFloat32Iterator(offsets[2]),
	}, nil
}
