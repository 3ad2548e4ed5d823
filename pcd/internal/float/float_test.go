package float

import (
	"testing"
)

func TestRoundTrip(t *testing.T) {
	f := []float32{1, -2.5, 3.25}
	b := Float32SliceAsByteSlice(f)
	if len(b) != 12 {
		t.Fatalf("Expected 12 bytes, got %d", len(b))
	}
	if !IsAligned(b) {
		t.Fatal("Expected float backed bytes to be aligned")
	}
	f2 := ByteSliceAsFloat32Slice(b)
	for i := range f {
		if f[i] != f2[i] {
			t.Errorf("Expected %v at %d, got %v", f[i], i, f2[i])
		}
	}
	f2[1] = 7
	if f[1] != 7 {
		t.Error("Expected views to share memory")
	}
}

func TestEmpty(t *testing.T) {
	if ByteSliceAsFloat32Slice(nil) != nil {
		t.Error("Expected nil view of empty bytes")
	}
	if Float32SliceAsByteSlice(nil) != nil {
		t.Error("Expected nil view of empty floats")
	}
}
