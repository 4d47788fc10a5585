package services

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scigolib/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mibi-viewer/internal/models"
)

// globalHeap encodes a GCOL collection holding objects, numbered from 1.
func globalHeap(objects ...string) []byte {
	le := binary.LittleEndian
	var body []byte
	for i, o := range objects {
		body = le.AppendUint16(body, uint16(i+1))
		body = le.AppendUint16(body, 1)
		body = append(body, 0, 0, 0, 0)
		body = le.AppendUint64(body, uint64(len(o)))
		body = append(body, o...)
		for len(body)%8 != 0 {
			body = append(body, 0)
		}
	}
	body = append(body, make([]byte, globalHeapObjHeader)...)

	head := append([]byte("GCOL"), 1, 0, 0, 0)
	head = le.AppendUint64(head, uint64(globalHeapHeader+len(body)))
	return append(head, body...)
}

// vlenRefs encodes one string reference per label into the collection at
// addr. Empty labels get a zero-length reference.
func vlenRefs(addr uint64, labels ...string) []byte {
	le := binary.LittleEndian
	var out []byte
	for i, l := range labels {
		if l == "" {
			out = append(out, make([]byte, vlenRefSize)...)
			continue
		}
		out = le.AppendUint32(out, uint32(len(l)))
		out = le.AppendUint64(out, addr)
		out = le.AppendUint32(out, uint32(i+1))
	}
	return out
}

func TestParseDatasetInfo(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    datasetInfo
	}{
		{
			name:    "three dimensional float",
			summary: "Dataset: float (size=8 bytes), 3D array [2 2 8], contiguous (address=0x1A0, size=256)",
			want: datasetInfo{class: classFloat, size: 8, dims: []uint64{2, 2, 8},
				contiguous: true, address: 0x1A0, bytes: 256},
		},
		{
			name:    "variable length strings",
			summary: "Dataset: class_9 (size=16 bytes), 1D array [3], contiguous (address=0x800, size=48)",
			want: datasetInfo{class: classVarLen, size: 16, dims: []uint64{3},
				contiguous: true, address: 0x800, bytes: 48},
		},
		{
			name:    "chunked matrix",
			summary: "Dataset: integer (size=2 bytes), 2D array [4 x 6], chunked (chunks=[2 3])",
			want:    datasetInfo{class: classInteger, size: 2, dims: []uint64{4, 6}},
		},
		{
			name:    "scalar",
			summary: "Dataset: float (size=8 bytes), scalar, compact (size=8)",
			want:    datasetInfo{class: classFloat, size: 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDatasetInfo(tt.summary)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseDatasetInfo("group /")
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestReadContiguousNeedsContiguousStorage(t *testing.T) {
	info := datasetInfo{class: classInteger, size: 2, dims: []uint64{2, 2}}
	_, err := readContiguous(bytes.NewReader(nil), info)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestReadContiguousShortFile(t *testing.T) {
	info := datasetInfo{class: classInteger, size: 2, dims: []uint64{4}, contiguous: true, address: 4, bytes: 8}
	_, err := readContiguous(bytes.NewReader(make([]byte, 10)), info)
	assert.Error(t, err)
}

func TestDecodeUnsigned(t *testing.T) {
	values, err := decodeUnsigned([]byte{0, 7, 255}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 7, 255}, values)

	values, err = decodeUnsigned([]byte{0x01, 0x00, 0xFF, 0xFF, 0x34, 0x12}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 65535, 0x1234}, values)

	_, err = decodeUnsigned([]byte{1, 2, 3}, 2)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	_, err = decodeUnsigned(nil, 4)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestDecodeVLenStrings(t *testing.T) {
	labels := []string{"dsDNA", "", "Pan-Keratin", "β-catenin"}
	const addr = 40

	file := append(make([]byte, addr), globalHeap(labels...)...)
	got, err := decodeVLenStrings(bytes.NewReader(file), vlenRefs(addr, labels...), standardRef)
	require.NoError(t, err)
	assert.Equal(t, labels, got)
}

func TestDecodeHeapIDStrings(t *testing.T) {
	labels := []string{"CD45", "", "Pan-Keratin"}
	const addr = 24

	var refs []byte
	for i := range labels {
		refs = binary.LittleEndian.AppendUint64(refs, addr)
		refs = binary.LittleEndian.AppendUint32(refs, uint32(i+1))
		refs = append(refs, 0, 0, 0, 0)
	}

	file := append(make([]byte, addr), globalHeap(labels...)...)
	got, err := decodeVLenStrings(bytes.NewReader(file), refs, heapIDRef)
	require.NoError(t, err)
	assert.Equal(t, labels, got)
}

func TestDecodeVLenStringsErrors(t *testing.T) {
	const addr = 8
	file := append(make([]byte, addr), globalHeap("CD45")...)
	r := bytes.NewReader(file)

	t.Run("missing object", func(t *testing.T) {
		refs := vlenRefs(addr, "CD45")
		binary.LittleEndian.PutUint32(refs[12:], 9)
		_, err := decodeVLenStrings(r, refs, standardRef)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no object 9")
	})

	t.Run("not a collection", func(t *testing.T) {
		_, err := decodeVLenStrings(r, vlenRefs(0, "CD45"), standardRef)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no global heap")
	})

	t.Run("length past object", func(t *testing.T) {
		refs := vlenRefs(addr, "CD45")
		binary.LittleEndian.PutUint32(refs[0:], 64)
		_, err := decodeVLenStrings(r, refs, standardRef)
		assert.Error(t, err)
	})

	t.Run("truncated references", func(t *testing.T) {
		_, err := decodeVLenStrings(r, make([]byte, vlenRefSize+3), standardRef)
		assert.True(t, errors.Is(err, ErrShapeMismatch))
	})
}

// rewriteAsVLenStrings turns a fixed 16-byte "channels" dataset into the
// layout h5py writes for str arrays: a variable-length UTF-8 string type
// whose elements point into a global heap collection.
func rewriteAsVLenStrings(t *testing.T, path string, labels []string) {
	t.Helper()

	f, err := hdf5.Open(path)
	require.NoError(t, err)
	var info datasetInfo
	f.Walk(func(name string, obj hdf5.Object) {
		if ds, ok := obj.(*hdf5.Dataset); ok && strings.Trim(name, "/") == datasetChannels {
			info, err = describeDataset(ds)
		}
	})
	require.NoError(t, f.Close())
	require.NoError(t, err)
	require.True(t, info.contiguous)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var at []int
	for i := 0; i+8 <= len(raw); i++ {
		if raw[i] == 0x13 && binary.LittleEndian.Uint32(raw[i+4:]) == vlenRefSize {
			at = append(at, i)
		}
	}
	require.Len(t, at, 1, "exactly one fixed string datatype of 16 bytes")
	raw[at[0]] = 0x19   // class 9, version 1
	raw[at[0]+1] = 0x01 // string sequence
	raw[at[0]+2] = 0x01 // UTF-8

	for len(raw)%8 != 0 {
		raw = append(raw, 0)
	}
	heapAddr := uint64(len(raw))
	copy(raw[info.address:], vlenRefs(heapAddr, labels...))
	raw = append(raw, globalHeap(labels...)...)

	require.NoError(t, os.WriteFile(path, raw, 0o644))
}

func TestHDF5LoadVariableLengthChannels(t *testing.T) {
	labels := []string{"dsDNA", "Pan-Keratin", "β-catenin"}
	path := filepath.Join(t.TempDir(), "h5py.h5")

	counts := make([]uint16, 3*2*5)
	for i := range counts {
		counts[i] = uint16(i * 1000)
	}

	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	require.NoError(t, err)
	data, err := fw.CreateDataset("/data", hdf5.Uint16, []uint64{3, 2, 5})
	require.NoError(t, err)
	require.NoError(t, data.Write(counts))
	channels, err := fw.CreateDataset("/channels", hdf5.String, []uint64{3}, hdf5.WithStringSize(vlenRefSize))
	require.NoError(t, err)
	require.NoError(t, channels.Write([]string{"a", "b", "c"}))
	require.NoError(t, fw.Close())

	rewriteAsVLenStrings(t, path, labels)

	stack, got, err := NewHDF5Store().Load(path)
	require.NoError(t, err)
	assert.Equal(t, labels, got)
	assert.Equal(t, models.Shape{Channels: 3, Height: 2, Width: 5}, stack.Shape())
	assert.Equal(t, models.DepthUint16, stack.Depth())
	assert.Equal(t, 29000.0, stack.Channel(2)[9])
	assert.Equal(t, 5000.0, stack.Channel(0)[5])
}

func TestHDF5LoadHeapIDChannels(t *testing.T) {
	labels := []string{"dsDNA", "CD45"}
	path := filepath.Join(t.TempDir(), "vlen.h5")

	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	require.NoError(t, err)
	data, err := fw.CreateDataset("/data", hdf5.Float64, []uint64{2, 1, 3})
	require.NoError(t, err)
	require.NoError(t, data.Write([]float64{1, 2, 3, 4, 5, 6}))
	channels, err := fw.CreateDataset("/channels", hdf5.VLenString, []uint64{2})
	require.NoError(t, err)
	require.NoError(t, channels.Write(labels))
	require.NoError(t, fw.Close())

	stack, got, err := NewHDF5Store().Load(path)
	require.NoError(t, err)
	assert.Equal(t, labels, got)
	assert.Equal(t, models.Shape{Channels: 2, Height: 1, Width: 3}, stack.Shape())
	assert.Equal(t, []float64{4, 5, 6}, stack.Channel(1))
}

func TestHDF5LoadRejectsNumericLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numeric.h5")

	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	require.NoError(t, err)
	data, err := fw.CreateDataset("/data", hdf5.Float64, []uint64{2, 1, 1})
	require.NoError(t, err)
	require.NoError(t, data.Write([]float64{1, 2}))
	channels, err := fw.CreateDataset("/channels", hdf5.Int32, []uint64{2})
	require.NoError(t, err)
	require.NoError(t, channels.Write([]int32{7, 8}))
	require.NoError(t, fw.Close())

	_, _, err = NewHDF5Store().Load(path)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}
