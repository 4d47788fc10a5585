package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/scigolib/hdf5"

	"mibi-viewer/internal/models"
)

const (
	datasetData     = "data"
	datasetChannels = "channels"

	// labelBytes is the fixed string width of the channels dataset.
	labelBytes = 256
)

// HDF5Store reads and writes the two-dataset container: "data" with shape
// [channels, height, width] and "channels" with one UTF-8 label per plane.
//
// Files written by h5py store "channels" as variable-length strings and
// "data" as uint8 or uint16; both are read from the raw contiguous bytes
// because the hdf5 package only decodes fixed strings and wider numbers.
type HDF5Store struct{}

func NewHDF5Store() *HDF5Store {
	return &HDF5Store{}
}

func (s *HDF5Store) Load(path string) (*models.ImageStack, []string, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, nil, ioErr("open", path, err)
	}
	defer f.Close()

	var dataDS, channelsDS *hdf5.Dataset
	f.Walk(func(name string, obj hdf5.Object) {
		ds, ok := obj.(*hdf5.Dataset)
		if !ok {
			return
		}
		switch strings.Trim(name, "/") {
		case datasetData:
			dataDS = ds
		case datasetChannels:
			channelsDS = ds
		}
	})

	if dataDS == nil {
		return nil, nil, ioErr("read-hdf5", path, fmt.Errorf("%w: %q", ErrMissingDataset, datasetData))
	}
	if channelsDS == nil {
		return nil, nil, ioErr("read-hdf5", path, fmt.Errorf("%w: %q", ErrMissingDataset, datasetChannels))
	}

	dataInfo, err := describeDataset(dataDS)
	if err != nil {
		return nil, nil, ioErr("read-hdf5", path, fmt.Errorf("dataset %q: %w", datasetData, err))
	}
	channelsInfo, err := describeDataset(channelsDS)
	if err != nil {
		return nil, nil, ioErr("read-hdf5", path, fmt.Errorf("dataset %q: %w", datasetChannels, err))
	}

	labels, err := readLabels(f, channelsDS, channelsInfo)
	if err != nil {
		return nil, nil, ioErr("read-hdf5", path, fmt.Errorf("dataset %q: %w", datasetChannels, err))
	}

	shape, err := stackShape(dataInfo, len(labels))
	if err != nil {
		return nil, nil, ioErr("read-hdf5", path, fmt.Errorf("dataset %q: %w", datasetData, err))
	}

	values, depth, err := readPlanes(f, dataDS, dataInfo)
	if err != nil {
		return nil, nil, ioErr("read-hdf5", path, fmt.Errorf("dataset %q: %w", datasetData, err))
	}

	stack, err := models.NewImageStack(shape, values)
	if err != nil {
		return nil, nil, ioErr("read-hdf5", path, err)
	}

	return stack.WithDepth(depth), labels, nil
}

// Save truncates path and writes the stack and labels. "data" is written
// with the stack's depth so integer acquisitions stay integer. A
// zero-channel stack is refused rather than written as an empty dataset.
func (s *HDF5Store) Save(path string, stack *models.ImageStack, labels []string) (err error) {
	if stack.NumChannels() == 0 {
		return ioErr("write-hdf5", path, ErrEmptySelection)
	}
	if len(labels) != stack.NumChannels() {
		return ioErr("write-hdf5", path,
			fmt.Errorf("%w: %d labels for %d channels", ErrShapeMismatch, len(labels), stack.NumChannels()))
	}
	for _, l := range labels {
		if len(l) > labelBytes {
			return ioErr("write-hdf5", path, fmt.Errorf("channel label %.20q... exceeds %d bytes", l, labelBytes))
		}
	}

	dtype, values := encodePlanes(stack)

	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	if err != nil {
		return ioErr("write-hdf5", path, err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = ioErr("write-hdf5", path, cerr)
		}
	}()

	data, err := fw.CreateDataset("/"+datasetData, dtype, stack.Shape().Dims())
	if err != nil {
		return ioErr("write-hdf5", path, fmt.Errorf("dataset %q: %w", datasetData, err))
	}
	if err := data.Write(values); err != nil {
		return ioErr("write-hdf5", path, fmt.Errorf("dataset %q: %w", datasetData, err))
	}

	channels, err := fw.CreateDataset("/"+datasetChannels, hdf5.String,
		[]uint64{uint64(len(labels))}, hdf5.WithStringSize(labelBytes))
	if err != nil {
		return ioErr("write-hdf5", path, fmt.Errorf("dataset %q: %w", datasetChannels, err))
	}
	if err := channels.Write(labels); err != nil {
		return ioErr("write-hdf5", path, fmt.Errorf("dataset %q: %w", datasetChannels, err))
	}

	return nil
}

// stackShape takes [channels, height, width] from the dataspace. A file
// without a three-dimensional dataspace is rejected; the plane size is
// never guessed.
func stackShape(info datasetInfo, labels int) (models.Shape, error) {
	if len(info.dims) != 3 {
		return models.Shape{}, fmt.Errorf("%w: dataspace %v is not [channels, height, width]", ErrShapeMismatch, info.dims)
	}
	shape := models.Shape{Channels: int(info.dims[0]), Height: int(info.dims[1]), Width: int(info.dims[2])}
	if shape.Channels != labels {
		return models.Shape{}, fmt.Errorf("%w: %d labels for %d channels", ErrShapeMismatch, labels, shape.Channels)
	}
	return shape, nil
}

func readPlanes(f *hdf5.File, ds *hdf5.Dataset, info datasetInfo) ([]float64, models.Depth, error) {
	switch {
	case info.class == classFloat && info.size == 4:
		values, err := ds.Read()
		return values, models.DepthFloat32, err
	case info.class == classFloat && info.size == 8:
		values, err := ds.Read()
		return values, models.DepthFloat64, err
	case info.class == classInteger && (info.size == 4 || info.size == 8):
		values, err := ds.Read()
		return values, models.DepthFloat64, err
	case info.class == classInteger && (info.size == 1 || info.size == 2):
		raw, err := readContiguous(f.Reader(), info)
		if err != nil {
			return nil, 0, err
		}
		values, err := decodeUnsigned(raw, info.size)
		if err != nil {
			return nil, 0, err
		}
		if info.size == 1 {
			return values, models.DepthUint8, nil
		}
		return values, models.DepthUint16, nil
	}
	return nil, 0, fmt.Errorf("%w: %s of %d bytes", ErrUnsupportedType, info.class, info.size)
}

func readLabels(f *hdf5.File, ds *hdf5.Dataset, info datasetInfo) ([]string, error) {
	var (
		labels []string
		err    error
	)
	switch {
	case info.class == classString:
		labels, err = ds.ReadStrings()
	case info.class == classVarLen:
		labels, err = readHeapStrings(f, info, standardRef)
	case info.class == classInteger && info.size == vlenRefSize:
		labels, err = readHeapStrings(f, info, heapIDRef)
	default:
		err = fmt.Errorf("%w: %s labels of %d bytes", ErrUnsupportedType, info.class, info.size)
	}
	if err != nil {
		return nil, err
	}

	for i := range labels {
		labels[i] = strings.TrimRight(labels[i], "\x00 ")
	}
	return labels, nil
}

func readHeapStrings(f *hdf5.File, info datasetInfo, parse func([]byte) heapRef) ([]string, error) {
	raw, err := readContiguous(f.Reader(), info)
	if err != nil {
		return nil, err
	}
	return decodeVLenStrings(f.Reader(), raw, parse)
}

// encodePlanes converts the stack buffer to the slice type the writer
// expects for its depth. Integer depths are rounded and clamped.
func encodePlanes(stack *models.ImageStack) (hdf5.Datatype, any) {
	src := stack.Data()
	switch stack.Depth() {
	case models.DepthUint8:
		out := make([]uint8, len(src))
		for i, v := range src {
			out[i] = uint8(clampRound(v, math.MaxUint8))
		}
		return hdf5.Uint8, out
	case models.DepthUint16:
		out := make([]uint16, len(src))
		for i, v := range src {
			out[i] = uint16(clampRound(v, math.MaxUint16))
		}
		return hdf5.Uint16, out
	case models.DepthFloat32:
		out := make([]float32, len(src))
		for i, v := range src {
			out[i] = float32(v)
		}
		return hdf5.Float32, out
	default:
		return hdf5.Float64, src
	}
}

func clampRound(v, limit float64) float64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= limit:
		return limit
	default:
		return math.Round(v)
	}
}
