package services

import (
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/scigolib/hdf5"
)

// Datatype class names as the hdf5 package prints them. Variable-length
// types have no name of their own and print as their class number.
const (
	classInteger = "integer"
	classFloat   = "float"
	classString  = "string"
	classVarLen  = "class_9"
)

const (
	// vlenRefSize is one variable-length element in the dataset: a 4-byte
	// length, an 8-byte global heap collection address and a 4-byte index.
	vlenRefSize = 16

	globalHeapHeader    = 16
	globalHeapObjHeader = 16
	maxGlobalHeapBytes  = 64 << 20
)

var (
	infoDatatype   = regexp.MustCompile(`^Dataset: (\w+) \(size=(\d+) bytes\)`)
	infoDataspace  = regexp.MustCompile(`\d+D array \[([^\]]*)\]`)
	infoContiguous = regexp.MustCompile(`contiguous \(address=0x([0-9A-Fa-f]+), size=(\d+)\)`)
)

// datasetInfo is what the object header summary exposes about a dataset.
type datasetInfo struct {
	class string
	size  int
	dims  []uint64

	contiguous bool
	address    uint64
	bytes      uint64
}

func describeDataset(ds *hdf5.Dataset) (datasetInfo, error) {
	summary, err := ds.Info()
	if err != nil {
		return datasetInfo{}, err
	}
	return parseDatasetInfo(summary)
}

func parseDatasetInfo(summary string) (datasetInfo, error) {
	var info datasetInfo

	m := infoDatatype.FindStringSubmatch(summary)
	if m == nil {
		return info, fmt.Errorf("%w: cannot read datatype from %q", ErrUnsupportedType, summary)
	}
	info.class = m[1]
	size, err := strconv.Atoi(m[2])
	if err != nil {
		return info, err
	}
	info.size = size

	if m := infoDataspace.FindStringSubmatch(summary); m != nil {
		fields := strings.FieldsFunc(m[1], func(r rune) bool { return r == ' ' || r == 'x' })
		for _, f := range fields {
			d, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return info, fmt.Errorf("dataspace %q: %w", m[1], err)
			}
			info.dims = append(info.dims, d)
		}
	}

	if m := infoContiguous.FindStringSubmatch(summary); m != nil {
		addr, err := strconv.ParseUint(m[1], 16, 64)
		if err != nil {
			return info, err
		}
		n, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			return info, err
		}
		info.contiguous, info.address, info.bytes = true, addr, n
	}

	return info, nil
}

func (i datasetInfo) elements() uint64 {
	if len(i.dims) == 0 {
		return 0
	}
	n := uint64(1)
	for _, d := range i.dims {
		n *= d
	}
	return n
}

// readContiguous returns the dataset's stored bytes. Only contiguous
// storage can be read this way.
func readContiguous(r io.ReaderAt, info datasetInfo) ([]byte, error) {
	if !info.contiguous {
		return nil, fmt.Errorf("%w: %s of %d bytes needs contiguous storage", ErrUnsupportedType, info.class, info.size)
	}
	want := info.elements() * uint64(info.size)
	if info.bytes < want {
		return nil, fmt.Errorf("%w: %d stored bytes for %d elements of %d bytes",
			ErrShapeMismatch, info.bytes, info.elements(), info.size)
	}

	buf := make([]byte, want)
	if err := readFull(r, buf, info.address); err != nil {
		return nil, err
	}
	return buf, nil
}

// decodeUnsigned widens little-endian unsigned samples.
func decodeUnsigned(raw []byte, size int) ([]float64, error) {
	if size != 1 && size != 2 {
		return nil, fmt.Errorf("%w: unsigned samples of %d bytes", ErrUnsupportedType, size)
	}
	if len(raw)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of samples", ErrShapeMismatch, len(raw))
	}

	out := make([]float64, len(raw)/size)
	for i := range out {
		if size == 1 {
			out[i] = float64(raw[i])
		} else {
			out[i] = float64(binary.LittleEndian.Uint16(raw[i*2:]))
		}
	}
	return out, nil
}

// heapRef locates one string in a global heap collection. A negative
// length means the whole object.
type heapRef struct {
	length int64
	addr   uint64
	index  uint32
}

// standardRef parses the reference h5py and libhdf5 write: length, then
// collection address, then object index.
func standardRef(b []byte) heapRef {
	return heapRef{
		length: int64(binary.LittleEndian.Uint32(b[0:4])),
		addr:   binary.LittleEndian.Uint64(b[4:12]),
		index:  binary.LittleEndian.Uint32(b[12:16]),
	}
}

// heapIDRef parses the reference the hdf5 package's own vlen writer
// stores: collection address, object index, four bytes of padding. Its
// datatype message puts the class where readers expect the version, so
// such datasets summarize as 16-byte integers.
func heapIDRef(b []byte) heapRef {
	return heapRef{
		length: -1,
		addr:   binary.LittleEndian.Uint64(b[0:8]),
		index:  binary.LittleEndian.Uint32(b[8:12]),
	}
}

// decodeVLenStrings resolves variable-length string references against the
// global heap collections they point into. Each collection is read once.
func decodeVLenStrings(r io.ReaderAt, raw []byte, parse func([]byte) heapRef) ([]string, error) {
	if len(raw)%vlenRefSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of string references", ErrShapeMismatch, len(raw))
	}

	heaps := make(map[uint64]map[uint32][]byte)
	out := make([]string, len(raw)/vlenRefSize)
	for i := range out {
		ref := parse(raw[i*vlenRefSize : (i+1)*vlenRefSize])
		if ref.length == 0 {
			continue
		}

		objects, ok := heaps[ref.addr]
		if !ok {
			var err error
			if objects, err = readGlobalHeap(r, ref.addr); err != nil {
				return nil, fmt.Errorf("string %d: %w", i, err)
			}
			heaps[ref.addr] = objects
		}

		obj, ok := objects[ref.index]
		if !ok {
			return nil, fmt.Errorf("string %d: no object %d in heap at 0x%X", i, ref.index, ref.addr)
		}
		if ref.length < 0 {
			out[i] = string(obj)
			continue
		}
		if ref.length > int64(len(obj)) {
			return nil, fmt.Errorf("string %d: length %d exceeds heap object of %d bytes", i, ref.length, len(obj))
		}
		out[i] = string(obj[:ref.length])
	}
	return out, nil
}

// readGlobalHeap loads a GCOL collection and indexes its objects. Object 0
// marks the free space at the end of the collection.
func readGlobalHeap(r io.ReaderAt, addr uint64) (map[uint32][]byte, error) {
	head := make([]byte, globalHeapHeader)
	if err := readFull(r, head, addr); err != nil {
		return nil, err
	}
	if string(head[0:4]) != "GCOL" {
		return nil, fmt.Errorf("no global heap at 0x%X", addr)
	}
	size := binary.LittleEndian.Uint64(head[8:16])
	if size < globalHeapHeader || size > maxGlobalHeapBytes {
		return nil, fmt.Errorf("global heap at 0x%X has implausible size %d", addr, size)
	}

	buf := make([]byte, size)
	if err := readFull(r, buf, addr); err != nil {
		return nil, err
	}

	objects := make(map[uint32][]byte)
	for off := uint64(globalHeapHeader); off+globalHeapObjHeader <= size; {
		index := binary.LittleEndian.Uint16(buf[off:])
		if index == 0 {
			break
		}
		objSize := binary.LittleEndian.Uint64(buf[off+8:])
		start := off + globalHeapObjHeader
		if objSize > size-start {
			return nil, fmt.Errorf("global heap object %d overruns its collection", index)
		}
		objects[uint32(index)] = buf[start : start+objSize]
		off = start + (objSize+7)&^7
	}
	return objects, nil
}

func readFull(r io.ReaderAt, buf []byte, addr uint64) error {
	n, err := r.ReadAt(buf, int64(addr))
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("read %d bytes at 0x%X: %w", len(buf), addr, err)
}
