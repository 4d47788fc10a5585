package models

import (
	"errors"
	"fmt"
)

var ErrShapeMismatch = errors.New("shape mismatch")

// Shape is the [channel, y, x] extent of a stack.
type Shape struct {
	Channels int
	Height   int
	Width    int
}

func (s Shape) PlaneSize() int { return s.Height * s.Width }

func (s Shape) Len() int { return s.Channels * s.PlaneSize() }

func (s Shape) Dims() []uint64 {
	return []uint64{uint64(s.Channels), uint64(s.Height), uint64(s.Width)}
}

func (s Shape) String() string {
	return fmt.Sprintf("[%d, %d, %d]", s.Channels, s.Height, s.Width)
}

// Depth is the sample type a stack was decoded from. Values are always held
// as float64; the depth decides how they are written back out.
type Depth int

const (
	DepthFloat64 Depth = iota
	DepthFloat32
	DepthUint8
	DepthUint16
)

func (d Depth) String() string {
	switch d {
	case DepthFloat32:
		return "float32"
	case DepthUint8:
		return "uint8"
	case DepthUint16:
		return "uint16"
	default:
		return "float64"
	}
}

// ImageStack holds every channel in one row-major buffer. A stack is never
// mutated once built; Select and Channel hand out copies or read-only views.
type ImageStack struct {
	shape Shape
	depth Depth
	data  []float64
}

func NewImageStack(shape Shape, data []float64) (*ImageStack, error) {
	if shape.Channels < 0 || shape.Height <= 0 || shape.Width <= 0 {
		return nil, fmt.Errorf("%w: invalid shape %s", ErrShapeMismatch, shape)
	}
	if len(data) != shape.Len() {
		return nil, fmt.Errorf("%w: %d values for shape %s", ErrShapeMismatch, len(data), shape)
	}
	return &ImageStack{shape: shape, data: data}, nil
}

// WithDepth returns a stack sharing s's buffer tagged with depth d.
func (s *ImageStack) WithDepth(d Depth) *ImageStack {
	return &ImageStack{shape: s.shape, depth: d, data: s.data}
}

func (s *ImageStack) Shape() Shape { return s.shape }

func (s *ImageStack) Depth() Depth { return s.depth }

func (s *ImageStack) NumChannels() int { return s.shape.Channels }

// Data exposes the backing buffer for writers. Callers must not modify it.
func (s *ImageStack) Data() []float64 { return s.data }

// Channel returns plane i. The slice aliases the stack.
func (s *ImageStack) Channel(i int) []float64 {
	n := s.shape.PlaneSize()
	return s.data[i*n : (i+1)*n : (i+1)*n]
}

// Select builds a new stack from the given channel indices, in that order.
// An empty index list yields a zero-channel stack with the same plane size.
func (s *ImageStack) Select(indices []int) (*ImageStack, error) {
	n := s.shape.PlaneSize()
	out := make([]float64, 0, len(indices)*n)
	for _, idx := range indices {
		if idx < 0 || idx >= s.shape.Channels {
			return nil, fmt.Errorf("channel index %d out of range [0, %d)", idx, s.shape.Channels)
		}
		out = append(out, s.Channel(idx)...)
	}

	shape := s.shape
	shape.Channels = len(indices)
	return &ImageStack{shape: shape, depth: s.depth, data: out}, nil
}

func (s *ImageStack) Equal(other *ImageStack) bool {
	if other == nil || s.shape != other.shape || s.depth != other.depth {
		return false
	}
	for i, v := range s.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}
