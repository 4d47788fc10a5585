package models

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
)

type Blending string

const BlendAdditive Blending = "additive"

type Interpolation string

const (
	InterpolationGaussian Interpolation = "gaussian"
	InterpolationNearest  Interpolation = "nearest"
)

// Layer is the viewer's projection of one channel.
type Layer struct {
	Name          string
	Channel       int
	Colormap      Colormap
	Opacity       float64
	Blending      Blending
	Interpolation Interpolation
	Visible       bool

	// Contrast limits used to normalise the channel before colouring.
	ContrastMin float64
	ContrastMax float64
}

// LayerList owns one layer per channel, in display order. Visibility is
// written from the UI thread and read by export workers, hence the lock.
type LayerList struct {
	mu     sync.RWMutex
	layers []Layer
}

// NewLayerList creates hidden layers for every channel of the stack, each
// with a colormap drawn from rng.
func NewLayerList(stack *ImageStack, labels []string, rng *rand.Rand) (*LayerList, error) {
	if len(labels) != stack.NumChannels() {
		return nil, fmt.Errorf("%w: %d labels for %d channels", ErrShapeMismatch, len(labels), stack.NumChannels())
	}

	layers := make([]Layer, stack.NumChannels())
	for c := range layers {
		plane := stack.Channel(c)
		layers[c] = Layer{
			Name:          labels[c],
			Channel:       c,
			Colormap:      RandomColormap(rng),
			Opacity:       1.0,
			Blending:      BlendAdditive,
			Interpolation: InterpolationGaussian,
			Visible:       false,
			ContrastMin:   floats.Min(plane),
			ContrastMax:   floats.Max(plane),
		}
	}

	return &LayerList{layers: layers}, nil
}

func (l *LayerList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.layers)
}

// Snapshot copies the current layer settings.
func (l *LayerList) Snapshot() []Layer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Layer(nil), l.layers...)
}

func (l *LayerList) Layer(i int) (Layer, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.check(i); err != nil {
		return Layer{}, err
	}
	return l.layers[i], nil
}

func (l *LayerList) SetVisible(i int, visible bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(i); err != nil {
		return err
	}
	l.layers[i].Visible = visible
	return nil
}

func (l *LayerList) SetColormap(i int, name string) error {
	cmap, err := LookupColormap(name)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.check(i); err != nil {
		return err
	}
	l.layers[i].Colormap = cmap
	return nil
}

func (l *LayerList) SetInterpolation(interp Interpolation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.layers {
		l.layers[i].Interpolation = interp
	}
}

// VisibleIndices scans layers in display order and returns the channel
// indices and names of the visible ones.
func (l *LayerList) VisibleIndices() ([]int, []string) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var indices []int
	var names []string
	for _, layer := range l.layers {
		if layer.Visible {
			indices = append(indices, layer.Channel)
			names = append(names, layer.Name)
		}
	}
	return indices, names
}

func (l *LayerList) check(i int) error {
	if i < 0 || i >= len(l.layers) {
		return fmt.Errorf("layer index %d out of range [0, %d)", i, len(l.layers))
	}
	return nil
}
