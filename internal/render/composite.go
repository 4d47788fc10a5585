// Package render turns the visible layers of a stack into one RGBA image.
package render

import (
	"fmt"
	"image"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"

	"mibi-viewer/internal/models"
	"mibi-viewer/internal/opencv/conversion"
)

const DefaultSigma = 1.0

type Compositor struct {
	// Sigma is the gaussian width, in pixels, for layers using gaussian
	// interpolation.
	Sigma float64
}

func NewCompositor() *Compositor {
	return &Compositor{Sigma: DefaultSigma}
}

// Composite sums every visible layer additively: each channel is scaled to
// [0, 1] by its contrast limits, optionally smoothed, coloured through its
// colormap and weighted by opacity. Sums above 1 clip to white.
func (c *Compositor) Composite(stack *models.ImageStack, layers []models.Layer) (*image.RGBA, error) {
	shape := stack.Shape()
	n := shape.PlaneSize()
	acc := make([]colorful.Color, n)

	for _, layer := range layers {
		if !layer.Visible || layer.Opacity <= 0 {
			continue
		}
		if layer.Channel < 0 || layer.Channel >= shape.Channels {
			return nil, fmt.Errorf("layer %q refers to channel %d of %d", layer.Name, layer.Channel, shape.Channels)
		}

		plane := normalize(stack.Channel(layer.Channel), layer.ContrastMin, layer.ContrastMax)
		if layer.Interpolation == models.InterpolationGaussian && c.Sigma > 0 {
			smoothed, err := conversion.GaussianSmooth(plane, shape.Height, shape.Width, c.Sigma)
			if err != nil {
				return nil, fmt.Errorf("layer %q: %w", layer.Name, err)
			}
			plane = smoothed
		}

		for i, t := range plane {
			px := layer.Colormap.Apply(t)
			acc[i].R += px.R * layer.Opacity
			acc[i].G += px.G * layer.Opacity
			acc[i].B += px.B * layer.Opacity
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, shape.Width, shape.Height))
	for i, px := range acc {
		r, g, b := px.Clamped().RGB255()
		img.SetRGBA(i%shape.Width, i/shape.Width, color.RGBA{R: r, G: g, B: b, A: 0xff})
	}
	return img, nil
}

func normalize(plane []float64, lo, hi float64) []float64 {
	out := make([]float64, len(plane))
	span := hi - lo
	if span <= 0 {
		return out
	}
	for i, v := range plane {
		t := (v - lo) / span
		switch {
		case t < 0:
			t = 0
		case t > 1:
			t = 1
		}
		out[i] = t
	}
	return out
}
