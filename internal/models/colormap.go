package models

import (
	"fmt"
	"math/rand/v2"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Colormap is a single-hue linear lookup: intensity t in [0, 1] maps to
// t * Hue.
type Colormap struct {
	Name string
	Hue  colorful.Color
}

func (c Colormap) Apply(t float64) colorful.Color {
	switch {
	case t <= 0:
		return colorful.Color{}
	case t >= 1:
		return c.Hue
	}
	return colorful.Color{R: c.Hue.R * t, G: c.Hue.G * t, B: c.Hue.B * t}
}

// Palette is the fixed set of linear monochrome LUTs layers draw from.
var Palette = []Colormap{
	{Name: "blue", Hue: colorful.Color{R: 0, G: 0, B: 1}},
	{Name: "cyan", Hue: colorful.Color{R: 0, G: 1, B: 1}},
	{Name: "gray", Hue: colorful.Color{R: 1, G: 1, B: 1}},
	{Name: "green", Hue: colorful.Color{R: 0, G: 1, B: 0}},
	{Name: "magenta", Hue: colorful.Color{R: 1, G: 0, B: 1}},
	{Name: "red", Hue: colorful.Color{R: 1, G: 0, B: 0}},
	{Name: "yellow", Hue: colorful.Color{R: 1, G: 1, B: 0}},
}

func PaletteNames() []string {
	names := make([]string, len(Palette))
	for i, c := range Palette {
		names[i] = c.Name
	}
	return names
}

func LookupColormap(name string) (Colormap, error) {
	for _, c := range Palette {
		if c.Name == name {
			return c, nil
		}
	}
	return Colormap{}, fmt.Errorf("unknown colormap %q", name)
}

// RandomColormap draws uniformly from Palette, with replacement.
func RandomColormap(rng *rand.Rand) Colormap {
	return Palette[rng.IntN(len(Palette))]
}
