package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"mibi-viewer/internal/models"
)

// LayerPanel lists one row per layer: a visibility check named after the
// channel and a colormap selector.
type LayerPanel struct {
	container *fyne.Container
	rows      *fyne.Container
	checks    []*widget.Check
	selects   []*widget.Select

	visibilityHandler func(int, bool)
	colormapHandler   func(int, string)

	// Set while rows are filled programmatically so widget callbacks do
	// not echo back to the handlers.
	populating bool
}

func NewLayerPanel() *LayerPanel {
	lp := &LayerPanel{rows: container.NewVBox()}
	lp.container = container.NewBorder(
		widget.NewRichTextFromMarkdown("**Layers**"),
		nil, nil, nil,
		container.NewVScroll(lp.rows),
	)
	return lp
}

func (lp *LayerPanel) SetVisibilityHandler(handler func(int, bool)) {
	lp.visibilityHandler = handler
}

func (lp *LayerPanel) SetColormapHandler(handler func(int, string)) {
	lp.colormapHandler = handler
}

// SetLayers rebuilds the rows from a layer snapshot.
func (lp *LayerPanel) SetLayers(layers []models.Layer) {
	lp.populating = true
	defer func() { lp.populating = false }()

	lp.rows.RemoveAll()
	lp.checks = make([]*widget.Check, len(layers))
	lp.selects = make([]*widget.Select, len(layers))

	for i, layer := range layers {
		index := i

		check := widget.NewCheck(layer.Name, func(on bool) {
			if !lp.populating && lp.visibilityHandler != nil {
				lp.visibilityHandler(index, on)
			}
		})
		check.SetChecked(layer.Visible)

		sel := widget.NewSelect(models.PaletteNames(), func(name string) {
			if !lp.populating && lp.colormapHandler != nil {
				lp.colormapHandler(index, name)
			}
		})
		sel.SetSelected(layer.Colormap.Name)

		lp.checks[i] = check
		lp.selects[i] = sel
		lp.rows.Add(container.NewBorder(nil, nil, nil, sel, check))
	}
	lp.rows.Refresh()
}

func (lp *LayerPanel) Count() int {
	return len(lp.checks)
}

// Check returns the visibility check of row i, or nil.
func (lp *LayerPanel) Check(i int) *widget.Check {
	if i < 0 || i >= len(lp.checks) {
		return nil
	}
	return lp.checks[i]
}

// Select returns the colormap selector of row i, or nil.
func (lp *LayerPanel) Select(i int) *widget.Select {
	if i < 0 || i >= len(lp.selects) {
		return nil
	}
	return lp.selects[i]
}

func (lp *LayerPanel) GetContainer() *fyne.Container {
	return lp.container
}
