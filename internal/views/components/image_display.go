package components

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
)

const (
	ImageAreaWidth  = 600
	ImageAreaHeight = 450
)

// ImageDisplay holds the composited view of all visible layers.
type ImageDisplay struct {
	container *fyne.Container
	image     *canvas.Image
	hasImage  bool
}

func NewImageDisplay() *ImageDisplay {
	id := &ImageDisplay{}

	id.image = canvas.NewImageFromImage(placeholder())
	id.image.FillMode = canvas.ImageFillContain
	id.image.ScaleMode = canvas.ImageScaleSmooth
	id.image.SetMinSize(fyne.NewSize(ImageAreaWidth, ImageAreaHeight))

	background := canvas.NewRectangle(color.Black)
	id.container = container.NewStack(background, id.image)
	return id
}

// placeholder is a small dark frame with a lighter border, shown until the
// first composite arrives.
func placeholder() image.Image {
	const w, h = 64, 48
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fill := color.RGBA{R: 24, G: 24, B: 24, A: 255}
	border := color.RGBA{R: 64, G: 64, B: 64, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				img.SetRGBA(x, y, border)
			} else {
				img.SetRGBA(x, y, fill)
			}
		}
	}
	return img
}

func (id *ImageDisplay) SetImage(img image.Image) {
	if img == nil {
		id.Clear()
		return
	}
	id.image.Image = img
	id.hasImage = true
	id.image.Refresh()
}

func (id *ImageDisplay) Image() image.Image {
	return id.image.Image
}

func (id *ImageDisplay) HasImage() bool {
	return id.hasImage
}

func (id *ImageDisplay) Clear() {
	id.image.Image = placeholder()
	id.hasImage = false
	id.image.Refresh()
}

func (id *ImageDisplay) GetContainer() *fyne.Container {
	return id.container
}
