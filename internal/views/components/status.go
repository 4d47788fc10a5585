package components

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// StatusBar shows the last message, the loaded stack and how many layers
// are on screen.
type StatusBar struct {
	container    *fyne.Container
	statusLabel  *widget.Label
	imageInfo    *widget.Label
	visibleLabel *widget.Label
}

func NewStatusBar() *StatusBar {
	sb := &StatusBar{
		statusLabel:  widget.NewLabel("Ready"),
		imageInfo:    widget.NewLabel("No image loaded"),
		visibleLabel: widget.NewLabel("Visible: --"),
	}
	sb.container = container.NewHBox(
		sb.statusLabel,
		widget.NewSeparator(),
		sb.imageInfo,
		widget.NewSeparator(),
		sb.visibleLabel,
	)
	return sb
}

func (sb *StatusBar) SetStatus(status string) {
	sb.statusLabel.SetText(status)
}

func (sb *StatusBar) Status() string {
	return sb.statusLabel.Text
}

// SetImageInfo describes the loaded stack, e.g. "data.tiff (TIFF): 4 x 512 x 512".
func (sb *StatusBar) SetImageInfo(name, kind string, channels, height, width int) {
	sb.imageInfo.SetText(fmt.Sprintf("%s (%s): %d x %d x %d", name, kind, channels, height, width))
}

func (sb *StatusBar) ImageInfo() string {
	return sb.imageInfo.Text
}

func (sb *StatusBar) SetVisibleCount(visible, total int) {
	sb.visibleLabel.SetText(fmt.Sprintf("Visible: %d/%d", visible, total))
}

func (sb *StatusBar) VisibleCount() string {
	return sb.visibleLabel.Text
}

func (sb *StatusBar) Reset() {
	sb.statusLabel.SetText("Ready")
	sb.imageInfo.SetText("No image loaded")
	sb.visibleLabel.SetText("Visible: --")
}

func (sb *StatusBar) GetContainer() *fyne.Container {
	return sb.container
}
