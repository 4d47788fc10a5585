package views

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"mibi-viewer/internal/models"
	"mibi-viewer/internal/views/components"
)

const (
	AppName    = "MIBI Viewer"
	OpenPrompt = "Select MIBI image File:"
	ExportMenu = "Export as H5..."
)

var (
	inputExtensions  = []string{".tif", ".tiff", ".h5", ".hdf5"}
	outputExtensions = []string{".h5", ".hdf5"}
)

// MainView is the viewer window: composited image, layer list, status bar
// and the File menu. Its methods must run on the UI thread.
type MainView struct {
	window        fyne.Window
	mainContainer *fyne.Container
	imageDisplay  *components.ImageDisplay
	layerPanel    *components.LayerPanel
	statusBar     *components.StatusBar
	mainMenu      *fyne.MainMenu

	exportHandler func(models.ExportCommand)
	quitHandler   func()
}

func NewMainView(window fyne.Window) *MainView {
	mv := &MainView{
		window:       window,
		imageDisplay: components.NewImageDisplay(),
		layerPanel:   components.NewLayerPanel(),
		statusBar:    components.NewStatusBar(),
	}

	mv.buildLayout()
	mv.buildMenus()
	return mv
}

func (mv *MainView) buildLayout() {
	split := container.NewHSplit(mv.imageDisplay.GetContainer(), mv.layerPanel.GetContainer())
	split.SetOffset(0.75)

	mv.mainContainer = container.NewBorder(nil, mv.statusBar.GetContainer(), nil, nil, split)
	mv.window.SetContent(mv.mainContainer)
}

// buildMenus installs File > Export as H5... > {All channels, Only visible
// channels} and File > Quit.
func (mv *MainView) buildMenus() {
	exportItems := make([]*fyne.MenuItem, 0, len(models.ExportCommands))
	for _, cmd := range models.ExportCommands {
		exportItems = append(exportItems, fyne.NewMenuItem(cmd.MenuLabel(), func() {
			if mv.exportHandler != nil {
				mv.exportHandler(cmd)
			}
		}))
	}

	exportItem := fyne.NewMenuItem(ExportMenu, nil)
	exportItem.ChildMenu = fyne.NewMenu("", exportItems...)

	quitItem := fyne.NewMenuItem("Quit", func() {
		if mv.quitHandler != nil {
			mv.quitHandler()
			return
		}
		mv.Close()
	})
	quitItem.IsQuit = true

	fileMenu := fyne.NewMenu("File", exportItem, fyne.NewMenuItemSeparator(), quitItem)
	mv.mainMenu = fyne.NewMainMenu(fileMenu)
	mv.window.SetMainMenu(mv.mainMenu)
}

func (mv *MainView) SetExportHandler(handler func(models.ExportCommand)) {
	mv.exportHandler = handler
}

func (mv *MainView) SetQuitHandler(handler func()) {
	mv.quitHandler = handler
}

func (mv *MainView) SetVisibilityHandler(handler func(int, bool)) {
	mv.layerPanel.SetVisibilityHandler(handler)
}

func (mv *MainView) SetColormapHandler(handler func(int, string)) {
	mv.layerPanel.SetColormapHandler(handler)
}

func (mv *MainView) SetLayers(layers []models.Layer) {
	mv.layerPanel.SetLayers(layers)
}

func (mv *MainView) SetImage(img image.Image) {
	mv.imageDisplay.SetImage(img)
}

func (mv *MainView) SetWindowTitle(title string) {
	mv.window.SetTitle(title)
}

func (mv *MainView) UpdateStatus(status string) {
	mv.statusBar.SetStatus(status)
}

func (mv *MainView) SetImageInfo(name, kind string, channels, height, width int) {
	mv.statusBar.SetImageInfo(name, kind, channels, height, width)
}

func (mv *MainView) SetVisibleCount(visible, total int) {
	mv.statusBar.SetVisibleCount(visible, total)
}

func (mv *MainView) ShowError(err error) {
	dialog.ShowError(err, mv.window)
}

// ShowFatal shows err and calls onClosed once the user dismisses it.
func (mv *MainView) ShowFatal(err error, onClosed func()) {
	d := dialog.NewError(err, mv.window)
	if onClosed != nil {
		d.SetOnClosed(onClosed)
	}
	d.Show()
}

// ShowOpenDialog asks for a TIFF or HDF5 source. A cancelled dialog calls
// back with an empty path and no error.
func (mv *MainView) ShowOpenDialog(prompt string, callback func(path string, err error)) {
	mv.statusBar.SetStatus(prompt)

	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			callback("", err)
			return
		}
		path := reader.URI().Path()
		reader.Close()
		callback(path, nil)
	}, mv.window)
	d.SetFilter(storage.NewExtensionFileFilter(inputExtensions))
	d.Show()
}

// ShowSaveDialog asks where to write an HDF5 export. The dialog creates the
// file; the caller truncates it when writing.
func (mv *MainView) ShowSaveDialog(prompt, suggested string, callback func(path string, err error)) {
	mv.statusBar.SetStatus(prompt)

	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			callback("", err)
			return
		}
		path := writer.URI().Path()
		writer.Close()
		callback(path, nil)
	}, mv.window)
	d.SetFilter(storage.NewExtensionFileFilter(outputExtensions))
	if suggested != "" {
		d.SetFileName(suggested)
	}
	d.Show()
}

func (mv *MainView) Show() {
	mv.window.Show()
}

// Close closes the window, which runs its OnClosed callback.
func (mv *MainView) Close() {
	mv.window.Close()
}

func (mv *MainView) GetWindow() fyne.Window {
	return mv.window
}

func (mv *MainView) MainMenu() *fyne.MainMenu {
	return mv.mainMenu
}

func (mv *MainView) ImageDisplay() *components.ImageDisplay {
	return mv.imageDisplay
}

func (mv *MainView) LayerPanel() *components.LayerPanel {
	return mv.layerPanel
}

func (mv *MainView) StatusBar() *components.StatusBar {
	return mv.statusBar
}
