package controllers

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"

	"mibi-viewer/internal/logger"
	"mibi-viewer/internal/models"
	"mibi-viewer/internal/services"
	"mibi-viewer/internal/views"
)

const component = "MainController"

// View is the part of views.MainView the controller drives.
type View interface {
	SetLayers(layers []models.Layer)
	SetImage(img image.Image)
	SetWindowTitle(title string)
	SetImageInfo(name, kind string, channels, height, width int)
	SetVisibleCount(visible, total int)
	UpdateStatus(status string)
	ShowError(err error)
	ShowSaveDialog(prompt, suggested string, callback func(path string, err error))
}

type Loader interface {
	Load(ctx context.Context, path string) (*models.AppState, error)
}

type Exporter interface {
	Handle(ctx context.Context, cmd models.ExportCommand, state *models.AppState, layers *models.LayerList, path string) (*services.ExportResult, error)
}

type Compositor interface {
	Composite(stack *models.ImageStack, layers []models.Layer) (*image.RGBA, error)
}

// MainController owns the loaded state and the layer list, and turns view
// events into service calls. Blocking work runs through runAsync and comes
// back to the UI thread through onUI.
type MainController struct {
	ctx        context.Context
	loader     Loader
	exporter   Exporter
	compositor Compositor
	rng        *rand.Rand
	logger     logger.Logger

	interpolation models.Interpolation

	view View

	mu     sync.RWMutex
	state  *models.AppState
	layers *models.LayerList

	renderGen atomic.Uint64
	wg        sync.WaitGroup

	runAsync func(func())
	onUI     func(func())
	onFatal  func(error)
}

func NewMainController(ctx context.Context, loader Loader, exporter Exporter, compositor Compositor, rng *rand.Rand, log logger.Logger) *MainController {
	if log == nil {
		log = logger.Nop()
	}
	mc := &MainController{
		ctx:        ctx,
		loader:     loader,
		exporter:   exporter,
		compositor: compositor,
		rng:        rng,
		logger:     log,
		onUI:       fyne.Do,
	}
	mc.runAsync = func(fn func()) {
		mc.wg.Add(1)
		go func() {
			defer mc.wg.Done()
			fn()
		}()
	}
	return mc
}

// SetMainView binds the view and subscribes to its events.
func (mc *MainController) SetMainView(view *views.MainView) {
	mc.setView(view)
	view.SetExportHandler(mc.OnExport)
	view.SetVisibilityHandler(mc.OnVisibilityChanged)
	view.SetColormapHandler(mc.OnColormapChanged)
}

func (mc *MainController) setView(view View) {
	mc.view = view
}

// SetInterpolation overrides the resampling of layers created by later
// loads. The zero value keeps the gaussian default.
func (mc *MainController) SetInterpolation(interp models.Interpolation) {
	mc.interpolation = interp
}

// SetFatalHandler is called on the UI thread when the source cannot be
// loaded.
func (mc *MainController) SetFatalHandler(handler func(error)) {
	mc.onFatal = handler
}

func (mc *MainController) State() *models.AppState {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.state
}

func (mc *MainController) Layers() *models.LayerList {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.layers
}

// Load reads the source in the background, then creates one hidden layer
// per channel with a random colormap and shows them.
func (mc *MainController) Load(path string) {
	mc.view.UpdateStatus(fmt.Sprintf("Loading %s...", filepath.Base(path)))

	mc.runAsync(func() {
		state, err := mc.loader.Load(mc.ctx, path)
		if err != nil {
			mc.onUI(func() { mc.fatal(err) })
			return
		}

		mc.onUI(func() {
			layers, err := models.NewLayerList(state.Stack, state.Labels, mc.rng)
			if err != nil {
				mc.fatal(err)
				return
			}
			if mc.interpolation != "" {
				layers.SetInterpolation(mc.interpolation)
			}
			mc.attach(state, layers)
		})
	})
}

func (mc *MainController) attach(state *models.AppState, layers *models.LayerList) {
	mc.mu.Lock()
	mc.state = state
	mc.layers = layers
	mc.mu.Unlock()

	shape := state.Stack.Shape()
	snapshot := layers.Snapshot()

	fields := map[string]interface{}{"layers": len(snapshot)}
	for _, layer := range snapshot {
		fields[layer.Name] = layer.Colormap.Name
	}
	mc.logger.Info(component, "layers created", fields)

	mc.view.SetWindowTitle(state.Title())
	mc.view.SetImageInfo(state.Title(), state.SourceKind, shape.Channels, shape.Height, shape.Width)
	mc.view.SetLayers(snapshot)
	mc.view.UpdateStatus("Ready")
	mc.refresh()
}

func (mc *MainController) fatal(err error) {
	mc.logger.Error(component, err, map[string]interface{}{"stage": "load"})
	if mc.onFatal != nil {
		mc.onFatal(err)
		return
	}
	mc.view.ShowError(err)
}

func (mc *MainController) OnVisibilityChanged(index int, visible bool) {
	layers := mc.Layers()
	if layers == nil {
		return
	}
	if err := layers.SetVisible(index, visible); err != nil {
		mc.handleError(err)
		return
	}
	mc.logger.Debug(component, "layer visibility changed", map[string]interface{}{
		"index":   index,
		"visible": visible,
	})
	mc.refresh()
}

func (mc *MainController) OnColormapChanged(index int, name string) {
	layers := mc.Layers()
	if layers == nil {
		return
	}
	if err := layers.SetColormap(index, name); err != nil {
		mc.handleError(err)
		return
	}
	mc.refresh()
}

// refresh re-composites the visible layers off the UI thread. Only the
// newest request is shown.
func (mc *MainController) refresh() {
	state, layers := mc.State(), mc.Layers()
	if state == nil || layers == nil {
		return
	}

	snapshot := layers.Snapshot()
	visible, _ := layers.VisibleIndices()
	mc.view.SetVisibleCount(len(visible), len(snapshot))

	gen := mc.renderGen.Add(1)
	mc.runAsync(func() {
		img, err := mc.compositor.Composite(state.Stack, snapshot)
		mc.onUI(func() {
			if mc.renderGen.Load() != gen {
				return
			}
			if err != nil {
				mc.handleError(err)
				return
			}
			mc.view.SetImage(img)
		})
	})
}

// OnExport is the single handler behind both File > Export as H5... items.
func (mc *MainController) OnExport(cmd models.ExportCommand) {
	state, layers := mc.State(), mc.Layers()
	if state == nil || layers == nil {
		mc.handleError(fmt.Errorf("%w: nothing loaded", services.ErrEmptySelection))
		return
	}

	mc.view.ShowSaveDialog(cmd.Prompt(), suggestedName(state, cmd), func(path string, err error) {
		if err != nil {
			mc.handleError(err)
			return
		}
		if path == "" {
			mc.view.UpdateStatus("Export cancelled")
			return
		}
		mc.export(cmd, state, layers, path)
	})
}

func (mc *MainController) export(cmd models.ExportCommand, state *models.AppState, layers *models.LayerList, path string) {
	mc.view.UpdateStatus(fmt.Sprintf("Exporting to %s...", filepath.Base(path)))

	mc.runAsync(func() {
		result, err := mc.exporter.Handle(mc.ctx, cmd, state, layers, path)
		mc.onUI(func() {
			if err != nil {
				mc.handleError(err)
				return
			}
			mc.view.UpdateStatus(fmt.Sprintf("Exported %d channels to %s", len(result.Channels), filepath.Base(result.Path)))
		})
	})
}

func (mc *MainController) handleError(err error) {
	mc.logger.Error(component, err, nil)
	mc.view.UpdateStatus("Error: " + err.Error())
	mc.view.ShowError(err)
}

// Wait blocks until background loads, renders and exports have finished.
func (mc *MainController) Wait() {
	mc.wg.Wait()
}

func (mc *MainController) Shutdown() {
	mc.Wait()
	mc.logger.Info(component, "controller shutdown complete", nil)
}

func suggestedName(state *models.AppState, cmd models.ExportCommand) string {
	base := strings.TrimSuffix(state.Title(), filepath.Ext(state.Title()))
	if cmd == models.ExportVisible {
		return base + "_visible.h5"
	}
	return base + ".h5"
}
