package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"mibi-viewer/internal/config"
	"mibi-viewer/internal/controllers"
	"mibi-viewer/internal/logger"
	"mibi-viewer/internal/render"
	"mibi-viewer/internal/services"
	"mibi-viewer/internal/shutdown"
	"mibi-viewer/internal/views"
)

const (
	AppID      = "org.mibi.viewer"
	AppVersion = "1.0.0"
)

// Application is the composition root: it owns the fyne app, the window
// and every long-lived component.
type Application struct {
	fyneApp    fyne.App
	window     fyne.Window
	logger     logger.Logger
	config     *config.Config
	controller *controllers.MainController
	view       *views.MainView
	shutdown   *shutdown.Manager
	exitCode   int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	application := NewApplication(cfg)

	var path string
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	os.Exit(application.Run(path))
}

func NewApplication(cfg *config.Config) *Application {
	appLogger := logger.New(os.Stderr, cfg.Level(), cfg.JSONLogs)

	fyneApp := app.NewWithID(AppID)
	fyneApp.SetMetadata(&fyne.AppMetadata{
		ID:      AppID,
		Name:    views.AppName,
		Version: AppVersion,
	})

	window := fyneApp.NewWindow(views.AppName)
	window.Resize(fyne.NewSize(cfg.Window.Width, cfg.Window.Height))
	window.CenterOnScreen()

	shutdownManager := shutdown.NewManager(appLogger)

	imageService := services.NewImageService(
		services.NewTIFFLoader(nil),
		services.NewHDF5Store(),
		appLogger,
	)
	exportService := services.NewExportService(services.NewHDF5Store(), appLogger)

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	mainController := controllers.NewMainController(
		shutdownManager.Context(),
		imageService,
		exportService,
		render.NewCompositor(),
		rand.New(rand.NewPCG(seed, seed>>32|1)),
		appLogger,
	)
	mainController.SetInterpolation(cfg.Interpolation())
	mainView := views.NewMainView(window)
	mainController.SetMainView(mainView)

	application := &Application{
		fyneApp:    fyneApp,
		window:     window,
		logger:     appLogger,
		config:     cfg,
		controller: mainController,
		view:       mainView,
		shutdown:   shutdownManager,
	}

	mainView.SetQuitHandler(application.quit)
	mainController.SetFatalHandler(application.fatal)
	shutdownManager.Register("controller", mainController)
	shutdownManager.OnSignal(func() {
		fyne.Do(fyneApp.Quit)
	})
	window.SetOnClosed(shutdownManager.Shutdown)

	appLogger.Info("Application", "starting", map[string]interface{}{
		"version":    AppVersion,
		"go_version": runtime.Version(),
		"log_level":  cfg.Level().String(),
		"seed":       seed,
		"resampling": string(cfg.Interpolation()),
		"window":     fmt.Sprintf("%.0fx%.0f", cfg.Window.Width, cfg.Window.Height),
	})

	return application
}

// Run shows the window, loads path (or asks for one) and blocks until the
// UI exits. It returns the process exit status.
func (a *Application) Run(path string) int {
	a.shutdown.Listen()
	a.view.Show()

	if path != "" {
		a.controller.Load(path)
	} else {
		a.window.SetTitle(views.OpenPrompt)
		a.view.ShowOpenDialog(views.OpenPrompt, func(selected string, err error) {
			switch {
			case err != nil:
				a.fatal(err)
			case selected == "":
				a.logger.Info("Application", "no input selected", nil)
				a.quit()
			default:
				a.controller.Load(selected)
			}
		})
	}

	a.fyneApp.Run()
	a.shutdown.Shutdown()

	a.logger.Info("Application", "terminated", map[string]interface{}{"exit_code": a.exitCode})
	return a.exitCode
}

// fatal reports a load failure and exits with status 1 once acknowledged.
func (a *Application) fatal(err error) {
	a.exitCode = 1
	a.view.ShowFatal(err, a.quit)
}

// quit closes the window, which triggers the shutdown sequence through its
// OnClosed callback, then stops the event loop.
func (a *Application) quit() {
	a.view.Close()
	a.fyneApp.Quit()
}
