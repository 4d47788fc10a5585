package services

import (
	"context"
	"time"

	"mibi-viewer/internal/logger"
	"mibi-viewer/internal/models"
)

// StackSource is anything that yields a stack and its channel labels from
// a file.
type StackSource interface {
	Load(path string) (*models.ImageStack, []string, error)
}

// ImageService picks the loader for a source file and builds the
// application state from it.
type ImageService struct {
	tiff   StackSource
	hdf5   StackSource
	logger logger.Logger
}

func NewImageService(tiff, hdf5 StackSource, log logger.Logger) *ImageService {
	if log == nil {
		log = logger.Nop()
	}
	return &ImageService{tiff: tiff, hdf5: hdf5, logger: log}
}

func (is *ImageService) Load(ctx context.Context, path string) (*models.AppState, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	startTime := time.Now()

	kind, err := ClassifySource(path)
	if err != nil {
		return nil, ioErr("open", path, err)
	}

	var source StackSource
	switch kind {
	case SourceTIFF:
		source = is.tiff
	case SourceHDF5:
		source = is.hdf5
	}

	stack, labels, err := source.Load(path)
	if err != nil {
		return nil, err
	}

	state, err := models.NewAppState(path, kind.String(), stack, labels)
	if err != nil {
		return nil, ioErr("open", path, err)
	}

	is.logger.Info("ImageService", "image stack loaded", map[string]interface{}{
		"path":     path,
		"kind":     kind.String(),
		"shape":    stack.Shape().String(),
		"depth":    stack.Depth().String(),
		"channels": labels,
		"load_ms":  time.Since(startTime).Milliseconds(),
	})

	return state, nil
}
