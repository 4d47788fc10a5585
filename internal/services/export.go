package services

import (
	"context"
	"fmt"

	"mibi-viewer/internal/logger"
	"mibi-viewer/internal/models"
)

// ChannelWriter persists a stack with its labels.
type ChannelWriter interface {
	Save(path string, stack *models.ImageStack, labels []string) error
}

type ExportResult struct {
	Command  models.ExportCommand
	Path     string
	Channels []string
	Shape    models.Shape
}

// ExportService is the single entry point for both export menu actions.
type ExportService struct {
	writer ChannelWriter
	logger logger.Logger
}

func NewExportService(writer ChannelWriter, log logger.Logger) *ExportService {
	if log == nil {
		log = logger.Nop()
	}
	return &ExportService{writer: writer, logger: log}
}

// Selection resolves what a command would write without touching disk.
func (es *ExportService) Selection(cmd models.ExportCommand, state *models.AppState, layers *models.LayerList) (*models.ImageStack, []string, error) {
	switch cmd {
	case models.ExportAll:
		return state.Stack, state.Labels, nil
	case models.ExportVisible:
		indices, names := layers.VisibleIndices()
		if len(indices) == 0 {
			return nil, nil, ErrEmptySelection
		}
		subset, err := state.Stack.Select(indices)
		if err != nil {
			return nil, nil, err
		}
		return subset, names, nil
	default:
		return nil, nil, fmt.Errorf("unknown export command %d", int(cmd))
	}
}

func (es *ExportService) Handle(ctx context.Context, cmd models.ExportCommand, state *models.AppState, layers *models.LayerList, path string) (*ExportResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if path == "" {
		return nil, ErrNoDestination
	}

	stack, labels, err := es.Selection(cmd, state, layers)
	if err != nil {
		return nil, err
	}

	if err := es.writer.Save(path, stack, labels); err != nil {
		es.logger.Error("ExportService", err, map[string]interface{}{
			"command": cmd.String(),
			"path":    path,
		})
		return nil, err
	}

	result := &ExportResult{
		Command:  cmd,
		Path:     path,
		Channels: labels,
		Shape:    stack.Shape(),
	}

	es.logger.Info("ExportService", "channels exported", map[string]interface{}{
		"command":  cmd.String(),
		"path":     path,
		"shape":    result.Shape.String(),
		"channels": labels,
	})

	return result, nil
}
