package models

import (
	"fmt"
	"path/filepath"
)

// AppState is everything loaded from the source file. It is built once at
// startup and only read afterwards, so handlers may share it freely.
type AppState struct {
	SourcePath string
	SourceKind string
	Stack      *ImageStack
	Labels     []string
}

func NewAppState(path, kind string, stack *ImageStack, labels []string) (*AppState, error) {
	if stack == nil {
		return nil, fmt.Errorf("%w: no image data", ErrShapeMismatch)
	}
	if len(labels) != stack.NumChannels() {
		return nil, fmt.Errorf("%w: %d labels for %d channels", ErrShapeMismatch, len(labels), stack.NumChannels())
	}
	return &AppState{
		SourcePath: path,
		SourceKind: kind,
		Stack:      stack,
		Labels:     append([]string(nil), labels...),
	}, nil
}

func (s *AppState) Title() string {
	return filepath.Base(s.SourcePath)
}
