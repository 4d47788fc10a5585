package services

import (
	"errors"
	"fmt"

	"mibi-viewer/internal/models"
)

var (
	ErrUnrecognizedInput = errors.New("unrecognized input file type")
	ErrUnsupportedTags   = errors.New("unsupported TIFF tag layout")
	ErrMissingDataset    = errors.New("missing HDF5 dataset")
	ErrEmptySelection    = errors.New("no channels selected for export")
	ErrNoDestination     = errors.New("no destination path")
	ErrDecode            = errors.New("image decode failed")
	ErrUnsupportedType   = errors.New("unsupported HDF5 datatype")

	ErrShapeMismatch = models.ErrShapeMismatch
)

// IOError reports which boundary failed and on which file. It unwraps to
// the cause so callers can still match the sentinels above.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func ioErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}
