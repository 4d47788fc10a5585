package services

import (
	"fmt"
	"path/filepath"
	"strings"
)

type SourceKind int

const (
	SourceUnrecognized SourceKind = iota
	SourceTIFF
	SourceHDF5
)

func (k SourceKind) String() string {
	switch k {
	case SourceTIFF:
		return "tiff"
	case SourceHDF5:
		return "hdf5"
	default:
		return "unrecognized"
	}
}

// ClassifySource decides the input format from the file extension.
func ClassifySource(path string) (SourceKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return SourceTIFF, nil
	case ".h5", ".hdf5":
		return SourceHDF5, nil
	default:
		return SourceUnrecognized, fmt.Errorf("%w: %q (expected .tif, .tiff, .h5 or .hdf5)", ErrUnrecognizedInput, filepath.Base(path))
	}
}
