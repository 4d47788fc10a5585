package conversion

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

var ErrEmptyMat = errors.New("empty Mat")

// MatToFloat64 copies a single-channel Mat of any depth into a float64
// plane in row-major order.
func MatToFloat64(src gocv.Mat) ([]float64, error) {
	if src.Empty() {
		return nil, ErrEmptyMat
	}
	if src.Channels() != 1 {
		return nil, fmt.Errorf("expected 1 channel, got %d", src.Channels())
	}

	dst := gocv.NewMat()
	defer dst.Close()

	src.ConvertTo(&dst, gocv.MatTypeCV64F)
	if dst.Empty() {
		return nil, fmt.Errorf("%w: conversion to CV_64F failed", ErrEmptyMat)
	}

	values, err := dst.DataPtrFloat64()
	if err != nil {
		return nil, err
	}
	// values aliases dst, which is released on return.
	return append([]float64(nil), values...), nil
}

// Float64ToMat builds a CV_64F Mat holding plane. The caller owns the Mat.
func Float64ToMat(plane []float64, rows, cols int) (gocv.Mat, error) {
	if rows <= 0 || cols <= 0 || len(plane) != rows*cols {
		return gocv.NewMat(), fmt.Errorf("plane of %d values does not fit %dx%d", len(plane), cols, rows)
	}

	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV64F)
	values, err := mat.DataPtrFloat64()
	if err != nil {
		mat.Close()
		return gocv.NewMat(), err
	}
	copy(values, plane)
	return mat, nil
}

// GaussianSmooth blurs a plane with an isotropic gaussian of the given
// sigma. The kernel size is derived from sigma by OpenCV.
func GaussianSmooth(plane []float64, rows, cols int, sigma float64) ([]float64, error) {
	src, err := Float64ToMat(plane, rows, cols)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	gocv.GaussianBlur(src, &dst, image.Point{}, sigma, sigma, gocv.BorderReflect101)
	return MatToFloat64(dst)
}
