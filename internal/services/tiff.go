package services

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	exiftiff "github.com/rwcarlsen/goexif/tiff"
	"gocv.io/x/gocv"

	"mibi-viewer/internal/models"
	"mibi-viewer/internal/opencv/conversion"
)

// tagPageName is the TIFF PageName tag (285). MIBItiff writers store the
// channel target there, one per page.
const tagPageName uint16 = 285

// PageDecoder turns every page of a multi-page TIFF into one channel plane.
// The returned depth is the sample type of the pages.
type PageDecoder interface {
	DecodePages(path string) (models.Shape, models.Depth, []float64, error)
}

// GocvDecoder reads all pages through OpenCV, keeping the native bit depth
// and promoting each plane to float64.
type GocvDecoder struct{}

func (GocvDecoder) DecodePages(path string) (models.Shape, models.Depth, []float64, error) {
	mats := gocv.IMReadMulti(path, gocv.IMReadUnchanged)
	defer func() {
		for i := range mats {
			mats[i].Close()
		}
	}()

	if len(mats) == 0 {
		return models.Shape{}, 0, nil, fmt.Errorf("%w: no readable pages", ErrDecode)
	}

	shape := models.Shape{Channels: len(mats), Height: mats[0].Rows(), Width: mats[0].Cols()}
	depth := matDepth(mats[0].Type())
	data := make([]float64, 0, shape.Len())

	for i := range mats {
		page := mats[i]
		if page.Empty() || page.Channels() != 1 {
			return models.Shape{}, 0, nil, fmt.Errorf("%w: page %d is not a single-channel plane", ErrDecode, i)
		}
		if page.Rows() != shape.Height || page.Cols() != shape.Width {
			return models.Shape{}, 0, nil, fmt.Errorf("%w: page %d is %dx%d, page 0 is %dx%d",
				ErrShapeMismatch, i, page.Cols(), page.Rows(), shape.Width, shape.Height)
		}
		if d := matDepth(page.Type()); d != depth {
			depth = models.DepthFloat64
		}

		plane, err := conversion.MatToFloat64(page)
		if err != nil {
			return models.Shape{}, 0, nil, fmt.Errorf("%w: page %d: %v", ErrDecode, i, err)
		}
		data = append(data, plane...)
	}

	return shape, depth, data, nil
}

// matDepth maps a single-channel OpenCV type to a stack depth. Anything
// without an exact match is kept as float64.
func matDepth(t gocv.MatType) models.Depth {
	switch t {
	case gocv.MatTypeCV8U:
		return models.DepthUint8
	case gocv.MatTypeCV16U:
		return models.DepthUint16
	case gocv.MatTypeCV32F:
		return models.DepthFloat32
	default:
		return models.DepthFloat64
	}
}

// ReadChannelLabels returns the PageName of every IFD in file order. The
// first two pages are the ones exif tools call "Image" and "Thumbnail";
// the rest are numbered IFDs. Every page must carry the tag.
func ReadChannelLabels(r io.Reader) ([]string, error) {
	doc, err := exiftiff.Decode(r)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(doc.Dirs))
	for i, dir := range doc.Dirs {
		label, err := pageName(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrUnsupportedTags, i, err)
		}
		labels = append(labels, label)
	}
	return labels, nil
}

func pageName(dir *exiftiff.Dir) (string, error) {
	for _, tag := range dir.Tags {
		if tag.Id != tagPageName {
			continue
		}
		value, err := tag.StringVal()
		if err != nil {
			return "", err
		}
		return strings.TrimRight(value, "\x00"), nil
	}
	return "", fmt.Errorf("no PageName tag")
}

type TIFFLoader struct {
	decoder PageDecoder
}

func NewTIFFLoader(decoder PageDecoder) *TIFFLoader {
	if decoder == nil {
		decoder = GocvDecoder{}
	}
	return &TIFFLoader{decoder: decoder}
}

// Load decodes the pages, then reads the same file's tags for labels. The
// label count must match the decoded page count.
func (l *TIFFLoader) Load(path string) (*models.ImageStack, []string, error) {
	shape, depth, data, err := l.decoder.DecodePages(path)
	if err != nil {
		return nil, nil, ioErr("decode", path, err)
	}

	stack, err := models.NewImageStack(shape, data)
	if err != nil {
		return nil, nil, ioErr("decode", path, err)
	}
	stack = stack.WithDepth(depth)

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, ioErr("open", path, err)
	}
	defer f.Close()

	labels, err := ReadChannelLabels(bufio.NewReader(f))
	if err != nil {
		return nil, nil, ioErr("read-tags", path, err)
	}

	if len(labels) != stack.NumChannels() {
		return nil, nil, ioErr("read-tags", path,
			fmt.Errorf("%w: %d PageName tags for %d decoded pages", ErrUnsupportedTags, len(labels), stack.NumChannels()))
	}

	return stack, labels, nil
}
