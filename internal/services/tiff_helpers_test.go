package services

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// tiffPage describes one uncompressed 8-bit grayscale page.
type tiffPage struct {
	name     string
	omitName bool
	width    int
	height   int
	pixels   []byte
}

func grayPage(name string, width, height int, fill func(x, y int) byte) tiffPage {
	pixels := make([]byte, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixels[y*width+x] = fill(x, y)
		}
	}
	return tiffPage{name: name, width: width, height: height, pixels: pixels}
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32
}

const (
	tiffASCII = 2
	tiffShort = 3
	tiffLong  = 4
)

// writeTIFF lays out a little-endian baseline TIFF: per page, pixel data,
// then the PageName string, then the IFD linking to the next page.
func writeTIFF(t *testing.T, path string, pages []tiffPage) {
	t.Helper()
	le := binary.LittleEndian

	buf := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	prevLink := 4

	for _, p := range pages {
		stripOffset := len(buf)
		buf = append(buf, p.pixels...)

		nameOffset := 0
		nameBytes := append([]byte(p.name), 0)
		if !p.omitName && len(nameBytes) > 4 {
			if len(buf)%2 == 1 {
				buf = append(buf, 0)
			}
			nameOffset = len(buf)
			buf = append(buf, nameBytes...)
		}
		if len(buf)%2 == 1 {
			buf = append(buf, 0)
		}

		entries := []ifdEntry{
			{256, tiffShort, 1, uint32(p.width)},
			{257, tiffShort, 1, uint32(p.height)},
			{258, tiffShort, 1, 8},
			{259, tiffShort, 1, 1},
			{262, tiffShort, 1, 1},
			{273, tiffLong, 1, uint32(stripOffset)},
			{277, tiffShort, 1, 1},
			{278, tiffShort, 1, uint32(p.height)},
			{279, tiffLong, 1, uint32(len(p.pixels))},
		}
		if !p.omitName {
			value := uint32(nameOffset)
			if len(nameBytes) <= 4 {
				var inline [4]byte
				copy(inline[:], nameBytes)
				value = le.Uint32(inline[:])
			}
			entries = append(entries, ifdEntry{tagPageName, tiffASCII, uint32(len(nameBytes)), value})
		}

		ifdOffset := len(buf)
		le.PutUint32(buf[prevLink:], uint32(ifdOffset))

		buf = le.AppendUint16(buf, uint16(len(entries)))
		for _, e := range entries {
			buf = le.AppendUint16(buf, e.tag)
			buf = le.AppendUint16(buf, e.typ)
			buf = le.AppendUint32(buf, e.count)
			if e.typ == tiffShort {
				buf = le.AppendUint16(buf, uint16(e.value))
				buf = le.AppendUint16(buf, 0)
			} else {
				buf = le.AppendUint32(buf, e.value)
			}
		}
		prevLink = len(buf)
		buf = le.AppendUint32(buf, 0)
	}

	require.NoError(t, os.WriteFile(path, buf, 0o644))
}
