package pdf

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dunamismax/mkpdf/internal/domain"
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1
	markerTEM  = 0x01
	markerRST0 = 0xD0
	markerRST7 = 0xD7
)

var exifHeader = []byte("Exif\x00\x00")

// StripEXIF returns data without its Exif APP1 segments. Other segments and
// the entropy-coded scan are copied unchanged. data is returned as-is when
// it carries no Exif segment.
func StripEXIF(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing jpeg start-of-image marker", domain.ErrDecode)
	}

	out := make([]byte, 0, len(data))
	out = append(out, data[:2]...)
	stripped := false

	i := 2
	for {
		if i >= len(data) {
			return nil, fmt.Errorf("%w: jpeg ends before start-of-scan", domain.ErrDecode)
		}
		if data[i] != 0xFF {
			return nil, fmt.Errorf("%w: expected jpeg marker at offset %d", domain.ErrDecode, i)
		}
		// Markers may be preceded by any number of 0xFF fill bytes.
		for i+1 < len(data) && data[i+1] == 0xFF {
			i++
		}
		if i+1 >= len(data) {
			return nil, fmt.Errorf("%w: truncated jpeg marker", domain.ErrDecode)
		}

		marker := data[i+1]
		switch {
		case marker == markerSOS:
			out = append(out, data[i:]...)
			if !stripped {
				return data, nil
			}
			return out, nil
		case marker == markerEOI:
			return nil, fmt.Errorf("%w: jpeg has no image data", domain.ErrDecode)
		case marker == markerTEM || (marker >= markerRST0 && marker <= markerRST7):
			out = append(out, data[i:i+2]...)
			i += 2
			continue
		}

		if i+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated jpeg segment", domain.ErrDecode)
		}
		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		end := i + 2 + length
		if length < 2 || end > len(data) {
			return nil, fmt.Errorf("%w: bad jpeg segment length at offset %d", domain.ErrDecode, i)
		}

		if marker == markerAPP1 && bytes.HasPrefix(data[i+4:end], exifHeader) {
			stripped = true
		} else {
			out = append(out, data[i:end]...)
		}
		i = end
	}
}
