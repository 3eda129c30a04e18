package container

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

const (
	opHasMarker    = "has_marker"
	opInsertMarker = "insert_marker"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// PNG chunk layout: length (4, BE) | type (4) | data (length) | crc (4, BE).
const pngChunkOverhead = 12

// PNG is the codec for PNG files. The marker is the raw payload of a
// tEXt chunk placed immediately before IEND.
type PNG struct{}

type pngChunk struct {
	offset int
	typ    string
	data   []byte
}

// HasMarker walks the chunk list and reports true on the first tEXt chunk
// whose payload equals marker byte for byte. CRCs are not re-verified.
func (PNG) HasMarker(data []byte, marker string) (bool, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return false, formatErr(FormatPNG, opHasMarker, -1, "missing PNG signature")
	}

	want := []byte(marker)
	for off := len(pngSignature); off < len(data); {
		c, next, err := readPNGChunk(data, off, opHasMarker)
		if err != nil {
			return false, err
		}
		switch c.typ {
		case "tEXt":
			if bytes.Equal(c.data, want) {
				return true, nil
			}
		case "IEND":
			return false, nil
		}
		off = next
	}
	return false, nil
}

// InsertMarker returns data with a tEXt chunk carrying marker spliced in
// right before IEND. Existing markers are left alone, so inserting twice
// yields two chunks.
func (PNG) InsertMarker(data []byte, marker string) ([]byte, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, formatErr(FormatPNG, opInsertMarker, -1, "missing PNG signature")
	}

	iend := -1
	for off := len(pngSignature); off < len(data); {
		c, next, err := readPNGChunk(data, off, opInsertMarker)
		if err != nil {
			return nil, err
		}
		if c.typ == "IEND" {
			iend = c.offset
			break
		}
		off = next
	}
	if iend < 0 {
		return nil, formatErr(FormatPNG, opInsertMarker, len(data), "no IEND chunk")
	}

	chunk := encodePNGChunk("tEXt", []byte(marker))
	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:iend]...)
	out = append(out, chunk...)
	out = append(out, data[iend:]...)
	return out, nil
}

// readPNGChunk decodes the chunk at off and returns the offset of the next one.
func readPNGChunk(data []byte, off int, op string) (pngChunk, int, error) {
	remaining := len(data) - off
	if remaining < pngChunkOverhead {
		return pngChunk{}, 0, formatErr(FormatPNG, op, off, "truncated chunk header")
	}
	length := binary.BigEndian.Uint32(data[off : off+4])
	if uint64(length) > uint64(remaining-pngChunkOverhead) {
		return pngChunk{}, 0, formatErr(FormatPNG, op, off, "chunk length overruns buffer")
	}
	start := off + 8
	end := start + int(length)
	return pngChunk{
		offset: off,
		typ:    string(data[off+4 : off+8]),
		data:   data[start:end],
	}, end + 4, nil
}

// encodePNGChunk serializes a chunk with its CRC32 over type and data.
func encodePNGChunk(typ string, data []byte) []byte {
	buf := make([]byte, pngChunkOverhead+len(data))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(data)))
	copy(buf[4:8], typ)
	copy(buf[8:], data)
	binary.BigEndian.PutUint32(buf[8+len(data):], crc32.ChecksumIEEE(buf[4:8+len(data)]))
	return buf
}
