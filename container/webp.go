package container

import (
	"bytes"
	"encoding/binary"
)

const (
	webpHeaderLen      = 12 // "RIFF" | size (4, LE) | "WEBP"
	webpChunkHeaderLen = 8  // type (4) | size (4, LE)

	// vp8xExifFlag is the EXIF-present bit in the first VP8X payload byte.
	vp8xExifFlag = 0x08

	webpMarkerPrefix = "Watermark:"
)

// WEBP is the codec for RIFF/WEBP files. The marker is stored as
// "Watermark:<marker>" in the payload of an EXIF chunk.
//
// Both detection and insertion honor RIFF padding: a chunk with an odd
// size is followed by one pad byte that is not counted in its size.
type WEBP struct{}

type webpChunk struct {
	typ  string
	data []byte
}

// HasMarker reports whether any EXIF chunk contains "Watermark:<marker>".
// The walk ends quietly when fewer than a chunk header's worth of bytes
// remain or a declared size overruns the buffer.
func (WEBP) HasMarker(data []byte, marker string) (bool, error) {
	if err := checkWEBPHeader(data, opHasMarker); err != nil {
		return false, err
	}

	needle := []byte(webpMarkerPrefix + marker)
	chunks := walkWEBP(data)
	for _, c := range chunks {
		if c.typ == "EXIF" && bytes.Contains(c.data, needle) {
			return true, nil
		}
	}
	return false, nil
}

// InsertMarker returns a rebuilt RIFF container carrying the marker.
//
// An existing EXIF chunk has its payload replaced. Otherwise a new EXIF
// chunk is placed after VP8X (setting the EXIF flag), or first when there
// is no VP8X. Parsing stops at the first chunk whose size overruns the
// buffer; bytes from that chunk on are not carried into the output.
func (WEBP) InsertMarker(data []byte, marker string) ([]byte, error) {
	if err := checkWEBPHeader(data, opInsertMarker); err != nil {
		return nil, err
	}

	chunks := walkWEBP(data)
	payload := []byte(webpMarkerPrefix + marker)

	exifIdx, vp8xIdx := -1, -1
	for i, c := range chunks {
		switch c.typ {
		case "EXIF":
			if exifIdx < 0 {
				exifIdx = i
			}
		case "VP8X":
			if vp8xIdx < 0 {
				vp8xIdx = i
			}
		}
	}

	switch {
	case exifIdx >= 0:
		chunks[exifIdx].data = payload
	case vp8xIdx >= 0:
		if len(chunks[vp8xIdx].data) > 0 {
			flags := bytes.Clone(chunks[vp8xIdx].data)
			flags[0] |= vp8xExifFlag
			chunks[vp8xIdx].data = flags
		}
		chunks = insertChunk(chunks, vp8xIdx+1, webpChunk{typ: "EXIF", data: payload})
	default:
		chunks = insertChunk(chunks, 0, webpChunk{typ: "EXIF", data: payload})
	}

	return encodeWEBP(chunks), nil
}

func checkWEBPHeader(data []byte, op string) error {
	if len(data) < webpHeaderLen {
		return formatErr(FormatWEBP, op, -1, "buffer shorter than RIFF header")
	}
	if string(data[0:4]) != "RIFF" {
		return formatErr(FormatWEBP, op, 0, "missing RIFF signature")
	}
	if string(data[8:12]) != "WEBP" {
		return formatErr(FormatWEBP, op, 8, "missing WEBP form type")
	}
	return nil
}

// walkWEBP lists chunks after the RIFF header, stopping at the first
// chunk whose declared size overruns the buffer.
func walkWEBP(data []byte) []webpChunk {
	var chunks []webpChunk
	off := webpHeaderLen
	for len(data)-off >= webpChunkHeaderLen {
		size := binary.LittleEndian.Uint32(data[off+4 : off+8])
		if uint64(size) > uint64(len(data)-off-webpChunkHeaderLen) {
			return chunks
		}
		start := off + webpChunkHeaderLen
		end := start + int(size)
		chunks = append(chunks, webpChunk{typ: string(data[off : off+4]), data: data[start:end]})
		off = end + int(size&1)
	}
	return chunks
}

func insertChunk(chunks []webpChunk, at int, c webpChunk) []webpChunk {
	chunks = append(chunks, webpChunk{})
	copy(chunks[at+1:], chunks[at:])
	chunks[at] = c
	return chunks
}

// encodeWEBP serializes chunks under a fresh RIFF header. The RIFF size
// counts the "WEBP" form type plus every chunk with its padding.
func encodeWEBP(chunks []webpChunk) []byte {
	riffSize := 4
	for _, c := range chunks {
		riffSize += webpChunkHeaderLen + len(c.data) + len(c.data)&1
	}

	out := make([]byte, 8+riffSize)
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(riffSize))
	copy(out[8:12], "WEBP")

	off := webpHeaderLen
	for _, c := range chunks {
		copy(out[off:off+4], c.typ)
		binary.LittleEndian.PutUint32(out[off+4:off+8], uint32(len(c.data)))
		off += webpChunkHeaderLen
		off += copy(out[off:], c.data)
		off += len(c.data) & 1 // pad byte is already zero
	}
	return out
}
