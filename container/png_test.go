package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// encodeTestPNG produces a real 2x2 PNG via the standard encoder.
func encodeTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestPNG_RoundTrip(t *testing.T) {
	data := encodeTestPNG(t)
	codec := PNG{}

	has, err := codec.HasMarker(data, "tiny")
	if err != nil {
		t.Fatalf("HasMarker: %v", err)
	}
	if has {
		t.Fatal("fresh PNG reported as marked")
	}

	out, err := codec.InsertMarker(data, "tiny")
	if err != nil {
		t.Fatalf("InsertMarker: %v", err)
	}

	has, err = codec.HasMarker(out, "tiny")
	if err != nil {
		t.Fatalf("HasMarker after insert: %v", err)
	}
	if !has {
		t.Error("marker not detected after insert")
	}

	if len(out) != len(data)+12+len("tiny") {
		t.Errorf("len(out) = %d, want %d", len(out), len(data)+12+len("tiny"))
	}

	// image/png verifies every chunk CRC while decoding.
	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("marked PNG no longer decodes: %v", err)
	}
}

func TestPNG_InsertLeavesInputUntouched(t *testing.T) {
	data := encodeTestPNG(t)
	orig := bytes.Clone(data)

	if _, err := (PNG{}).InsertMarker(data, "tiny"); err != nil {
		t.Fatalf("InsertMarker: %v", err)
	}
	if !bytes.Equal(data, orig) {
		t.Error("InsertMarker mutated its input")
	}
}

func TestPNG_ChunkPlacedBeforeIEND(t *testing.T) {
	data := encodeTestPNG(t)
	out, err := (PNG{}).InsertMarker(data, "tiny")
	if err != nil {
		t.Fatalf("InsertMarker: %v", err)
	}

	// IEND is always the last 12 bytes of a well-formed PNG.
	if got := string(out[len(out)-8 : len(out)-4]); got != "IEND" {
		t.Fatalf("last chunk type = %q, want IEND", got)
	}

	chunk := out[len(out)-12-12-len("tiny") : len(out)-12]
	if n := binary.BigEndian.Uint32(chunk[0:4]); n != uint32(len("tiny")) {
		t.Errorf("tEXt length = %d, want %d", n, len("tiny"))
	}
	if string(chunk[4:8]) != "tEXt" {
		t.Errorf("chunk type = %q, want tEXt", chunk[4:8])
	}
	if string(chunk[8:12]) != "tiny" {
		t.Errorf("payload = %q, want tiny", chunk[8:12])
	}
	wantCRC := crc32.ChecksumIEEE([]byte("tEXttiny"))
	if got := binary.BigEndian.Uint32(chunk[12:16]); got != wantCRC {
		t.Errorf("crc = %#x, want %#x", got, wantCRC)
	}
}

func TestPNG_DoubleInsertIsAppendOnly(t *testing.T) {
	data := encodeTestPNG(t)
	codec := PNG{}

	once, err := codec.InsertMarker(data, "tiny")
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	twice, err := codec.InsertMarker(once, "tiny")
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}

	if n := bytes.Count(twice, []byte("tEXttiny")); n != 2 {
		t.Errorf("tEXt marker chunks = %d, want 2", n)
	}
	has, err := codec.HasMarker(twice, "tiny")
	if err != nil || !has {
		t.Errorf("HasMarker = %v, %v; want true, nil", has, err)
	}
}

func TestPNG_MarkerMustMatchExactly(t *testing.T) {
	data := encodeTestPNG(t)
	out, err := (PNG{}).InsertMarker(data, "tiny")
	if err != nil {
		t.Fatalf("InsertMarker: %v", err)
	}

	for _, marker := range []string{"tin", "tiny2", "TINY"} {
		has, err := (PNG{}).HasMarker(out, marker)
		if err != nil {
			t.Fatalf("HasMarker(%q): %v", marker, err)
		}
		if has {
			t.Errorf("HasMarker(%q) = true, want false", marker)
		}
	}
}

func TestPNG_StopsAtIEND(t *testing.T) {
	data := encodeTestPNG(t)
	// A tEXt chunk after IEND is outside the image and must be ignored.
	trailing := append(bytes.Clone(data), encodePNGChunk("tEXt", []byte("tiny"))...)

	has, err := (PNG{}).HasMarker(trailing, "tiny")
	if err != nil {
		t.Fatalf("HasMarker: %v", err)
	}
	if has {
		t.Error("marker after IEND was detected")
	}
}

func TestPNG_FormatErrors(t *testing.T) {
	valid := encodeTestPNG(t)

	noIEND := append(bytes.Clone(pngSignature), encodePNGChunk("IHDR", make([]byte, 13))...)

	overrun := append(bytes.Clone(pngSignature), encodePNGChunk("IHDR", make([]byte, 13))...)
	binary.BigEndian.PutUint32(overrun[8:12], 1<<20)

	tests := []struct {
		name       string
		data       []byte
		wantHasErr bool
	}{
		{name: "empty", data: nil, wantHasErr: true},
		{name: "bad signature", data: append([]byte("GIF89a.."), valid[8:]...), wantHasErr: true},
		{name: "truncated header", data: valid[:len(pngSignature)+5], wantHasErr: true},
		{name: "length overruns buffer", data: overrun, wantHasErr: true},
		// Without IEND, HasMarker just exhausts the buffer.
		{name: "missing IEND", data: noIEND, wantHasErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := (PNG{}).InsertMarker(tt.data, "tiny")
			if !errors.Is(err, ErrFormat) {
				t.Errorf("InsertMarker err = %v, want ErrFormat", err)
			}
			if out != nil {
				t.Error("InsertMarker returned a buffer on error")
			}

			var fe *FormatError
			if err != nil && !errors.As(err, &fe) {
				t.Errorf("InsertMarker err is %T, want *FormatError", err)
			} else if fe != nil && fe.Format != FormatPNG {
				t.Errorf("FormatError.Format = %v, want png", fe.Format)
			}

			_, err = (PNG{}).HasMarker(tt.data, "tiny")
			if got := errors.Is(err, ErrFormat); got != tt.wantHasErr {
				t.Errorf("HasMarker err = %v, wantErr %v", err, tt.wantHasErr)
			}
		})
	}
}
