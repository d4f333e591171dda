package decoder

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/MeKo-Tech/imgforge/internal/raster"
	"github.com/MeKo-Tech/imgforge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"photo.jpg", FormatJPEG},
		{"photo.JPEG", FormatJPEG},
		{"icon.png", FormatPNG},
		{"anim.gif", FormatGIF},
		{"scan.tif", FormatTIFF},
		{"shot.webp", FormatWebP},
		{"legacy.bmp", FormatBMP},
		{"camera.CR2", FormatRAW},
		{"camera.dng", FormatRAW},
		{"notes.txt", ""},
		{"noext", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFormat(tt.name))
			assert.Equal(t, tt.expected != "", IsSupported(tt.name))
		})
	}
}

func TestDecodeFormats(t *testing.T) {
	src := testutil.Gradient(t, 12, 8).NRGBA()

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"a.png", testutil.EncodePNG(t, src), FormatPNG},
		{"a.jpg", testutil.EncodeJPEG(t, src, 90), FormatJPEG},
		{"a.gif", testutil.EncodeGIF(t, src), FormatGIF},
		{"a.bmp", testutil.EncodeBMP(t, src), FormatBMP},
		{"a.tiff", testutil.EncodeTIFF(t, src), FormatTIFF},
		{"a.dng", testutil.EncodeTIFF(t, src), FormatRAW},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, meta, err := Decode(tt.data, tt.name, Options{})
			require.NoError(t, err)
			require.NoError(t, img.Validate())

			assert.Equal(t, 12, img.Width)
			assert.Equal(t, 8, img.Height)
			assert.Equal(t, tt.name, meta.Name)
			assert.Equal(t, tt.format, meta.Format)
			assert.Equal(t, int64(len(tt.data)), meta.SizeBytes)
			assert.InDelta(t, 1.5, meta.AspectRatio, 1e-9)
		})
	}
}

func TestDecodePNGIsLossless(t *testing.T) {
	src := testutil.Gradient(t, 5, 5)
	img, _, err := Decode(testutil.EncodePNG(t, src.NRGBA()), "g.png", Options{})
	require.NoError(t, err)
	assert.Equal(t, src.Pix, img.Pix)
}

func TestDecodeSniffsWithoutExtension(t *testing.T) {
	data := testutil.EncodePNG(t, testutil.Gradient(t, 3, 3).NRGBA())

	_, meta, err := Decode(data, "upload", Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, meta.Format)

	_, _, err = Decode([]byte("definitely not an image"), "", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, raster.ErrUnsupportedFormat))
}

func TestDecodeErrors(t *testing.T) {
	png := testutil.EncodePNG(t, testutil.Gradient(t, 4, 4).NRGBA())

	t.Run("too large", func(t *testing.T) {
		_, _, err := Decode(png, "a.png", Options{MaxBytes: int64(len(png) - 1)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, raster.ErrFileTooLarge))
	})

	t.Run("size gate wins over format gate", func(t *testing.T) {
		_, _, err := Decode(png, "a.txt", Options{MaxBytes: 1})
		assert.True(t, errors.Is(err, raster.ErrFileTooLarge))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, _, err := Decode(png, "a.txt", Options{})
		assert.True(t, errors.Is(err, raster.ErrUnsupportedFormat))
	})

	t.Run("corrupt payload", func(t *testing.T) {
		_, _, err := Decode(testutil.CorruptJPEG(), "broken.jpg", Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, raster.ErrDecodeFailure))
		assert.Equal(t, "decode_failure", raster.KindOf(err))
	})

	t.Run("empty", func(t *testing.T) {
		_, _, err := Decode(nil, "a.png", Options{})
		assert.True(t, errors.Is(err, raster.ErrDecodeFailure))
	})

	t.Run("raw extension with foreign payload", func(t *testing.T) {
		_, _, err := Decode([]byte("II*\x00garbage"), "camera.nef", Options{})
		assert.True(t, errors.Is(err, raster.ErrDecodeFailure))
	})
}

// withPNGSize rewrites the IHDR dimensions of an encoded PNG and fixes its CRC.
func withPNGSize(data []byte, width, height uint32) []byte {
	out := append([]byte(nil), data...)
	// signature(8) length(4) "IHDR"(4) width(4) height(4) ... crc
	binary.BigEndian.PutUint32(out[16:20], width)
	binary.BigEndian.PutUint32(out[20:24], height)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecodeRejectsOversizedCanvasFromHeader(t *testing.T) {
	huge := withPNGSize(testutil.EncodePNG(t, testutil.Gradient(t, 4, 4).NRGBA()), 20000, 20000)

	img, _, err := Decode(huge, "huge.png", Options{})
	require.Error(t, err)
	assert.Nil(t, img)
	assert.True(t, errors.Is(err, raster.ErrAllocation))
	assert.Equal(t, "allocation_failure", raster.KindOf(err))
}

func TestValidateInput(t *testing.T) {
	data := make([]byte, 100)

	v := ValidateInput(data, "a.jpg", 0)
	assert.True(t, v.Valid)
	assert.Equal(t, FormatJPEG, v.Format)
	assert.Empty(t, v.Reason)

	v = ValidateInput(data, "a.jpg", 99)
	assert.False(t, v.Valid)
	assert.Equal(t, "file_too_large", v.Code)
	assert.Contains(t, v.Reason, "limit is 99 bytes")

	v = ValidateInput(data, "a.exe", 0)
	assert.False(t, v.Valid)
	assert.Equal(t, "unsupported_format", v.Code)
}
