package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTestImageConfig(t *testing.T) {
	config := DefaultTestImageConfig()
	assert.Equal(t, "Sample Text", config.Text)
	assert.Equal(t, SmallSize, config.Size)
	assert.Equal(t, color.White, config.Background)
	assert.InDelta(t, 0.0, config.Rotation, 0.0001)
}

func TestGenerateTextImage(t *testing.T) {
	config := DefaultTestImageConfig()
	config.Text = "Test"

	img := GenerateTextImage(config)
	require.NotNil(t, img)
	assert.Equal(t, SmallSize.Width, img.Bounds().Dx())
	assert.Equal(t, SmallSize.Height, img.Bounds().Dy())
}

func TestGenerateRotatedTextImage(t *testing.T) {
	config := DefaultTestImageConfig()
	config.Rotation = 90

	img := GenerateTextImage(config)
	assert.Equal(t, SmallSize.Height, img.Bounds().Dx())
	assert.Equal(t, SmallSize.Width, img.Bounds().Dy())
}

func TestSolidAndGradient(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	solid := Solid(t, 4, 3, red)
	assert.Equal(t, red, solid.At(3, 2))

	grad := Gradient(t, 16, 16)
	assert.Equal(t, uint8(0), grad.At(0, 0).R)
	assert.Equal(t, uint8(255), grad.At(15, 0).R)
	assert.Equal(t, uint8(255), grad.At(0, 15).G)
}

func TestCheckerboard(t *testing.T) {
	img := Checkerboard(t, 4, 4, 2)
	assert.Equal(t, uint8(255), img.At(0, 0).R)
	assert.Equal(t, uint8(0), img.At(2, 0).R)
	assert.Equal(t, uint8(255), img.At(2, 2).R)
}

func TestSaveAndLoadImage(t *testing.T) {
	img := GenerateTextImage(DefaultTestImageConfig())

	path := filepath.Join(t.TempDir(), "nested", "test_image.png")
	SaveImage(t, img, path)
	assert.True(t, FileExists(path))

	loaded := LoadImage(t, path)
	assert.Equal(t, img.Bounds(), loaded.Bounds())
	assert.True(t, CompareImages(img, loaded, 0.0001))
}

func TestCompareImages(t *testing.T) {
	config := DefaultTestImageConfig()
	img1 := GenerateTextImage(config)
	img2 := GenerateTextImage(config)
	assert.True(t, CompareImages(img1, img2, 0.01))

	config.Background = color.Black
	config.Foreground = color.White
	img3 := GenerateTextImage(config)
	assert.False(t, CompareImages(img1, img3, 0.3))

	config.Size = TinySize
	assert.False(t, CompareImages(img1, GenerateTextImage(config), 1))
}

func TestEncodedFixturesDecode(t *testing.T) {
	img := Gradient(t, 8, 8).NRGBA()

	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, EncodePNG(t, img)[:4])
	assert.Equal(t, []byte{0xFF, 0xD8}, EncodeJPEG(t, img, 90)[:2])
	assert.Equal(t, []byte("GIF8"), EncodeGIF(t, img)[:4])
	assert.Equal(t, []byte("BM"), EncodeBMP(t, img)[:2])
	assert.Equal(t, []byte("II*\x00"), EncodeTIFF(t, img)[:4])
}
