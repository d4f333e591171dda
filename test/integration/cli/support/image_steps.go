package support

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/imgforge/internal/decoder"
	"github.com/cucumber/godog"
	"github.com/disintegration/imaging"
)

// fixtureImage renders a deterministic gradient so encoders have real content.
func fixtureImage(width, height int) *image.NRGBA {
	img := imaging.New(width, height, color.NRGBA{A: 255})
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// formatForName maps a fixture file name to an imaging encoder.
func formatForName(name string) (imaging.Format, error) {
	f, err := imaging.FormatFromFilename(name)
	if err != nil {
		return 0, fmt.Errorf("no fixture encoder for %s: %w", name, err)
	}
	return f, nil
}

// anImageOfSize writes a WxH fixture image encoded by file extension.
func (testCtx *TestContext) anImageOfSize(name string, width, height int) error {
	format, err := formatForName(name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fixtureImage(width, height), format, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// aCorruptImage writes a file whose extension claims JPEG but whose body
// is a truncated header.
func (testCtx *TestContext) aCorruptImage(name string) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0xDE, 0xAD, 0xBE, 0xEF}, 0o600)
}

// aTextFile writes a non-image fixture.
func (testCtx *TestContext) aTextFile(name string) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("not an image\n"), 0o600)
}

// decodeWorkspaceImage decodes a produced file through the same decoder the
// pipeline uses.
func (testCtx *TestContext) decodeWorkspaceImage(name string) (decoder.Metadata, error) {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return decoder.Metadata{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	_, meta, err := decoder.Decode(data, name, decoder.Options{})
	if err != nil {
		return decoder.Metadata{}, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return meta, nil
}

// theImageShouldHaveSize verifies decoded dimensions of a produced file.
func (testCtx *TestContext) theImageShouldHaveSize(name string, width, height int) error {
	meta, err := testCtx.decodeWorkspaceImage(name)
	if err != nil {
		return err
	}
	if meta.Width != width || meta.Height != height {
		return fmt.Errorf("image %s is %dx%d, want %dx%d", name, meta.Width, meta.Height, width, height)
	}
	return nil
}

// theImageShouldBeFormat verifies the format sniffed from a produced file.
func (testCtx *TestContext) theImageShouldBeFormat(name, format string) error {
	meta, err := testCtx.decodeWorkspaceImage(name)
	if err != nil {
		return err
	}
	if !strings.EqualFold(meta.Format, format) {
		return fmt.Errorf("image %s is %s, want %s", name, meta.Format, format)
	}
	return nil
}

// RegisterImageSteps registers fixture and image assertion steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an image "([^"]*)" of size (\d+)x(\d+)$`, testCtx.anImageOfSize)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^a text file "([^"]*)"$`, testCtx.aTextFile)
	sc.Step(`^the image "([^"]*)" should have size (\d+)x(\d+)$`, testCtx.theImageShouldHaveSize)
	sc.Step(`^the image "([^"]*)" should be in "([^"]*)" format$`, testCtx.theImageShouldBeFormat)
}
