package barcode

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPNGProducesDecodableImage(t *testing.T) {
	data, err := RenderPNG("ENG-DRVAB12C-EVTZZ99Y-1765700000000-7XK2MP")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, defaultWidth, img.Bounds().Dx())
	assert.Equal(t, defaultHeight, img.Bounds().Dy())
}

func TestRenderPNGSized(t *testing.T) {
	data, err := RenderPNGSized("TYR-DRV1-EVT1-1000-ABCDEF", 720, 160)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 720, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())
}

func TestRenderPNGEmptyReference(t *testing.T) {
	_, err := RenderPNG("")
	assert.Error(t, err)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "SHORT", Tail("SHORT"))

	long := "ENG-DRVAB12C-EVTZZ99Y-1765700000000-7XK2MP"
	tail := Tail(long)
	assert.Len(t, tail, TailLength)
	assert.Equal(t, long[len(long)-TailLength:], tail)
}
