package asset

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFromBytes_DetectsPNG(t *testing.T) {
	a, err := FromBytes(pngBytes(t), "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "image/png", a.MimeType)
	assert.False(t, a.IsZero())
}

func TestFromBytes_KeepsImageHint(t *testing.T) {
	a, err := FromBytes(pngBytes(t), "image/png; charset=binary")
	require.NoError(t, err)
	assert.Equal(t, "image/png", a.MimeType)
}

func TestFromBytes_RejectsNonImage(t *testing.T) {
	_, err := FromBytes([]byte("definitely not an image"), "image/png")
	require.Error(t, err)

	var invalid *InvalidAssetError
	assert.True(t, errors.As(err, &invalid))
}

func TestFromBytes_RejectsEmpty(t *testing.T) {
	_, err := FromBytes(nil, "")
	var invalid *InvalidAssetError
	assert.True(t, errors.As(err, &invalid))
}

func TestDataURL_RoundTrip(t *testing.T) {
	src, err := FromBytes(pngBytes(t), "")
	require.NoError(t, err)

	url := src.DataURL()
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	back, err := FromDataURL(url)
	require.NoError(t, err)
	assert.Equal(t, src.Data, back.Data)
	assert.Equal(t, src.MimeType, back.MimeType)
}

func TestFromDataURL_BareBase64(t *testing.T) {
	src, err := FromBytes(pngBytes(t), "")
	require.NoError(t, err)

	back, err := FromDataURL(src.Base64())
	require.NoError(t, err)
	assert.Equal(t, "image/png", back.MimeType)
}

func TestFromDataURL_RejectsURLEncoded(t *testing.T) {
	_, err := FromDataURL("data:image/png,abc")
	var invalid *InvalidAssetError
	assert.True(t, errors.As(err, &invalid))
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "look.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t), 0o644))

	a, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", a.MimeType)

	_, err = FromFile(filepath.Join(dir, "missing.png"))
	var invalid *InvalidAssetError
	require.True(t, errors.As(err, &invalid))
	assert.Contains(t, invalid.Error(), "missing.png")
}
