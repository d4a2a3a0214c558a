package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func encodeTestImage(t *testing.T, encode func(io.Writer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, G: 50, B: 50, A: 255})
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeJPEGToWebP(t *testing.T) {
	n := NewNormalizer(testLogger())
	data := encodeTestImage(t, func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, nil)
	})

	res := n.Normalize(data, "foto.jpg", "image/jpeg")

	assert.Equal(t, "image/webp", res.MimeType)
	assert.Equal(t, ".webp", res.Ext)
	assert.Equal(t, "webp", res.Format)
	assert.NotEmpty(t, res.Data)
	assert.NotEqual(t, data, res.Data)
}

func TestNormalizePNGToWebP(t *testing.T) {
	n := NewNormalizer(testLogger())
	data := encodeTestImage(t, png.Encode)

	res := n.Normalize(data, "foto.png", "image/png")

	assert.Equal(t, "image/webp", res.MimeType)
	assert.Equal(t, "webp", res.Format)
}

func TestNormalizeBadHEICFallsBack(t *testing.T) {
	n := NewNormalizer(testLogger())
	data := []byte("this is not a heic file")

	res := n.Normalize(data, "foto.heic", "image/heic")

	// Conversion failed, so the original bytes pass through untouched.
	assert.Equal(t, data, res.Data)
	assert.Equal(t, "image/heic", res.MimeType)
	assert.Equal(t, ".heic", res.Ext)
	assert.Equal(t, "heic", res.Format)
}

func TestNormalizeUnreadableFallsBack(t *testing.T) {
	n := NewNormalizer(testLogger())
	data := []byte("plain text, not an image at all")

	res := n.Normalize(data, "notas.txt", "")

	assert.Equal(t, data, res.Data)
	assert.Equal(t, "application/octet-stream", res.MimeType)
	assert.Equal(t, ".txt", res.Ext)
}

func TestDetectImageMIME(t *testing.T) {
	pngData := encodeTestImage(t, png.Encode)
	webpHeader := append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 8)...)
	heicHeader := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
	heicHeader = append(heicHeader, make([]byte, 16)...)

	tests := []struct {
		name     string
		declared string
		data     []byte
		wantMIME string
		wantOK   bool
	}{
		{"declared image wins", "image/heic", []byte("anything"), "image/heic", true},
		{"sniffed png", "", pngData, "image/png", true},
		{"sniffed webp", "application/octet-stream", webpHeader, "image/webp", true},
		{"sniffed heic", "application/octet-stream", heicHeader, "image/heic", true},
		{"plain text rejected", "text/plain", []byte("hello world"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, ok := DetectImageMIME(tt.declared, tt.data)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantMIME, mime)
			}
		})
	}
}
