// Package images implements the asset normalizer: every uploaded image is
// converted to a canonical storage format before it reaches the object
// store. WebP (quality 85) is the canonical format; HEIC/HEIF sources are
// converted to PNG instead, since the point of converting them is maximum
// compatibility, not size.
//
// Normalization is best-effort by contract: a conversion failure is never a
// request error. Whatever bytes came in go out unchanged, with a warning as
// the only observable side effect.
package images

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"path/filepath"
	"strings"

	// Register stdlib decoders with image.Decode. The webp import below
	// registers the WebP decoder the same way.
	_ "image/gif"
	_ "image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/heic"
	"github.com/gen2brain/webp"
	"github.com/rwcarlsen/goexif/exif"
)

// webpQuality is the fixed encoding quality for canonical WebP output.
// Conversion is deterministic for a given input at a fixed quality.
const webpQuality = 85

// Result is the outcome of normalizing one uploaded asset. Data is always
// usable — either the converted image or the original bytes.
type Result struct {
	Data     []byte
	MimeType string
	Ext      string // including the dot, e.g. ".webp"
	Format   string // short format name persisted on the Photo record
}

// Normalizer converts uploaded images to the canonical storage format.
type Normalizer struct {
	logger *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize converts data to WebP, or to PNG for HEIC/HEIF sources. It never
// fails: if conversion is impossible the original bytes, mime type, and
// extension are returned unchanged.
func (n *Normalizer) Normalize(data []byte, originalName, mimeType string) Result {
	ext := strings.ToLower(filepath.Ext(originalName))

	if ext == ".heic" || ext == ".heif" {
		res, err := toPNG(data)
		if err != nil {
			n.logger.Warn("unable to convert HEIC/HEIF image, keeping original buffer",
				slog.String("file", originalName),
				slog.String("error", err.Error()),
			)
			return fallback(data, mimeType, ext, "image/heic", ".heic")
		}
		return res
	}

	res, err := toWebP(data)
	if err != nil {
		n.logger.Warn("unable to convert image to WebP, keeping original buffer",
			slog.String("file", originalName),
			slog.String("error", err.Error()),
		)
		return fallback(data, mimeType, ext, "application/octet-stream", "")
	}
	return res
}

// toPNG decodes a HEIC/HEIF image and re-encodes it as PNG. PNG is lossless,
// which is what "maximum quality" means here.
func toPNG(data []byte) (Result, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decoding heic: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("encoding png: %w", err)
	}

	return Result{
		Data:     buf.Bytes(),
		MimeType: "image/png",
		Ext:      ".png",
		Format:   "png",
	}, nil
}

// toWebP decodes any registered image format, applies EXIF auto-orientation,
// and re-encodes as WebP at the fixed quality.
func toWebP(data []byte) (Result, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decoding image: %w", err)
	}

	img = autoOrient(data, img)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Quality: webpQuality, Method: 4}); err != nil {
		return Result{}, fmt.Errorf("encoding webp: %w", err)
	}

	return Result{
		Data:     buf.Bytes(),
		MimeType: "image/webp",
		Ext:      ".webp",
		Format:   "webp",
	}, nil
}

// autoOrient bakes the EXIF orientation into the pixels, so the stored WebP
// (which carries no EXIF) displays upright. Missing or unreadable EXIF data
// leaves the image untouched.
func autoOrient(raw []byte, img image.Image) image.Image {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return img
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return img
	}

	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// fallback builds a Result from the original bytes, preferring the declared
// mime/extension and falling back to branch-specific defaults.
func fallback(data []byte, mimeType, ext, defaultMime, defaultExt string) Result {
	if mimeType == "" {
		mimeType = defaultMime
	}
	if ext == "" {
		ext = defaultExt
	}
	return Result{
		Data:     data,
		MimeType: mimeType,
		Ext:      ext,
		Format:   formatName(mimeType, ext),
	}
}

// formatName derives the short format label stored on Photo records:
// "image/webp" → "webp", ".png" → "png", anything unknown → "binary".
func formatName(mimeType, ext string) string {
	if _, sub, found := strings.Cut(mimeType, "/"); found && sub != "" && sub != "octet-stream" {
		return sub
	}
	if ext != "" {
		return strings.TrimPrefix(ext, ".")
	}
	return "binary"
}
