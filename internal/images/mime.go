package images

import (
	"net/http"
	"strings"
)

// DetectImageMIME returns the MIME type of an upload and whether it is an
// image. The declared multipart Content-Type wins when it claims to be an
// image (matching how clients send HEIC, which magic-byte sniffing can't
// classify via the stdlib); otherwise the content is sniffed.
//
// net/http.DetectContentType handles JPEG, PNG, and GIF. WebP and HEIC/HEIF
// are detected separately because the WHATWG sniff spec (and therefore the
// stdlib) does not include their signatures.
func DetectImageMIME(declared string, data []byte) (string, bool) {
	declared = strings.TrimSpace(strings.ToLower(declared))
	if strings.HasPrefix(declared, "image/") {
		return declared, true
	}
	if isWebP(data) {
		return "image/webp", true
	}
	if isHEIF(data) {
		return "image/heic", true
	}
	if mime := http.DetectContentType(data); strings.HasPrefix(mime, "image/") {
		return mime, true
	}
	return "", false
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP"
// at offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// isHEIF reports whether data is an ISOBMFF container with a HEIF brand
// ("ftyp" box at offset 4 with a heic/heif family major brand).
func isHEIF(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heim", "heis", "hevc", "hevx", "mif1", "msf1":
		return true
	}
	return false
}
