package analyzer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	MaxImageBytes = 20 << 20
	MinDimension  = 16
	// MaxDimension and MaxPixels bound the decoded bitmap. Compressed size
	// says little about it.
	MaxDimension = 16384
	MaxPixels    = 50_000_000
)

// ImageInfo is what ValidateImage learns from the header alone.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

func (i ImageInfo) MIMEType() string {
	switch i.Format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ValidateImage checks size limits and that the bytes carry a decodable
// jpeg, png, gif or webp header. Every failure wraps ErrInvalidImage.
func ValidateImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	if len(data) > MaxImageBytes {
		return ImageInfo{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidImage, len(data), MaxImageBytes)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width < MinDimension || cfg.Height < MinDimension {
		return ImageInfo{}, fmt.Errorf("%w: %dx%d is below %dpx", ErrInvalidImage, cfg.Width, cfg.Height, MinDimension)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return ImageInfo{}, fmt.Errorf("%w: %dx%d exceeds %dpx", ErrInvalidImage, cfg.Width, cfg.Height, MaxDimension)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > MaxPixels {
		return ImageInfo{}, fmt.Errorf("%w: %d pixels exceeds %d", ErrInvalidImage, px, MaxPixels)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// DataURL encodes the image for inline submission to a vision model.
func DataURL(info ImageInfo, data []byte) string {
	return "data:" + info.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(data)
}
