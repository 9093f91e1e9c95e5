package ioutils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
)

// DefaultThumbnailSize bounds the longer edge of a thumbnail.
const DefaultThumbnailSize = 320

// ImageService turns decoded video frames into JPEG thumbnails.
//
// Example usage:
//
//	svc := NewImageService()
//
//	frame, _ := capture.ExtractFrame(ctx, "ffmpeg", video)
//	thumb, _ := svc.Thumbnail(ctx, frame, 320)
type ImageService struct {
	Quality int
}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{Quality: 85}
}

// Thumbnail scales a frame so that neither edge exceeds maxSize and encodes
// it as JPEG. A non-positive maxSize selects DefaultThumbnailSize.
func (s *ImageService) Thumbnail(ctx context.Context, frame []byte, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultThumbnailSize
	}
	return s.ResizeImage(ctx, frame, maxSize, maxSize)
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved and images are never upscaled. The
// Catmull-Rom kernel is used for scaling.
//
// Example:
//
//	// A 1920x1080 frame becomes 320x180
//	thumb, err := svc.ResizeImage(ctx, frame, 320, 320)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding frame: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	quality := s.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fitWithin returns width and height scaled down to fit maxWidth x maxHeight.
func fitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		width = int(float64(maxHeight) * ratio)
		height = maxHeight
	} else {
		height = int(float64(maxWidth) / ratio)
		width = maxWidth
	}
	return max(width, 1), max(height, 1)
}
