// Package preprocess turns uploaded images into the flat grayscale input the
// digit model expects.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

var ErrImageTooLarge = errors.New("image dimensions too large")

// CheckDimensions reads only the image header and rejects frames wider or
// taller than maxDim. A maxDim of zero disables the check.
func CheckDimensions(path string, maxDim int) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return fmt.Errorf("decode header %s: %w", path, err)
	}
	if maxDim > 0 && (cfg.Width > maxDim || cfg.Height > maxDim) {
		return fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height, maxDim, maxDim)
	}
	return nil
}

// LoadFile checks the header against maxDim, decodes the image at path and
// converts it with FromImage.
func LoadFile(path string, size int, scale float32, maxDim int) ([]float32, error) {
	if err := CheckDimensions(path, maxDim); err != nil {
		return nil, err
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromImage(img, size, scale)
}

// FromImage converts img to grayscale, resizes the whole frame to
// size x size with nearest-neighbour sampling and returns the pixels
// row-major, each intensity (0-255) multiplied by scale.
func FromImage(img image.Image, size int, scale float32) ([]float32, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid target size %d", size)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}

	gray := toGray(imaging.Grayscale(img))
	resized := resize.Resize(uint(size), uint(size), gray, resize.NearestNeighbor)

	bounds := resized.Bounds()
	if bounds.Dx() != size || bounds.Dy() != size {
		return nil, fmt.Errorf("resized to %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), size, size)
	}

	out := make([]float32, 0, size*size)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out = append(out, float32(grayAt(resized, x, y))*scale)
		}
	}
	return out, nil
}

// toGray keeps the luminance channel and drops alpha.
func toGray(src *image.NRGBA) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Pix[dst.PixOffset(x, y)] = src.Pix[src.PixOffset(x, y)]
		}
	}
	return dst
}

func grayAt(img image.Image, x, y int) uint8 {
	if g, ok := img.(*image.Gray); ok {
		return g.GrayAt(x, y).Y
	}
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}
