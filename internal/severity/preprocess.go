package severity

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
)

const DefaultImageSize = 224

// Decode reads JPEG, PNG, GIF, BMP or TIFF through imaging and WebP through libwebp.
// EXIF orientation is not applied: the model was trained on pixels as stored.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}
	if isWebP(data) {
		img, err := webp.Decode(bytes.NewReader(data), &decoder.Options{})
		if err != nil {
			return nil, fmt.Errorf("decode webp: %w", err)
		}
		return img, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}

// Preprocess resizes img to size x size with bicubic (Catmull-Rom) resampling,
// the filter the model saw in training, and returns it as a float32 NHWC tensor
// (batch of one, RGB channels) scaled into [0, 1]. Alpha is dropped.
func Preprocess(img image.Image, size int) []float32 {
	if size <= 0 {
		size = DefaultImageSize
	}
	resized := imaging.Resize(img, size, size, imaging.CatmullRom)

	out := make([]float32, 0, size*size*3)
	pix := resized.Pix
	for i := 0; i < len(pix); i += 4 {
		out = append(out,
			float32(pix[i])/255,
			float32(pix[i+1])/255,
			float32(pix[i+2])/255,
		)
	}
	return out
}
