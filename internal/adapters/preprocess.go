package adapters

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/errors"
)

// InputSize is the square edge, in pixels, the image model was trained on.
const InputSize = 150

// Tensor is one image as [row][col][rgb] with channels scaled to [0,1].
type Tensor [][][3]float32

// DecodeImage decodes any registered format (JPEG, PNG, GIF, BMP, WebP).
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", errors.NewAdapterError(errors.AdapterUndecodable, "image is empty", nil)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.NewAdapterError(errors.AdapterUndecodable, "image could not be decoded", err)
	}
	return img, format, nil
}

// Preprocess decodes the image, drops alpha, resizes it to InputSize square
// with nearest-neighbour sampling and scales every channel by 1/255.
func Preprocess(data []byte) (Tensor, error) {
	src, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	dst := image.NewNRGBA(image.Rect(0, 0, InputSize, InputSize))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	t := make(Tensor, InputSize)
	for y := 0; y < InputSize; y++ {
		row := make([][3]float32, InputSize)
		for x := 0; x < InputSize; x++ {
			i := dst.PixOffset(x, y)
			row[x] = [3]float32{
				float32(dst.Pix[i]) / 255,
				float32(dst.Pix[i+1]) / 255,
				float32(dst.Pix[i+2]) / 255,
			}
		}
		t[y] = row
	}
	return t, nil
}
