// Package frame turns data-URI encoded video frames into the tensor layout
// the emotion model expects.
package frame

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/nfnt/resize"
)

// Size is the edge length the model was trained on. Frames are resized to
// Size×Size regardless of aspect ratio.
const Size = 48

// TensorLen is the number of float32 values in one preprocessed frame
// (1 image × Size × Size × 1 channel).
const TensorLen = Size * Size

// MaxPixels caps the decoded image area. Larger images are rejected from
// their header before any pixel buffer is allocated.
const MaxPixels = 89478485

var ErrDecode = errors.New("frame decode failed")

// Decode parses a "<mime-info>,<base64 payload>" string into an image.
func Decode(s string) (image.Image, error) {
	_, payload, found := strings.Cut(s, ",")
	if !found {
		return nil, fmt.Errorf("%w: missing data URI delimiter", ErrDecode)
	}

	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(payload), "="))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrDecode, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image: %v", ErrDecode, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, fmt.Errorf("%w: image is %dx%d, over the %d pixel limit", ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	return img, nil
}

// Preprocess converts img to grayscale, resizes it to Size×Size and scales
// intensities into [0, 1]. The result is row-major, which for a single
// channel is the NHWC layout of a [1, Size, Size, 1] tensor.
func Preprocess(img image.Image) []float32 {
	gray := toGray(img)

	resized := toGray(resize.Resize(Size, Size, gray, resize.Bicubic))

	bounds := resized.Bounds()
	inputData := make([]float32, TensorLen)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			v := resized.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
			inputData[y*Size+x] = float32(v) / 255.0
		}
	}
	return inputData
}

// Tensor decodes and preprocesses a single frame.
func Tensor(s string) ([]float32, error) {
	img, err := Decode(s)
	if err != nil {
		return nil, err
	}
	return Preprocess(img), nil
}

// EncodeDataURI wraps raw image bytes the way a browser canvas does.
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// toGray takes the luma of each pixel's colour channels and ignores alpha,
// so transparent pixels keep their underlying shade.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.SetGray(x, y, luma(img.At(x, y)))
		}
	}
	return gray
}

func luma(c color.Color) color.Gray {
	var r, g, b uint32
	switch c := c.(type) {
	case color.NRGBA:
		r, g, b = uint32(c.R)*0x101, uint32(c.G)*0x101, uint32(c.B)*0x101
	case color.NRGBA64:
		r, g, b = uint32(c.R), uint32(c.G), uint32(c.B)
	default:
		n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
		r, g, b = uint32(n.R), uint32(n.G), uint32(n.B)
	}
	// Same ITU-R 601 weights as color.GrayModel.
	return color.Gray{Y: uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 24)}
}
