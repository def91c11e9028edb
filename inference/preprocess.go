package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PrepareInput fills a CHW float32 buffer with the image resized to
// side x side, channels normalized to [0,1]. This is the input layout
// YOLO-family exports expect.
//
// Arguments:
//   - img: The source frame.
//   - data: Destination buffer of at least 3*side*side floats.
//   - side: Model input edge length.
//
// Returns:
//   - error: When the destination buffer is too small.
func PrepareInput(img image.Image, data []float32, side int) error {
	channelSize := side * side
	if len(data) < channelSize*3 {
		return errors.Errorf("input buffer holds %d floats, needs %d", len(data), channelSize*3)
	}
	red := data[0:channelSize]
	green := data[channelSize : channelSize*2]
	blue := data[channelSize*2 : channelSize*3]

	img = resize.Resize(uint(side), uint(side), img, resize.Lanczos3)

	i := 0
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
