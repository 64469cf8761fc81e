package colormetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

// frame fills a BGR image with one color and returns a mask selecting
// a central square.
func frame(b, g, r uint8) (gocv.Mat, gocv.Mat) {
	img := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(b), float64(g), float64(r), 0), 100, 100, gocv.MatTypeCV8UC3)
	mask := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8U)
	for y := 25; y < 75; y++ {
		for x := 25; x < 75; x++ {
			mask.SetUCharAt(y, x, 255)
		}
	}
	return img, mask
}

func TestExtractPureGreen(t *testing.T) {
	img, mask := frame(0, 255, 0)
	defer img.Close()
	defer mask.Close()

	m := New(nil).Extract(img, mask)

	// Hue 60 on the OpenCV scale, full saturation, and greenness
	// (2*255-0-0)/255 = 2 at the degenerate pure-green extreme.
	assert.InDelta(t, 60.0, m.MeanHue, 1.0)
	assert.InDelta(t, 1.0, m.MeanSaturation, 0.01)
	assert.InDelta(t, 2.0, m.GreennessIndex, 0.01)
}

func TestExtractBalancedGray(t *testing.T) {
	img, mask := frame(100, 100, 100)
	defer img.Close()
	defer mask.Close()

	m := New(nil).Extract(img, mask)

	assert.InDelta(t, 0.0, m.MeanSaturation, 0.01)
	assert.InDelta(t, 0.0, m.GreennessIndex, 0.001)
}

func TestExtractEmptyMask(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 200, 10, 0), 50, 50, gocv.MatTypeCV8UC3)
	defer img.Close()
	mask := gocv.NewMatWithSize(50, 50, gocv.MatTypeCV8U) // all zero
	defer mask.Close()

	m := New(nil).Extract(img, mask)
	assert.Equal(t, Metrics{}, m)
}

func TestExtractBlackPixels(t *testing.T) {
	img, mask := frame(0, 0, 0)
	defer img.Close()
	defer mask.Close()

	m := New(nil).Extract(img, mask)
	// Channel sum is zero: greenness defined as 0.
	assert.Equal(t, 0.0, m.GreennessIndex)
}
