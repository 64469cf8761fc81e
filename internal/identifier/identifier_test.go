package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

func TestLocateNoCode(t *testing.T) {
	// A plain gray frame has no QR code; all three attempts must come
	// back empty without faulting.
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 200, 300, gocv.MatTypeCV8UC3)
	defer img.Close()

	loc := New(nil)
	assert.Equal(t, "", loc.Locate(img))
}

func TestLocateEmptyMat(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	loc := New(nil)
	assert.Equal(t, "", loc.Locate(img))
}
