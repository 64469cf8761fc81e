// Package identifier decodes the QR code that labels each plant in the
// camera frame. The decoded string is the stable key used to associate
// images of the same plant over time.
package identifier

import (
	"image"
	"log/slog"

	"gocv.io/x/gocv"
)

// Locator decodes plant identifiers from images. The zero value is not
// usable; construct with New.
type Locator struct {
	log *slog.Logger
}

// New creates a Locator. A nil logger falls back to slog.Default().
func New(log *slog.Logger) *Locator {
	if log == nil {
		log = slog.Default()
	}
	return &Locator{log: log}
}

// Locate attempts to decode a QR code in the given BGR image.
//
// Three attempts are made: the raw image, a CLAHE contrast-enhanced
// grayscale derivative, and an Otsu-binarized derivative. The first
// successful decode wins. An empty string means no code was found;
// absence is a valid outcome, not an error.
func (l *Locator) Locate(img gocv.Mat) string {
	if img.Empty() {
		return ""
	}

	detector := gocv.NewQRCodeDetector()
	defer detector.Close()

	if code := decode(&detector, img); code != "" {
		l.log.Info("QR code detected", "code", code)
		return code
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	// Second attempt: local contrast enhancement for uneven lighting.
	clahe := gocv.NewCLAHEWithParams(3.0, image.Point{X: 8, Y: 8})
	defer clahe.Close()

	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(gray, &enhanced)

	enhancedBGR := gocv.NewMat()
	defer enhancedBGR.Close()
	gocv.CvtColor(enhanced, &enhancedBGR, gocv.ColorGrayToBGR)

	if code := decode(&detector, enhancedBGR); code != "" {
		l.log.Info("QR code detected on enhanced image", "code", code)
		return code
	}

	// Third attempt: global binarization for hard shadows.
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)

	binaryBGR := gocv.NewMat()
	defer binaryBGR.Close()
	gocv.CvtColor(binary, &binaryBGR, gocv.ColorGrayToBGR)

	if code := decode(&detector, binaryBGR); code != "" {
		l.log.Info("QR code detected on binarized image", "code", code)
		return code
	}

	l.log.Warn("no QR code found in image")
	return ""
}

func decode(detector *gocv.QRCodeDetector, img gocv.Mat) string {
	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	return detector.DetectAndDecode(img, &points, &straight)
}
