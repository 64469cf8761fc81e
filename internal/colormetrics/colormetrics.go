// Package colormetrics computes color statistics over the segmented
// plant region: mean hue, mean saturation, and a greenness index used
// as a chlorophyll proxy.
package colormetrics

import (
	"log/slog"

	"gocv.io/x/gocv"

	"plant-tracker/pkg/signal"
)

// Metrics holds color-derived features of the plant tissue, defined
// only over masked pixels. All fields are zero when the mask selects
// no pixels.
type Metrics struct {
	MeanHue        float64 `json:"mean_hue"`         // OpenCV hue convention, 0-180
	MeanSaturation float64 `json:"mean_saturation"`  // normalized 0-1
	GreennessIndex float64 `json:"greenness_index"`  // (2G-R-B)/(R+G+B), roughly -1..+1
}

// Analyzer extracts color metrics from masked image regions.
type Analyzer struct {
	log *slog.Logger
}

// New creates an Analyzer.
func New(log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{log: log}
}

// Extract computes metrics over pixels where the mask is set. The mask
// must match the image dimensions. An empty selection yields all-zero
// metrics and a warning, not an error.
func (a *Analyzer) Extract(img gocv.Mat, mask gocv.Mat) Metrics {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	var hues, sats []float64
	var bSum, gSum, rSum float64
	var count int

	for y := 0; y < mask.Rows(); y++ {
		for x := 0; x < mask.Cols(); x++ {
			if mask.GetUCharAt(y, x) == 0 {
				continue
			}
			hues = append(hues, float64(hsv.GetUCharAt(y, x*3+0)))
			sats = append(sats, float64(hsv.GetUCharAt(y, x*3+1)))
			bSum += float64(img.GetUCharAt(y, x*3+0))
			gSum += float64(img.GetUCharAt(y, x*3+1))
			rSum += float64(img.GetUCharAt(y, x*3+2))
			count++
		}
	}

	if count == 0 {
		a.log.Warn("no plant pixels for color analysis, returning zeros")
		return Metrics{}
	}

	n := float64(count)
	bMean := bSum / n
	gMean := gSum / n
	rMean := rSum / n

	var greenness float64
	if channelSum := rMean + gMean + bMean; channelSum > 0 {
		greenness = (2*gMean - rMean - bMean) / channelSum
	}

	m := Metrics{
		MeanHue:        signal.Mean(hues),
		MeanSaturation: signal.Mean(sats) / 255.0,
		GreennessIndex: greenness,
	}

	a.log.Info("color metrics",
		"mean_hue", m.MeanHue,
		"mean_saturation", m.MeanSaturation,
		"greenness_index", m.GreennessIndex)
	return m
}
