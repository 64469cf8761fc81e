// Package calibrate derives a pixels-per-millimeter scale factor from a
// ruler photographed alongside the plant. Tick marks of known physical
// spacing show up as periodic dark peaks in a 1-D brightness profile of
// the ruler region; the median peak spacing gives the scale.
package calibrate

import (
	"log/slog"

	"gocv.io/x/gocv"

	"plant-tracker/pkg/geometry"
	"plant-tracker/pkg/signal"
)

// Result is the output of ruler calibration.
//
// Detected means a tick pattern was seen (at least 3 peaks). PxPerMM is
// additionally nil when the tick spacings were too inconsistent to
// trust, so callers must check both.
type Result struct {
	PxPerMM             *float64 `json:"px_per_mm,omitempty"`
	Detected            bool     `json:"ruler_detected"`
	TickCount           int      `json:"tick_count"`
	MedianTickSpacingPx float64  `json:"median_tick_spacing_px"`
}

// Calibrator locates a ruler tick pattern and converts its spacing to a
// physical scale.
type Calibrator struct {
	tickDistanceMM float64
	roi            *geometry.RectInt
	log            *slog.Logger
}

// New creates a Calibrator. tickDistanceMM is the known physical
// distance between adjacent major tick marks; roi optionally restricts
// the search to a fixed region of the frame.
func New(tickDistanceMM float64, roi *geometry.RectInt, log *slog.Logger) *Calibrator {
	if log == nil {
		log = slog.Default()
	}
	return &Calibrator{tickDistanceMM: tickDistanceMM, roi: roi, log: log}
}

// Calibrate detects the ruler in a BGR image and computes px/mm.
//
// Both a horizontal and a vertical tick run are tried; when both
// produce a usable scale, the orientation with more detected ticks
// wins. The input image is not modified.
func (c *Calibrator) Calibrate(img gocv.Mat) Result {
	if img.Empty() {
		return Result{}
	}

	region := img
	var cropped gocv.Mat
	if c.roi != nil {
		clipped := c.roi.Clip(img.Cols(), img.Rows())
		if clipped.Empty() {
			c.log.Warn("ruler ROI clips to nothing", "roi", *c.roi)
			return Result{}
		}
		cropped = img.Region(clipped.ToImageRect())
		defer cropped.Close()
		region = cropped
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(region, &gray, gocv.ColorBGRToGray)

	colProfile, rowProfile := brightnessProfiles(gray)

	horizontal := c.findTickSpacing(colProfile)
	vertical := c.findTickSpacing(rowProfile)

	switch {
	case horizontal.PxPerMM != nil && vertical.PxPerMM != nil:
		if horizontal.TickCount >= vertical.TickCount {
			return horizontal
		}
		return vertical
	case horizontal.PxPerMM != nil:
		return horizontal
	case vertical.PxPerMM != nil:
		return vertical
	}

	return Result{}
}

// brightnessProfiles reduces a grayscale Mat to per-column and per-row
// mean intensities.
func brightnessProfiles(gray gocv.Mat) (cols, rows []float64) {
	h, w := gray.Rows(), gray.Cols()
	cols = make([]float64, w)
	rows = make([]float64, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float64(gray.GetUCharAt(y, x))
			cols[x] += v
			rows[y] += v
		}
	}
	for x := range cols {
		cols[x] /= float64(h)
	}
	for y := range rows {
		rows[y] /= float64(w)
	}
	return cols, rows
}

// findTickSpacing locates evenly spaced dark tick marks in a 1-D
// brightness profile and converts their median spacing to px/mm.
func (c *Calibrator) findTickSpacing(profile []float64) Result {
	if len(profile) < 3 {
		return Result{}
	}

	kernelSize := max(3, len(profile)/100)
	if kernelSize%2 == 0 {
		kernelSize++
	}
	smoothed := signal.GaussianSmooth(profile, kernelSize)

	// Invert so dark ticks become peaks.
	maxVal := smoothed[0]
	for _, v := range smoothed {
		if v > maxVal {
			maxVal = v
		}
	}
	inverted := make([]float64, len(smoothed))
	minInv, maxInv := maxVal-smoothed[0], maxVal-smoothed[0]
	for i, v := range smoothed {
		inverted[i] = maxVal - v
		if inverted[i] < minInv {
			minInv = inverted[i]
		}
		if inverted[i] > maxInv {
			maxInv = inverted[i]
		}
	}

	minDistance := max(5, len(profile)/150)
	prominence := (maxInv - minInv) * 0.15

	peaks := signal.FindPeaks(inverted, minDistance, prominence)
	if len(peaks) < 3 {
		c.log.Warn("too few tick marks for calibration", "ticks", len(peaks))
		return Result{TickCount: len(peaks)}
	}

	spacings := signal.Diffs(peaks)
	median := signal.Median(spacings)

	inliers := signal.FilterAroundMedian(spacings, 0.4)
	if len(inliers) < 2 {
		c.log.Warn("tick spacings too inconsistent for calibration", "ticks", len(peaks))
		return Result{Detected: true, TickCount: len(peaks), MedianTickSpacingPx: median}
	}

	refined := signal.Median(inliers)
	pxPerMM := refined / c.tickDistanceMM

	c.log.Info("ruler calibration",
		"ticks", len(peaks),
		"median_spacing_px", refined,
		"px_per_mm", pxPerMM)

	return Result{
		PxPerMM:             &pxPerMM,
		Detected:            true,
		TickCount:           len(peaks),
		MedianTickSpacingPx: refined,
	}
}
