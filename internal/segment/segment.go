// Package segment isolates plant tissue from the background of a
// culture photograph. The primary rule is an HSV hue-band threshold;
// a LAB a-channel Otsu fallback recovers pale or aging tissue that the
// hue rule misses.
package segment

import (
	"image"
	"image/color"
	"log/slog"

	"gocv.io/x/gocv"

	"plant-tracker/pkg/geometry"
)

var whiteRGBA = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Result is the output of plant segmentation. Mask is owned by the
// caller and must be closed.
type Result struct {
	Mask       gocv.Mat         // binary mask (0/255), same size as input
	AreaPx     int              // number of plant pixels
	Contour    []image.Point    // largest external contour, nil unless Success
	Success    bool             // area reached the configured minimum
	DishCircle *geometry.Circle // detected petri dish, when dish detection ran
}

// Options configures segmentation.
type Options struct {
	HueLower        int
	HueUpper        int
	SaturationLower int
	ValueLower      int
	MinPlantAreaPx  int

	// ExclusionZones mask out fixed fixtures (color chart, QR label,
	// ruler strip) on a standardized rig. When empty and DishDetection
	// is set, a Hough circle search restricts processing to the petri
	// dish instead.
	ExclusionZones []geometry.RectInt
	DishDetection  bool
}

// DefaultOptions returns segmentation defaults tuned for green tissue
// under controlled lighting.
func DefaultOptions() Options {
	return Options{
		HueLower:        25,
		HueUpper:        95,
		SaturationLower: 40,
		ValueLower:      40,
		MinPlantAreaPx:  500,
	}
}

// Segmenter extracts the plant region from culture photographs.
type Segmenter struct {
	opts Options
	log  *slog.Logger
}

// New creates a Segmenter.
func New(opts Options, log *slog.Logger) *Segmenter {
	if log == nil {
		log = slog.Default()
	}
	return &Segmenter{opts: opts, log: log}
}

// Segment isolates the plant tissue in a BGR image.
//
// The returned Result always carries a mask (possibly empty) and its
// pixel area; Success is false when the area stayed below the
// configured minimum after both threshold strategies.
func (s *Segmenter) Segment(img gocv.Mat) Result {
	inclusion, dish := s.buildInclusionMask(img)
	if !inclusion.Empty() {
		defer inclusion.Close()
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(float64(s.opts.HueLower), float64(s.opts.SaturationLower), float64(s.opts.ValueLower), 0),
		gocv.NewScalar(float64(s.opts.HueUpper), 255, 255, 0),
		&mask)

	if !inclusion.Empty() {
		gocv.BitwiseAnd(mask, inclusion, &mask)
	}

	cleanupMask(&mask, 2, 1)
	removeSmallComponents(&mask, s.opts.MinPlantAreaPx)
	areaPx := gocv.CountNonZero(mask)

	if areaPx < s.opts.MinPlantAreaPx {
		s.log.Info("HSV mask too small, trying LAB fallback", "area_px", areaPx)
		mask.Close()
		mask, areaPx = s.labFallback(img, inclusion)
	}

	if areaPx < s.opts.MinPlantAreaPx {
		s.log.Warn("segmentation failed: area below minimum",
			"area_px", areaPx, "min_px", s.opts.MinPlantAreaPx)
		return Result{Mask: mask, AreaPx: areaPx, DishCircle: dish}
	}

	contour := largestContour(mask)

	s.log.Info("segmented plant", "area_px", areaPx)
	return Result{
		Mask:       mask,
		AreaPx:     areaPx,
		Contour:    contour,
		Success:    true,
		DishCircle: dish,
	}
}

// buildInclusionMask restricts processing to the plant region.
// Exclusion rectangles take precedence; otherwise an optional petri
// dish circle search runs. An empty Mat means no restriction (degraded
// mode: the whole frame is considered).
func (s *Segmenter) buildInclusionMask(img gocv.Mat) (gocv.Mat, *geometry.Circle) {
	h, w := img.Rows(), img.Cols()

	if len(s.opts.ExclusionZones) > 0 {
		mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), h, w, gocv.MatTypeCV8U)
		for _, zone := range s.opts.ExclusionZones {
			clipped := zone.Clip(w, h)
			if clipped.Empty() {
				continue
			}
			region := mask.Region(clipped.ToImageRect())
			region.SetTo(gocv.NewScalar(0, 0, 0, 0))
			region.Close()
		}
		s.log.Info("applied exclusion zones", "count", len(s.opts.ExclusionZones))
		return mask, nil
	}

	if s.opts.DishDetection {
		if dish := s.detectPetriDish(img); dish != nil {
			mask := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
			gocv.Circle(&mask, image.Pt(dish.CX, dish.CY), dish.Radius, whiteRGBA, -1)
			s.log.Info("restricting to detected dish",
				"cx", dish.CX, "cy", dish.CY, "radius", dish.Radius)
			return mask, dish
		}
		s.log.Warn("dish detection found no circle, segmenting full frame")
		return gocv.NewMat(), nil
	}

	s.log.Warn("no exclusion zones configured, segmenting full frame")
	return gocv.NewMat(), nil
}

// detectPetriDish finds the circular dish boundary with a Hough circle
// search, returning the largest plausible circle.
func (s *Segmenter) detectPetriDish(img gocv.Mat) *geometry.Circle {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: 9, Y: 9}, 2, 2, gocv.BorderDefault)

	shorter := min(img.Rows(), img.Cols())
	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient,
		1.2, float64(shorter/3), 100, 40, shorter/5, shorter/2)

	if circles.Empty() || circles.Cols() == 0 {
		return nil
	}

	var best *geometry.Circle
	for i := 0; i < circles.Cols(); i++ {
		v := circles.GetVecfAt(0, i)
		c := geometry.Circle{CX: int(v[0]), CY: int(v[1]), Radius: int(v[2])}
		if best == nil || c.Radius > best.Radius {
			circle := c
			best = &circle
		}
	}
	return best
}

// labFallback thresholds the LAB a-channel (green-magenta axis) with
// Otsu, inverted so green tissue is foreground. Recovers pale tissue
// whose saturation falls below the HSV rule.
func (s *Segmenter) labFallback(img gocv.Mat, inclusion gocv.Mat) (gocv.Mat, int) {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()

	mask := gocv.NewMat()
	gocv.Threshold(channels[1], &mask, 0, 255, gocv.ThresholdBinaryInv+gocv.ThresholdOtsu)

	if !inclusion.Empty() {
		gocv.BitwiseAnd(mask, inclusion, &mask)
	}

	cleanupMask(&mask, 2, 2)
	removeSmallComponents(&mask, s.opts.MinPlantAreaPx)

	return mask, gocv.CountNonZero(mask)
}

// cleanupMask closes small gaps then opens away speckles with a 5x5
// elliptical structuring element.
func cleanupMask(mask *gocv.Mat, closeIterations, openIterations int) {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 5, Y: 5})
	defer kernel.Close()

	for i := 0; i < closeIterations; i++ {
		gocv.MorphologyEx(*mask, mask, gocv.MorphClose, kernel)
	}
	for i := 0; i < openIterations; i++ {
		gocv.MorphologyEx(*mask, mask, gocv.MorphOpen, kernel)
	}
}

// removeSmallComponents zeroes 8-connected components smaller than
// minArea pixels.
func removeSmallComponents(mask *gocv.Mat, minArea int) {
	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	numLabels := gocv.ConnectedComponentsWithStats(*mask, &labels, &stats, &centroids)

	keep := make([]bool, numLabels)
	for i := 1; i < numLabels; i++ {
		// column 4 of the stats matrix is CC_STAT_AREA
		keep[i] = int(stats.GetIntAt(i, 4)) >= minArea
	}

	cleaned := gocv.NewMatWithSize(mask.Rows(), mask.Cols(), gocv.MatTypeCV8U)
	for y := 0; y < labels.Rows(); y++ {
		for x := 0; x < labels.Cols(); x++ {
			if label := int(labels.GetIntAt(y, x)); label > 0 && keep[label] {
				cleaned.SetUCharAt(y, x, 255)
			}
		}
	}

	mask.Close()
	*mask = cleaned
}

// largestContour returns the external contour enclosing the most area.
func largestContour(mask gocv.Mat) []image.Point {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	bestIdx := -1
	var bestArea float64
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); bestIdx < 0 || area > bestArea {
			bestIdx = i
			bestArea = area
		}
	}
	if bestIdx < 0 {
		return nil
	}
	return contours.At(bestIdx).ToPoints()
}
