// Package pipeline orchestrates the per-image analysis: identifier
// decode, ruler calibration, plant segmentation, color metrics, and
// health scoring, with each stage isolated so one failure cannot
// discard the others' results.
package pipeline

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"

	"plant-tracker/internal/calibrate"
	"plant-tracker/internal/colormetrics"
	"plant-tracker/internal/config"
	"plant-tracker/internal/health"
	"plant-tracker/internal/identifier"
	"plant-tracker/internal/segment"
)

// Prior carries the previous-measurement context supplied by the
// caller. The pipeline itself is stateless; growth rate is only
// computed when the caller provides history.
type Prior struct {
	AreaMM2        *float64 // area from the prior measurement
	ElapsedHours   *float64 // time since that measurement
	PreviousHealth *float64 // prior health score, growth proxy fallback
}

// Analyzer runs the full per-image pipeline. Construct with New; the
// configuration is read-only for the Analyzer's lifetime.
type Analyzer struct {
	cfg       config.Config
	locator   *identifier.Locator
	calibrate *calibrate.Calibrator
	segmenter *segment.Segmenter
	colors    *colormetrics.Analyzer
	log       *slog.Logger
}

// New creates an Analyzer from the given configuration.
func New(cfg config.Config, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	segOpts := segment.Options{
		HueLower:        cfg.HueLower,
		HueUpper:        cfg.HueUpper,
		SaturationLower: cfg.SaturationLower,
		ValueLower:      cfg.ValueLower,
		MinPlantAreaPx:  cfg.MinPlantAreaPx,
		ExclusionZones:  cfg.ExclusionZones,
		DishDetection:   cfg.DishDetection,
	}
	return &Analyzer{
		cfg:       cfg,
		locator:   identifier.New(log),
		calibrate: calibrate.New(cfg.RulerTickDistanceMM, cfg.RulerROI, log),
		segmenter: segment.New(segOpts, log),
		colors:    colormetrics.New(log),
		log:       log,
	}
}

// Analyze loads the image at path and runs the full pipeline. A file
// that cannot be decoded is fatal for this image: the output carries
// one error and default values for every stage.
func (a *Analyzer) Analyze(path string, prior Prior) *Output {
	out := newOutput(path)

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		out.Errors = append(out.Errors, fmt.Sprintf("failed to read image: %s", path))
		a.log.Error("cannot read image", "path", path)
		return out
	}
	defer img.Close()

	a.log.Info("analyzing image", "file", out.Filename)
	a.analyzeInto(img, prior, out)
	return out
}

// AnalyzeMat runs the pipeline on an already-decoded BGR image.
func (a *Analyzer) AnalyzeMat(img gocv.Mat, name string, prior Prior) *Output {
	out := newOutput(name)
	if img.Empty() {
		out.Errors = append(out.Errors, "empty image")
		return out
	}
	a.analyzeInto(img, prior, out)
	return out
}

func (a *Analyzer) analyzeInto(img gocv.Mat, prior Prior, out *Output) {
	var (
		qr  string
		cal calibrate.Result
		seg = segment.Result{Mask: gocv.NewMat()}

		qrErr, calErr, segErr string
	)

	// The three leading stages share only read access to the image and
	// may run in parallel; results are joined before area conversion.
	var g errgroup.Group
	g.Go(func() error {
		qrErr = runStage("QR detection", func() { qr = a.locator.Locate(img) })
		return nil
	})
	g.Go(func() error {
		calErr = runStage("ruler calibration", func() { cal = a.calibrate.Calibrate(img) })
		return nil
	})
	g.Go(func() error {
		segErr = runStage("segmentation", func() {
			res := a.segmenter.Segment(img)
			seg.Mask.Close()
			seg = res
		})
		return nil
	})
	_ = g.Wait()
	defer seg.Mask.Close()

	appendError(&out.Errors, qrErr)
	appendError(&out.Errors, calErr)
	appendError(&out.Errors, segErr)

	if qr != "" {
		out.QRCode = &qr
	}
	out.PxPerMM = cal.PxPerMM
	out.RulerDetected = cal.Detected
	out.TickCount = cal.TickCount
	out.MedianTickSpacingPx = cal.MedianTickSpacingPx

	out.AreaPx = seg.AreaPx
	out.SegmentationSuccess = seg.Success
	out.DishCircle = seg.DishCircle

	if seg.Success && out.PxPerMM != nil && *out.PxPerMM > 0 {
		area := float64(seg.AreaPx) / (*out.PxPerMM * *out.PxPerMM)
		out.AreaMM2 = &area
	}

	if seg.Success {
		colorErr := runStage("color metrics", func() {
			m := a.colors.Extract(img, seg.Mask)
			out.MeanHue = m.MeanHue
			out.MeanSaturation = m.MeanSaturation
			out.GreennessIndex = m.GreennessIndex
		})
		appendError(&out.Errors, colorErr)
	}

	if prior.AreaMM2 != nil && prior.ElapsedHours != nil && *prior.ElapsedHours > 0 && out.AreaMM2 != nil {
		rate := (*out.AreaMM2 - *prior.AreaMM2) / *prior.ElapsedHours
		out.GrowthRate = &rate
	}

	scoreErr := runStage("health score", func() {
		out.HealthScore = health.Score(
			out.GreennessIndex,
			out.MeanSaturation,
			out.GrowthRate,
			prior.PreviousHealth,
			a.weights(),
		)
	})
	appendError(&out.Errors, scoreErr)

	out.IsOvergrown = health.IsOvergrown(out.AreaMM2, a.cfg.OvergrowthThresholdMM2)
}

func (a *Analyzer) weights() health.Weights {
	return health.Weights{
		Greenness:            a.cfg.HealthWeightGreenness,
		Saturation:           a.cfg.HealthWeightSaturation,
		Growth:               a.cfg.HealthWeightGrowth,
		HealthyGreennessRef:  a.cfg.HealthyGreennessRef,
		HealthySaturationRef: a.cfg.HealthySaturationRef,
	}
}

func newOutput(path string) *Output {
	return &Output{
		Filepath: path,
		Filename: filepath.Base(path),
	}
}

// runStage executes one pipeline stage, converting a panic into an
// error message so a faulting stage cannot take down the others.
func runStage(name string, fn func()) (errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			errMsg = fmt.Sprintf("%s error: %v", name, r)
		}
	}()
	fn()
	return ""
}

func appendError(errors *[]string, msg string) {
	if msg != "" {
		*errors = append(*errors, msg)
	}
}
