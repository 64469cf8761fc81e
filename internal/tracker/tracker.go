// Package tracker ties the analysis pipeline to the persistent store:
// it resolves the decoded identifier to a plant record, looks up the
// previous measurement for growth-rate context, and persists one
// measurement per image. Concurrent ingests for the same plant are
// serialized here so growth baselines cannot diverge.
package tracker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"plant-tracker/internal/config"
	"plant-tracker/internal/health"
	"plant-tracker/internal/pipeline"
	"plant-tracker/internal/store"
)

// UnknownPlant is the identifier bucket for images whose QR code could
// not be decoded.
const UnknownPlant = "unknown-plant"

// Ingest is the result of processing and persisting one image.
type Ingest struct {
	Output      *pipeline.Output
	Plant       *store.Plant
	Image       *store.Image
	Measurement *store.Measurement
}

// Tracker processes images end to end: analyze, resolve plant,
// compute growth against history, persist.
type Tracker struct {
	cfg      config.Config
	analyzer *pipeline.Analyzer
	store    *store.Store
	log      *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Tracker backed by the given store.
func New(cfg config.Config, st *store.Store, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{
		cfg:      cfg,
		analyzer: pipeline.New(cfg, log),
		store:    st,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Analyzer exposes the underlying pipeline for ad-hoc analysis that
// does not persist anything.
func (t *Tracker) Analyzer() *pipeline.Analyzer {
	return t.analyzer
}

// ProcessImage runs the pipeline on the image at path, then persists
// the plant, image, and measurement records. capturedAt orders the
// measurement in the plant's time series and anchors the
// previous-measurement lookup.
//
// The pipeline runs without prior context; once the plant is known,
// the growth rate and health score are recomputed against its stored
// history, mirroring the measurement the caller would get from a
// perfectly informed single pass.
func (t *Tracker) ProcessImage(path string, capturedAt time.Time) (*Ingest, error) {
	out := t.analyzer.Analyze(path, pipeline.Prior{})

	qrCode := UnknownPlant
	if out.QRCode != nil {
		qrCode = *out.QRCode
	}

	// Serialize per plant: concurrent images of the same plant must
	// not race the previous-measurement lookup against each other's
	// insert.
	lock := t.plantLock(qrCode)
	lock.Lock()
	defer lock.Unlock()

	plant, err := t.store.GetOrCreatePlant(qrCode, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve plant: %w", err)
	}

	growthRate := out.GrowthRate
	healthScore := out.HealthScore

	prev, err := t.store.PreviousMeasurement(plant.ID, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("previous measurement: %w", err)
	}
	if prev != nil {
		deltaHours := capturedAt.Sub(prev.MeasuredAt).Hours()
		if deltaHours > 0 && out.AreaMM2 != nil && prev.AreaMM2 != nil {
			rate := (*out.AreaMM2 - *prev.AreaMM2) / deltaHours
			growthRate = &rate
			healthScore = health.Score(
				out.GreennessIndex,
				out.MeanSaturation,
				growthRate,
				&prev.HealthScore,
				t.weights(),
			)
		}
	}

	img, err := t.store.CreateImage(plant.ID, out.Filename, out.Filepath, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("persist image: %w", err)
	}

	m := &store.Measurement{
		ImageID:        img.ID,
		PlantID:        plant.ID,
		AreaPx:         out.AreaPx,
		AreaMM2:        out.AreaMM2,
		PxPerMM:        out.PxPerMM,
		MeanHue:        out.MeanHue,
		MeanSaturation: out.MeanSaturation,
		GreennessIndex: out.GreennessIndex,
		HealthScore:    healthScore,
		GrowthRate:     growthRate,
		IsOvergrown:    out.IsOvergrown,
		MeasuredAt:     capturedAt,
	}
	if err := t.store.CreateMeasurement(m); err != nil {
		return nil, fmt.Errorf("persist measurement: %w", err)
	}

	t.log.Info("processed image",
		"file", out.Filename,
		"plant", qrCode,
		"area_px", out.AreaPx,
		"health", healthScore,
		"errors", len(out.Errors))

	return &Ingest{Output: out, Plant: plant, Image: img, Measurement: m}, nil
}

func (t *Tracker) plantLock(qrCode string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.locks[qrCode]; ok {
		return l
	}
	l := &sync.Mutex{}
	t.locks[qrCode] = l
	return l
}

func (t *Tracker) weights() health.Weights {
	return health.Weights{
		Greenness:            t.cfg.HealthWeightGreenness,
		Saturation:           t.cfg.HealthWeightSaturation,
		Growth:               t.cfg.HealthWeightGrowth,
		HealthyGreennessRef:  t.cfg.HealthyGreennessRef,
		HealthySaturationRef: t.cfg.HealthySaturationRef,
	}
}
