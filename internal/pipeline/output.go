package pipeline

import "plant-tracker/pkg/geometry"

// Output is the complete result of processing a single image. It is
// created once per image, fully populated by the Analyzer, and never
// mutated afterward. Optional fields are nil when a stage could not
// produce them; Errors records stage-level failures in pipeline order.
type Output struct {
	Filepath string `json:"filepath"`
	Filename string `json:"filename"`

	// Identifier
	QRCode *string `json:"qr_code,omitempty"`

	// Calibration
	PxPerMM             *float64 `json:"px_per_mm,omitempty"`
	RulerDetected       bool     `json:"ruler_detected"`
	TickCount           int      `json:"tick_count"`
	MedianTickSpacingPx float64  `json:"median_tick_spacing_px"`

	// Segmentation
	AreaPx              int              `json:"area_px"`
	AreaMM2             *float64         `json:"area_mm2,omitempty"`
	SegmentationSuccess bool             `json:"segmentation_success"`
	DishCircle          *geometry.Circle `json:"dish_circle,omitempty"`

	// Color
	MeanHue        float64 `json:"mean_hue"`
	MeanSaturation float64 `json:"mean_saturation"`
	GreennessIndex float64 `json:"greenness_index"`

	// Health
	HealthScore float64  `json:"health_score"`
	GrowthRate  *float64 `json:"growth_rate,omitempty"`
	IsOvergrown bool     `json:"is_overgrown"`

	Errors []string `json:"errors"`
}

// Degraded reports whether any stage recorded an error.
func (o *Output) Degraded() bool {
	return len(o.Errors) > 0
}
