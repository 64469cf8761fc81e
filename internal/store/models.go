package store

import "time"

// Plant is a single cultured plant, identified by its QR code.
type Plant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	QRCode    string    `gorm:"uniqueIndex;not null" json:"qr_code"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Images       []Image       `gorm:"constraint:OnDelete:CASCADE" json:"images,omitempty"`
	Measurements []Measurement `gorm:"constraint:OnDelete:CASCADE" json:"measurements,omitempty"`
}

// Image is a single time-stamped photograph of a plant.
type Image struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PlantID    uint      `gorm:"index;not null" json:"plant_id"`
	Filename   string    `gorm:"not null" json:"filename"`
	Filepath   string    `gorm:"not null" json:"filepath"`
	CapturedAt time.Time `gorm:"not null" json:"captured_at"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`

	Measurement *Measurement `json:"measurement,omitempty"`
}

// Measurement holds the per-image analysis results. At most one
// measurement exists per image.
type Measurement struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	ImageID uint `gorm:"uniqueIndex;not null" json:"image_id"`
	PlantID uint `gorm:"index;not null" json:"plant_id"`

	// Area
	AreaPx  int      `gorm:"not null" json:"area_px"`
	AreaMM2 *float64 `json:"area_mm2,omitempty"`
	PxPerMM *float64 `json:"px_per_mm,omitempty"`

	// Color metrics
	MeanHue        float64 `gorm:"not null" json:"mean_hue"`
	MeanSaturation float64 `gorm:"not null" json:"mean_saturation"`
	GreennessIndex float64 `gorm:"not null" json:"greenness_index"`

	// Derived scores
	HealthScore float64  `gorm:"not null" json:"health_score"`
	GrowthRate  *float64 `json:"growth_rate,omitempty"`
	IsOvergrown bool     `gorm:"not null;default:false" json:"is_overgrown"`

	MeasuredAt time.Time `gorm:"index;not null" json:"measured_at"`
}

// PlantSummary is a listing row: plant identity plus headline numbers
// from its latest measurement.
type PlantSummary struct {
	ID                uint      `json:"id"`
	QRCode            string    `json:"qr_code"`
	Name              *string   `json:"name,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	LatestAreaMM2     *float64  `json:"latest_area_mm2,omitempty"`
	LatestHealthScore *float64  `json:"latest_health_score,omitempty"`
	LatestIsOvergrown *bool     `json:"latest_is_overgrown,omitempty"`
	ImageCount        int64     `json:"image_count"`
}
