// Package store persists plants, images, and measurements in SQLite.
// It is the pipeline's external collaborator: the analysis core never
// touches storage, it only consumes the previous-measurement context
// this package looks up.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store wraps the database connection.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and
// migrates the schema. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Plant{}, &Image{}, &Measurement{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetOrCreatePlant returns the plant with the given QR code, creating
// it when it does not exist.
func (s *Store) GetOrCreatePlant(qrCode string, name *string) (*Plant, error) {
	var plant Plant
	err := s.db.Where("qr_code = ?", qrCode).First(&plant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		plant = Plant{QRCode: qrCode, Name: name}
		if err := s.db.Create(&plant).Error; err != nil {
			return nil, fmt.Errorf("create plant %q: %w", qrCode, err)
		}
		return &plant, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup plant %q: %w", qrCode, err)
	}
	return &plant, nil
}

// GetPlant fetches a plant with its images and measurements.
func (s *Store) GetPlant(id uint) (*Plant, error) {
	var plant Plant
	err := s.db.
		Preload("Images.Measurement").
		Preload("Measurements", func(db *gorm.DB) *gorm.DB {
			return db.Order("measured_at ASC")
		}).
		First(&plant, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup plant %d: %w", id, err)
	}
	return &plant, nil
}

// ListPlants returns all plants with summary statistics from their
// latest measurement.
func (s *Store) ListPlants() ([]PlantSummary, error) {
	var plants []Plant
	if err := s.db.Find(&plants).Error; err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}

	summaries := make([]PlantSummary, 0, len(plants))
	for _, p := range plants {
		var imageCount int64
		if err := s.db.Model(&Image{}).Where("plant_id = ?", p.ID).Count(&imageCount).Error; err != nil {
			return nil, fmt.Errorf("count images for plant %d: %w", p.ID, err)
		}

		summary := PlantSummary{
			ID:         p.ID,
			QRCode:     p.QRCode,
			Name:       p.Name,
			CreatedAt:  p.CreatedAt,
			ImageCount: imageCount,
		}

		var latest Measurement
		err := s.db.Where("plant_id = ?", p.ID).Order("measured_at DESC").First(&latest).Error
		if err == nil {
			summary.LatestAreaMM2 = latest.AreaMM2
			summary.LatestHealthScore = &latest.HealthScore
			summary.LatestIsOvergrown = &latest.IsOvergrown
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("latest measurement for plant %d: %w", p.ID, err)
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// CreateImage inserts a new image record.
func (s *Store) CreateImage(plantID uint, filename, path string, capturedAt time.Time) (*Image, error) {
	img := Image{
		PlantID:    plantID,
		Filename:   filename,
		Filepath:   path,
		CapturedAt: capturedAt,
	}
	if err := s.db.Create(&img).Error; err != nil {
		return nil, fmt.Errorf("create image %q: %w", filename, err)
	}
	return &img, nil
}

// GetImage fetches a single image, or nil when absent.
func (s *Store) GetImage(id uint) (*Image, error) {
	var img Image
	err := s.db.First(&img, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup image %d: %w", id, err)
	}
	return &img, nil
}

// CreateMeasurement inserts a measurement. The unique index on ImageID
// guarantees at most one stored measurement per image; a second insert
// for the same image fails.
func (s *Store) CreateMeasurement(m *Measurement) error {
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = time.Now().UTC()
	}
	if err := s.db.Create(m).Error; err != nil {
		return fmt.Errorf("create measurement for image %d: %w", m.ImageID, err)
	}
	return nil
}

// MeasurementsForPlant returns all measurements for a plant ordered by
// time ascending.
func (s *Store) MeasurementsForPlant(plantID uint) ([]Measurement, error) {
	var out []Measurement
	err := s.db.Where("plant_id = ?", plantID).Order("measured_at ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("measurements for plant %d: %w", plantID, err)
	}
	return out, nil
}

// PreviousMeasurement returns the most recent measurement for a plant
// strictly before the given time, or nil when there is none.
func (s *Store) PreviousMeasurement(plantID uint, before time.Time) (*Measurement, error) {
	var m Measurement
	err := s.db.
		Where("plant_id = ? AND measured_at < ?", plantID, before).
		Order("measured_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("previous measurement for plant %d: %w", plantID, err)
	}
	return &m, nil
}

// DistinctPlantCount returns the number of plants in the store.
func (s *Store) DistinctPlantCount() (int64, error) {
	var n int64
	if err := s.db.Model(&Plant{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count plants: %w", err)
	}
	return n, nil
}
