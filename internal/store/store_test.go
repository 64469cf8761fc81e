package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func TestGetOrCreatePlant(t *testing.T) {
	s := openTestStore(t)

	p1, err := s.GetOrCreatePlant("plant-001", nil)
	require.NoError(t, err)
	require.NotZero(t, p1.ID)

	p2, err := s.GetOrCreatePlant("plant-001", nil)
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID)

	p3, err := s.GetOrCreatePlant("plant-002", nil)
	require.NoError(t, err)
	assert.NotEqual(t, p1.ID, p3.ID)
}

func TestMeasurementUniquePerImage(t *testing.T) {
	s := openTestStore(t)

	plant, err := s.GetOrCreatePlant("plant-001", nil)
	require.NoError(t, err)
	img, err := s.CreateImage(plant.ID, "a.jpg", "/imgs/a.jpg", time.Now())
	require.NoError(t, err)

	m := &Measurement{ImageID: img.ID, PlantID: plant.ID, AreaPx: 1000, HealthScore: 50}
	require.NoError(t, s.CreateMeasurement(m))

	dup := &Measurement{ImageID: img.ID, PlantID: plant.ID, AreaPx: 2000, HealthScore: 60}
	assert.Error(t, s.CreateMeasurement(dup))
}

func TestPreviousMeasurement(t *testing.T) {
	s := openTestStore(t)

	plant, err := s.GetOrCreatePlant("plant-001", nil)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{0, 24 * time.Hour, 48 * time.Hour} {
		img, err := s.CreateImage(plant.ID, "img.jpg", "/imgs/img.jpg", base.Add(offset))
		require.NoError(t, err)
		m := &Measurement{
			ImageID:     img.ID,
			PlantID:     plant.ID,
			AreaPx:      1000 * (i + 1),
			AreaMM2:     ptr(float64(100 * (i + 1))),
			HealthScore: 50,
			MeasuredAt:  base.Add(offset),
		}
		require.NoError(t, s.CreateMeasurement(m))
	}

	t.Run("finds the latest before the cutoff", func(t *testing.T) {
		prev, err := s.PreviousMeasurement(plant.ID, base.Add(36*time.Hour))
		require.NoError(t, err)
		require.NotNil(t, prev)
		assert.Equal(t, 2000, prev.AreaPx)
	})

	t.Run("nil when nothing precedes", func(t *testing.T) {
		prev, err := s.PreviousMeasurement(plant.ID, base)
		require.NoError(t, err)
		assert.Nil(t, prev)
	})
}

func TestListPlants(t *testing.T) {
	s := openTestStore(t)

	empty, err := s.ListPlants()
	require.NoError(t, err)
	assert.Empty(t, empty)

	plant, err := s.GetOrCreatePlant("plant-001", nil)
	require.NoError(t, err)
	img, err := s.CreateImage(plant.ID, "a.jpg", "/imgs/a.jpg", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.CreateMeasurement(&Measurement{
		ImageID:     img.ID,
		PlantID:     plant.ID,
		AreaPx:      9000,
		AreaMM2:     ptr(1000),
		HealthScore: 72.5,
		IsOvergrown: true,
	}))

	summaries, err := s.ListPlants()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "plant-001", summaries[0].QRCode)
	assert.Equal(t, int64(1), summaries[0].ImageCount)
	require.NotNil(t, summaries[0].LatestHealthScore)
	assert.Equal(t, 72.5, *summaries[0].LatestHealthScore)
	require.NotNil(t, summaries[0].LatestIsOvergrown)
	assert.True(t, *summaries[0].LatestIsOvergrown)
}

func TestGetPlantMissing(t *testing.T) {
	s := openTestStore(t)

	p, err := s.GetPlant(12345)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestDistinctPlantCount(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetOrCreatePlant("a", nil)
	require.NoError(t, err)
	_, err = s.GetOrCreatePlant("b", nil)
	require.NoError(t, err)

	n, err := s.DistinctPlantCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
