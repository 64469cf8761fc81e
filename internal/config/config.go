// Package config holds the process-wide configuration: segmentation
// thresholds, calibration parameters, health-score weights, storage
// paths, and the API surface. It is loaded once at startup and passed
// into component constructors; nothing mutates it during a run.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"plant-tracker/pkg/geometry"
)

// Config is the central configuration for the plant tracker.
type Config struct {
	// Paths
	ImageDir     string `yaml:"image_dir"`
	DatabasePath string `yaml:"database_path"`

	// Ruler / size calibration
	RulerTickDistanceMM float64           `yaml:"ruler_tick_distance_mm"`
	RulerROI            *geometry.RectInt `yaml:"ruler_roi,omitempty"`

	// Plant segmentation (HSV thresholds, OpenCV hue convention 0-180)
	HueLower        int `yaml:"hue_lower"`
	HueUpper        int `yaml:"hue_upper"`
	SaturationLower int `yaml:"saturation_lower"`
	ValueLower      int `yaml:"value_lower"`
	MinPlantAreaPx  int `yaml:"min_plant_area_px"`

	// Region of interest: exclusion rectangles win when present;
	// otherwise dish detection may build a circular inclusion mask.
	ExclusionZones []geometry.RectInt `yaml:"exclusion_zones,omitempty"`
	DishDetection  bool               `yaml:"dish_detection"`

	// Health score weights and references
	HealthWeightGreenness  float64 `yaml:"health_weight_greenness"`
	HealthWeightSaturation float64 `yaml:"health_weight_saturation"`
	HealthWeightGrowth     float64 `yaml:"health_weight_growth"`
	HealthyGreennessRef    float64 `yaml:"healthy_greenness_ref"`
	HealthySaturationRef   float64 `yaml:"healthy_saturation_ref"`

	// Overgrowth
	OvergrowthThresholdMM2 float64 `yaml:"overgrowth_threshold_mm2"`

	// API
	APIHost     string   `yaml:"api_host"`
	APIPort     int      `yaml:"api_port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Default returns the configuration with all values at their defaults.
func Default() Config {
	return Config{
		ImageDir:               "images",
		DatabasePath:           "data/plant_tracker.db",
		RulerTickDistanceMM:    10.0,
		HueLower:               25,
		HueUpper:               95,
		SaturationLower:        40,
		ValueLower:             40,
		MinPlantAreaPx:         500,
		HealthWeightGreenness:  0.4,
		HealthWeightSaturation: 0.3,
		HealthWeightGrowth:     0.3,
		HealthyGreennessRef:    0.45,
		HealthySaturationRef:   0.55,
		OvergrowthThresholdMM2: 400.0,
		APIHost:                "0.0.0.0",
		APIPort:                8000,
		CORSOrigins:            []string{"http://localhost:5173", "http://localhost:3000"},
	}
}

// Load reads configuration from an optional YAML file, then applies
// environment overrides (PT_* variables, with a .env file loaded first
// if present). An empty path skips the file and uses defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional; absence is not an error.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from PT_-prefixed environment variables.
func (c *Config) applyEnv() {
	envString("PT_IMAGE_DIR", &c.ImageDir)
	envString("PT_DATABASE_PATH", &c.DatabasePath)
	envFloat("PT_RULER_TICK_DISTANCE_MM", &c.RulerTickDistanceMM)
	envInt("PT_HUE_LOWER", &c.HueLower)
	envInt("PT_HUE_UPPER", &c.HueUpper)
	envInt("PT_SATURATION_LOWER", &c.SaturationLower)
	envInt("PT_VALUE_LOWER", &c.ValueLower)
	envInt("PT_MIN_PLANT_AREA_PX", &c.MinPlantAreaPx)
	envFloat("PT_HEALTH_WEIGHT_GREENNESS", &c.HealthWeightGreenness)
	envFloat("PT_HEALTH_WEIGHT_SATURATION", &c.HealthWeightSaturation)
	envFloat("PT_HEALTH_WEIGHT_GROWTH", &c.HealthWeightGrowth)
	envFloat("PT_HEALTHY_GREENNESS_REF", &c.HealthyGreennessRef)
	envFloat("PT_HEALTHY_SATURATION_REF", &c.HealthySaturationRef)
	envFloat("PT_OVERGROWTH_THRESHOLD_MM2", &c.OvergrowthThresholdMM2)
	envString("PT_API_HOST", &c.APIHost)
	envInt("PT_API_PORT", &c.APIPort)
}

// Validate checks the configuration for values the pipeline cannot
// work with.
func (c Config) Validate() error {
	if c.RulerTickDistanceMM <= 0 {
		return fmt.Errorf("ruler_tick_distance_mm must be positive, got %v", c.RulerTickDistanceMM)
	}
	if c.HueLower < 0 || c.HueUpper > 180 || c.HueLower > c.HueUpper {
		return fmt.Errorf("invalid hue band [%d, %d]", c.HueLower, c.HueUpper)
	}
	if c.MinPlantAreaPx < 0 {
		return fmt.Errorf("min_plant_area_px must be non-negative, got %d", c.MinPlantAreaPx)
	}
	total := c.HealthWeightGreenness + c.HealthWeightSaturation + c.HealthWeightGrowth
	if total <= 0 {
		return fmt.Errorf("health score weights must sum to a positive value, got %v", total)
	}
	for _, z := range c.ExclusionZones {
		if z.Width <= 0 || z.Height <= 0 {
			return fmt.Errorf("exclusion zone %+v has no area", z)
		}
	}
	return nil
}

// Addr returns the host:port the API server listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
