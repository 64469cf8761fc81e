package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type analyzeRequest struct {
	ImageDir string `json:"image_dir"`
}

func (s *Server) handleHealthz(c *gin.Context) {
	n, err := s.store.DistinctPlantCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "plants": n})
}

func (s *Server) handleListPlants(c *gin.Context) {
	plants, err := s.store.ListPlants()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, plants)
}

func (s *Server) handleGetPlant(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	plant, err := s.store.GetPlant(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if plant == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "plant not found"})
		return
	}
	c.JSON(http.StatusOK, plant)
}

func (s *Server) handlePlantMeasurements(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ms, err := s.store.MeasurementsForPlant(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ms)
}

func (s *Server) handleGetImage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	img, err := s.store.GetImage(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if img == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "image not found"})
		return
	}
	c.JSON(http.StatusOK, img)
}

func (s *Server) handleGetImageFile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	img, err := s.store.GetImage(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	if img == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "image not found"})
		return
	}
	if _, err := os.Stat(img.Filepath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "image file not found on disk"})
		return
	}
	c.File(img.Filepath)
}

// handleUploadImage accepts a multipart photo upload, stores it under
// the image directory with a fresh name, and processes it immediately.
// An optional captured_at form field (RFC 3339) overrides the capture
// time; it defaults to now.
func (s *Server) handleUploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "missing file field"})
		return
	}

	capturedAt := time.Now().UTC()
	if v := c.PostForm("captured_at"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "captured_at must be RFC 3339"})
			return
		}
		capturedAt = ts.UTC()
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	if err := os.MkdirAll(s.cfg.ImageDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	dst := filepath.Join(s.cfg.ImageDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	in, err := s.tracker.ProcessImage(dst, capturedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"plant":       in.Plant,
		"image":       in.Image,
		"measurement": in.Measurement,
		"analysis":    in.Output,
	})
}

// handleAnalyze batch-processes the configured image directory, or the
// one named in the request body.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
	}

	dir := req.ImageDir
	if dir == "" {
		dir = s.cfg.ImageDir
	}

	summary, err := s.runner.Run(dir)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"images_processed": 0,
			"plants_found":     0,
			"errors":           []string{err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func parseID(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid id"})
		return 0, false
	}
	return uint(n), true
}
