// Package batch processes a directory of plant photos in one run.
// Files are ordered by name and assigned synthetic capture times one
// hour apart, so a freshly imported series still yields growth rates.
package batch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"plant-tracker/internal/tracker"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
}

// Summary reports what a batch run did.
type Summary struct {
	ImagesProcessed int      `json:"images_processed"`
	PlantsFound     int      `json:"plants_found"`
	Errors          []string `json:"errors"`
}

// Runner processes image directories through a Tracker.
type Runner struct {
	tracker *tracker.Tracker
	log     *slog.Logger

	// Workers bounds concurrent image processing. The default of 1
	// processes files in name order, which keeps synthetic timestamps
	// aligned with each plant's growth baseline.
	Workers int
}

// New creates a batch Runner.
func New(tr *tracker.Tracker, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{tracker: tr, log: log, Workers: 1}
}

// Run processes every image under dir. Capture times are synthesized
// from the file order: the first file is stamped len(files)-1 hours
// ago, each subsequent file one hour later.
func (r *Runner) Run(dir string) (*Summary, error) {
	files, err := ListImages(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Errors: []string{}}
	if len(files) == 0 {
		r.log.Warn("no images found", "dir", dir)
		return summary, nil
	}

	base := time.Now().UTC().Add(-time.Duration(len(files)-1) * time.Hour)
	plants := make(map[string]bool)

	var mu sync.Mutex
	var g errgroup.Group
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, path := range files {
		capturedAt := base.Add(time.Duration(i) * time.Hour)
		g.Go(func() error {
			in, err := r.tracker.ProcessImage(path, capturedAt)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
				return nil
			}
			summary.ImagesProcessed++
			plants[in.Plant.QRCode] = true
			for _, stageErr := range in.Output.Errors {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", filepath.Base(path), stageErr))
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.PlantsFound = len(plants)
	r.log.Info("batch complete",
		"dir", dir,
		"images", summary.ImagesProcessed,
		"plants", summary.PlantsFound,
		"errors", len(summary.Errors))
	return summary, nil
}

// ListImages returns the image files directly under dir, sorted by
// name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
