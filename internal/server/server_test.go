package server

import (
	"bytes"
	"encoding/json"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"plant-tracker/internal/config"
	"plant-tracker/internal/store"
	"plant-tracker/internal/tracker"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.ImageDir = t.TempDir()
	tr := tracker.New(cfg, st, nil)
	return New(cfg, st, tr, nil), st
}

func doRequest(t *testing.T, s *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestListPlantsEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/plants", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetPlant(t *testing.T) {
	s, st := newTestServer(t)

	plant, err := st.GetOrCreatePlant("plant-001", nil)
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/api/plants/1", nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		var got store.Plant
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, plant.QRCode, got.QRCode)
	})

	t.Run("missing", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/api/plants/999", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/api/plants/abc", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPlantMeasurements(t *testing.T) {
	s, st := newTestServer(t)

	plant, err := st.GetOrCreatePlant("plant-001", nil)
	require.NoError(t, err)
	img, err := st.CreateImage(plant.ID, "a.jpg", "/imgs/a.jpg", time.Now())
	require.NoError(t, err)
	require.NoError(t, st.CreateMeasurement(&store.Measurement{
		ImageID: img.ID, PlantID: plant.ID, AreaPx: 1234, HealthScore: 60,
	}))

	w := doRequest(t, s, http.MethodGet, "/api/plants/1/measurements", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var ms []store.Measurement
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ms))
	require.Len(t, ms, 1)
	assert.Equal(t, 1234, ms[0].AreaPx)
}

func TestGetImageMissing(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/images/42", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetImageFileMissingOnDisk(t *testing.T) {
	s, st := newTestServer(t)

	plant, err := st.GetOrCreatePlant("plant-001", nil)
	require.NoError(t, err)
	_, err = st.CreateImage(plant.ID, "gone.jpg", "/nowhere/gone.jpg", time.Now())
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodGet, "/api/images/1/file", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImageThumbnail(t *testing.T) {
	s, st := newTestServer(t)

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(60, 180, 60, 0), 400, 600, gocv.MatTypeCV8UC3)
	defer img.Close()
	path := filepath.Join(t.TempDir(), "big.png")
	require.True(t, gocv.IMWrite(path, img))

	plant, err := st.GetOrCreatePlant("plant-001", nil)
	require.NoError(t, err)
	_, err = st.CreateImage(plant.ID, "big.png", path, time.Now())
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodGet, "/api/images/1/thumbnail", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))

	thumb, err := jpeg.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 256, thumb.Bounds().Dx())
}

func TestUploadMissingFile(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/images", bytes.NewBuffer(nil), "multipart/form-data")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadAndProcess(t *testing.T) {
	s, st := newTestServer(t)

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 300, 300, gocv.MatTypeCV8UC3)
	defer img.Close()
	for dy := -80; dy <= 80; dy++ {
		for dx := -80; dx <= 80; dx++ {
			if dx*dx+dy*dy <= 80*80 {
				x, y := 150+dx, 150+dy
				img.SetUCharAt(y, x*3+0, 40)
				img.SetUCharAt(y, x*3+1, 200)
				img.SetUCharAt(y, x*3+2, 40)
			}
		}
	}
	buf, err := gocv.IMEncode(".png", img)
	require.NoError(t, err)
	defer buf.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "upload.png")
	require.NoError(t, err)
	_, err = part.Write(buf.GetBytes())
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("captured_at", "2026-03-01T09:00:00Z"))
	require.NoError(t, mw.Close())

	w := doRequest(t, s, http.MethodPost, "/api/images", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, w.Code)

	plants, err := st.ListPlants()
	require.NoError(t, err)
	require.Len(t, plants, 1)
	assert.Equal(t, tracker.UnknownPlant, plants[0].QRCode)
	assert.Equal(t, int64(1), plants[0].ImageCount)
}

func TestAnalyzeMissingDir(t *testing.T) {
	s, _ := newTestServer(t)

	body := bytes.NewBufferString(`{"image_dir": "/definitely/not/there"}`)
	w := doRequest(t, s, http.MethodPost, "/api/analyze", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["images_processed"])
	assert.NotEmpty(t, resp["errors"])
}
