package server

import (
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

const thumbnailWidth = 256

// handleImageThumbnail serves a downscaled JPEG preview of the stored
// image, sized for gallery views.
func (s *Server) handleImageThumbnail(c *gin.Context) {
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

	f, err := os.Open(img.Filepath)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "image file not found on disk"})
		return
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "cannot decode image"})
		return
	}

	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w > thumbnailWidth {
		h = h * thumbnailWidth / w
		w = thumbnailWidth
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
	_ = jpeg.Encode(c.Writer, dst, &jpeg.Options{Quality: 80})
}
