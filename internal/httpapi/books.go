package httpapi

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safar/bookswap/internal/catalog"
	"github.com/safar/bookswap/internal/search"
)

const defaultMaxFileSize = 5 << 20

type BookHandler struct {
	Catalog     Catalog
	Purchases   Purchases
	MaxFileSize int64
	Logger      *slog.Logger
}

func (h *BookHandler) Search(c *gin.Context) {
	criteria := search.ParseCriteria(c.Request.URL.Query())

	page, err := h.Catalog.Search(c.Request.Context(), criteria)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	respondJSON(c, http.StatusOK, page)
}

func (h *BookHandler) Get(c *gin.Context) {
	ref := search.ParsePoint(c.Query("lat"), c.Query("lng"))

	listing, err := h.Catalog.Get(c.Request.Context(), c.Param("id"), ref)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	respondJSON(c, http.StatusOK, listing)
}

func (h *BookHandler) Create(c *gin.Context) {
	in := catalog.NewListing{
		Title:       c.PostForm("title"),
		Author:      c.PostForm("author"),
		ISBN:        c.PostForm("isbn"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
		Condition:   c.PostForm("condition"),
		Type:        c.PostForm("type"),
		City:        c.PostForm("city"),
		Latitude:    c.PostForm("latitude"),
		Longitude:   c.PostForm("longitude"),
	}

	if form, err := c.MultipartForm(); err == nil {
		in.Images = h.readImages(form.File["images"])
	}

	listing, err := h.Catalog.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	respondJSON(c, http.StatusCreated, listing)
}

// readImages loads the uploaded files, skipping any that are empty, too large or unreadable.
func (h *BookHandler) readImages(files []*multipart.FileHeader) []catalog.Image {
	maxSize := h.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxFileSize
	}

	images := make([]catalog.Image, 0, len(files))
	for _, fh := range files {
		if fh.Size == 0 {
			continue
		}
		if fh.Size > maxSize {
			h.Logger.Warn("image skipped: too large", "filename", fh.Filename, "size", fh.Size)
			continue
		}

		data, err := readFile(fh, maxSize)
		if err != nil {
			h.Logger.Warn("image skipped: unreadable", "filename", fh.Filename, "error", err)
			continue
		}

		images = append(images, catalog.Image{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return images
}

func readFile(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, maxSize))
}

func (h *BookHandler) Buy(c *gin.Context) {
	req, err := h.Purchases.Request(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}

	respondJSON(c, http.StatusOK, req)
}
