package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"feedserv/src/app"
	"feedserv/src/logger"
	"feedserv/src/storage"

	"github.com/gin-gonic/gin"
)

type (
	// Ingester stores uploaded images and returns their public URLs.
	Ingester interface {
		Ingest(ctx context.Context, files []app.File) ([]string, error)
	}

	// EntryService registers and lists entries.
	EntryService interface {
		Register(ctx context.Context, req app.EntryRequest) (app.Registration, error)
		List(ctx context.Context) ([]app.Entry, error)
	}

	AppHandler struct {
		pipeline     Ingester
		entries      EntryService
		staticDir    string
		maxBodyBytes int64
		log          *logger.Logger
	}
)

const imagesField = "images"

func NewHandler(pipeline Ingester, entries EntryService, staticDir string, maxBodyBytes int64, log *logger.Logger) *AppHandler {
	return &AppHandler{
		pipeline:     pipeline,
		entries:      entries,
		staticDir:    staticDir,
		maxBodyBytes: maxBodyBytes,
		log:          log.WithFields(map[string]any{"component": "handler"}),
	}
}

func (a *AppHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (a *AppHandler) Root(c *gin.Context) {
	c.File(filepath.Join(a.staticDir, "index.html"))
}

func (a *AppHandler) UploadImages(c *gin.Context) {
	if a.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxBodyBytes)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"message": fmt.Sprintf("Upload failed: request larger than %d bytes", tooLarge.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No images provided"})
		return
	}
	headers := form.File[imagesField]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No images provided"})
		return
	}

	files := make([]app.File, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Upload failed: " + err.Error()})
			return
		}
		files = append(files, app.File{Filename: fh.Filename, Data: data})
	}

	urls, err := a.pipeline.Ingest(c.Request.Context(), files)
	if err != nil {
		a.log.Error("upload failed", "files", len(files), "error", err)
		c.JSON(uploadStatus(err), gin.H{"success": false, "message": "Upload failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"urls":    urls,
		"isAlbum": len(urls) > 1,
	})
}

func (a *AppHandler) AddEntry(c *gin.Context) {
	var req app.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body: " + err.Error()})
		return
	}

	reg, err := a.entries.Register(c.Request.Context(), req)
	if err != nil {
		var invalid *app.ValidationError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing required fields"})
			return
		}
		a.log.Error("add entry failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to add entry: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Entry added successfully!",
		"id":      reg.ID,
		"isAlbum": reg.IsAlbum,
	})
}

func (a *AppHandler) GetEntries(c *gin.Context) {
	entries, err := a.entries.List(c.Request.Context())
	if err != nil {
		a.log.Error("get entries failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get entries: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}

// uploadStatus maps credential failures to 502 since the fault is upstream.
func uploadStatus(err error) int {
	var authErr *storage.AuthError
	if errors.As(err, &authErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
