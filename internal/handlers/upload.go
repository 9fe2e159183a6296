package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"ui2sql-backend/internal/models"
	"ui2sql-backend/internal/upload"
	"ui2sql-backend/internal/workflow"
)

// Slack on top of the image limit for multipart framing and form fields.
const multipartOverhead = 1 << 20

// Field names probed in order for the uploaded image.
var uploadFieldNames = []string{"image", "file", "screenshot", "images", "files"}

type UploadHandler struct {
	acceptor     *upload.Acceptor
	orchestrator *workflow.Orchestrator
	logger       *slog.Logger

	// mu orders session reservation against preview swaps and removal.
	mu sync.Mutex
}

func NewUploadHandler(acceptor *upload.Acceptor, orchestrator *workflow.Orchestrator, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		acceptor:     acceptor,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Upload godoc
// @Summary     Upload a UI screenshot
// @Description Validates the image (type image/*, size within the configured limit),
// @Description creates a preview and starts analysis followed by SQL generation.
// @Description Progress is reported through GET /workflow and the /events stream.
// @Tags        upload
// @Accept      multipart/form-data
// @Produce     json
// @Param       image formData file true "UI screenshot or schema image"
// @Success     202 {object} models.UploadResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	// Early reject; the authoritative check is orchestrator.Upload below.
	if h.orchestrator.Snapshot().Processing {
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "workflow busy",
			Message: workflow.ErrBusy.Error(),
		})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.acceptor.MaxBytes()+multipartOverhead)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid file",
				Message: upload.SizeLimitError(h.acceptor.MaxBytes()).Reason,
			})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to parse multipart form",
			Message: err.Error(),
		})
		return
	}

	header := firstFile(c.Request.MultipartForm)
	if header == nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no file uploaded",
			Message: fmt.Sprintf("please provide a file with one of these field names: %v", uploadFieldNames),
		})
		return
	}

	data, err := readFile(header)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "failed to read file",
			Message: err.Error(),
		})
		return
	}

	accepted, err := h.acceptor.Validate(models.UploadedFile{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Size:      header.Size,
		Data:      data,
	})
	if err != nil {
		var vErr *upload.ValidationError
		if errors.As(err, &vErr) {
			h.logger.Info("upload rejected", "filename", header.Filename, "reason", vErr.Reason)
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid file",
				Message: vErr.Reason,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to accept file",
			Message: err.Error(),
		})
		return
	}

	// The session is reserved before the preview is swapped, so an upload
	// rejected as busy never revokes the preview of the file in flight.
	h.mu.Lock()
	// The pipeline outlives this request; Close on the orchestrator stops it.
	if _, err := h.orchestrator.Upload(context.WithoutCancel(c.Request.Context()), accepted); err != nil {
		h.mu.Unlock()
		writeWorkflowError(c, err)
		return
	}
	preview := h.acceptor.CreatePreview(accepted)
	h.orchestrator.AttachPreview(accepted.ID, preview)
	h.mu.Unlock()

	c.JSON(http.StatusAccepted, models.UploadResponse{
		FileID:   accepted.ID,
		Filename: accepted.Filename,
		Size:     accepted.Size,
		Preview:  preview,
		Status:   workflow.StateAwaitingAnalysis.String(),
	})
}

// Remove godoc
// @Summary     Remove the current preview
// @Tags        upload
// @Produce     json
// @Success     200 {object} map[string]string
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /upload [delete]
func (h *UploadHandler) Remove(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.orchestrator.Snapshot().Processing {
		writeWorkflowError(c, workflow.ErrBusy)
		return
	}
	current, ok := h.acceptor.Previews().Current()
	if !ok || !h.acceptor.Remove() {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "no preview to remove"})
		return
	}
	h.orchestrator.DetachPreview(current.ID)
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// Preview godoc
// @Summary     Fetch the preview image
// @Description Returns the image bytes, or {"data_uri": "..."} with format=data-uri.
// @Tags        upload
// @Produce     image/*
// @Produce     json
// @Param       preview_id path  string true  "Preview ID (UUID)"
// @Param       format     query string false "data-uri for an inline data: URI"
// @Success     200 {file} binary
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /previews/{preview_id} [get]
func (h *UploadHandler) Preview(c *gin.Context) {
	id := c.Param("preview_id")
	c.Header("Cache-Control", "no-store")

	switch c.Query("format") {
	case "":
		data, mediaType, ok := h.acceptor.Previews().Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "preview not found"})
			return
		}
		c.Data(http.StatusOK, mediaType, data)
	case "data-uri":
		uri, ok := h.acceptor.Previews().DataURI(id)
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "preview not found"})
			return
		}
		c.JSON(http.StatusOK, models.PreviewDataResponse{ID: id, DataURI: uri})
	default:
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid format",
			Message: "format must be empty or data-uri",
		})
	}
}

func firstFile(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	for _, name := range uploadFieldNames {
		if files := form.File[name]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	return data, nil
}
