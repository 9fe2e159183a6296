package upload

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"ui2sql-backend/internal/models"
)

const (
	DefaultMaxBytes int64 = 10 * 1024 * 1024

	bytesPerMiB = 1024 * 1024
)

// ValidationError is returned by Accept when a file must not enter the pipeline.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// SizeLimitError is the rejection for files larger than maxBytes.
func SizeLimitError(maxBytes int64) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf("exceeds size limit of %s MiB", formatMiB(maxBytes))}
}

// Acceptor validates uploads and keeps the preview of the current one.
type Acceptor struct {
	maxBytes int64
	previews *PreviewStore
}

func NewAcceptor(maxBytes int64, previews *PreviewStore) *Acceptor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if previews == nil {
		previews = NewPreviewStore("")
	}
	return &Acceptor{
		maxBytes: maxBytes,
		previews: previews,
	}
}

func (a *Acceptor) MaxBytes() int64 {
	return a.maxBytes
}

func (a *Acceptor) Previews() *PreviewStore {
	return a.previews
}

// Accept validates the file and swaps in a fresh preview for it. A rejected
// file leaves the current preview untouched.
func (a *Acceptor) Accept(file models.UploadedFile) (*models.AcceptedFile, error) {
	accepted, err := a.Validate(file)
	if err != nil {
		return nil, err
	}
	a.CreatePreview(accepted)
	return accepted, nil
}

// Validate checks type and size without touching the preview store. Callers
// that must reserve the workflow first follow it with CreatePreview.
func (a *Acceptor) Validate(file models.UploadedFile) (*models.AcceptedFile, error) {
	mediaType := resolveMediaType(file)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, &ValidationError{Reason: "not an image"}
	}
	if file.Size > a.maxBytes {
		return nil, SizeLimitError(a.maxBytes)
	}

	return &models.AcceptedFile{
		ID:        uuid.New().String(),
		Filename:  file.Filename,
		MediaType: mediaType,
		Size:      file.Size,
		Data:      file.Data,
	}, nil
}

// CreatePreview revokes the current preview and attaches a new one to file.
func (a *Acceptor) CreatePreview(file *models.AcceptedFile) *models.Preview {
	file.Preview = a.previews.Replace(file.Data, file.MediaType)
	return file.Preview
}

// Remove releases the preview of the current file, if any.
func (a *Acceptor) Remove() bool {
	return a.previews.RevokeCurrent()
}

// resolveMediaType trusts the declared type unless it is missing or generic,
// in which case the content is sniffed.
func resolveMediaType(file models.UploadedFile) string {
	declared := strings.ToLower(strings.TrimSpace(file.MediaType))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if len(file.Data) == 0 {
		return declared
	}
	return mimetype.Detect(file.Data).String()
}

func formatMiB(n int64) string {
	return strconv.FormatFloat(float64(n)/bytesPerMiB, 'f', -1, 64)
}
