package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// PDFContentType is the only content type accepted for plan attachments.
const PDFContentType = "application/pdf"

// ErrStorageDisabled is returned by Disabled for every operation.
var ErrStorageDisabled = errors.New("object storage is not configured")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// GeneratePresignedUploadURL creates a temporary URL that allows a PUT of
	// objectKey with the given content type.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows a GET
	// of objectKey.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	DeleteObject(ctx context.Context, objectKey string) error
}

// NewAttachmentID returns a fresh id for a rendered plan PDF.
func NewAttachmentID() string {
	return uuid.NewString()
}

// PlanPDFKey is the object key a plan's rendered PDF is stored under.
func PlanPDFKey(clientID, planID, attachmentID string) string {
	return fmt.Sprintf("plans/%s/%s/%s.pdf", clientID, planID, attachmentID)
}

// Disabled is used when no bucket is configured.
type Disabled struct{}

func (Disabled) GeneratePresignedUploadURL(context.Context, string, string, time.Duration) (string, error) {
	return "", ErrStorageDisabled
}

func (Disabled) GeneratePresignedDownloadURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrStorageDisabled
}

func (Disabled) DeleteObject(context.Context, string) error {
	return ErrStorageDisabled
}
