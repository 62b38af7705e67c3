package driving

import (
	"context"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// IngestService stores content into the vector backend.
type IngestService interface {
	// IngestText chunks the text at sentence boundaries and writes one
	// StoredItem per chunk, sharing the base URL with a #chunk-N suffix.
	// The returned results are per item; partial failure is expected.
	IngestText(ctx context.Context, url, text string, metadata map[string]any) ([]domain.WriteResult, error)

	// IngestImage writes one image item with its supplied analysis
	// metadata (classification, OCR text, EXIF).
	IngestImage(ctx context.Context, url string, image []byte, metadata map[string]any) (domain.WriteResult, error)
}
