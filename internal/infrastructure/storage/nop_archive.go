package storage

import (
	"context"

	"github.com/printdesk/backend/internal/domain/printing"
)

// NopArchive is used when archiving is disabled
type NopArchive struct{}

// Archive does nothing
func (NopArchive) Archive(ctx context.Context, doc *printing.Document) error {
	return nil
}

var _ printing.DocumentArchive = NopArchive{}
