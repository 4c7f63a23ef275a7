package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/printdesk/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const defaultListLimit = 100

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Save inserts or updates a document record. A missing ID or creation time
// is filled in.
func (r *GormDocumentRepository) Save(ctx context.Context, record *printing.DocumentRecord) error {
	if record == nil || record.UniqueName == "" {
		return shared.NewDomainError("INVALID_INPUT", "document record requires a unique name")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Save(models.DocumentModelFromDomain(record)).Error
}

// FindByName finds a document record by its unique name
func (r *GormDocumentRepository) FindByName(ctx context.Context, uniqueName string) (*printing.DocumentRecord, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).First(&model, "unique_name = ?", uniqueName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns the most recent document records, newest first
func (r *GormDocumentRepository) List(ctx context.Context, limit int) ([]printing.DocumentRecord, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	var docModels []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&docModels).Error; err != nil {
		return nil, err
	}

	records := make([]printing.DocumentRecord, len(docModels))
	for i, model := range docModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// DeleteByName removes a document record; a missing record is not an error
func (r *GormDocumentRepository) DeleteByName(ctx context.Context, uniqueName string) error {
	return r.db.WithContext(ctx).
		Where("unique_name = ?", uniqueName).
		Delete(&models.DocumentModel{}).Error
}

// DeleteOlderThan removes records created before cutoff and reports how many
func (r *GormDocumentRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.DocumentModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormDocumentRepository implements DocumentRepository
var _ printing.DocumentRepository = (*GormDocumentRepository)(nil)
