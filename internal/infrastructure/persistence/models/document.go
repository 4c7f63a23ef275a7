package models

import (
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
)

// DocumentModel is the GORM model for the documents table
type DocumentModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	UniqueName   string    `gorm:"column:unique_name;type:varchar(255);not null;uniqueIndex"`
	OriginalName string    `gorm:"column:original_name;type:varchar(255);not null"`
	SourceName   string    `gorm:"column:source_name;type:varchar(255)"`
	Extension    string    `gorm:"type:varchar(16);not null"`
	SizeBytes    int64     `gorm:"column:size_bytes;not null;default:0"`
	Pages        int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"not null;index"`
}

// TableName returns the table name for DocumentModel
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts DocumentModel to a domain DocumentRecord
func (m *DocumentModel) ToDomain() *printing.DocumentRecord {
	return &printing.DocumentRecord{
		ID:           m.ID,
		UniqueName:   m.UniqueName,
		OriginalName: m.OriginalName,
		SourceName:   m.SourceName,
		Extension:    m.Extension,
		SizeBytes:    m.SizeBytes,
		Pages:        m.Pages,
		CreatedAt:    m.CreatedAt,
	}
}

// DocumentModelFromDomain creates a DocumentModel from a domain DocumentRecord
func DocumentModelFromDomain(r *printing.DocumentRecord) *DocumentModel {
	return &DocumentModel{
		ID:           r.ID,
		UniqueName:   r.UniqueName,
		OriginalName: r.OriginalName,
		SourceName:   r.SourceName,
		Extension:    r.Extension,
		SizeBytes:    r.SizeBytes,
		Pages:        r.Pages,
		CreatedAt:    r.CreatedAt,
	}
}
