package specification

import (
	"docuchat-be/internal/entity"

	"gorm.io/gorm"
)

type ByDocumentStatus struct {
	Status entity.DocumentStatus
}

func (s ByDocumentStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("processing_status = ?", string(s.Status))
}
