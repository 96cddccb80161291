package mapper

import (
	"encoding/json"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/model"

	"gorm.io/datatypes"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}
	var metadata map[string]interface{}
	if len(d.Metadata) > 0 {
		// Malformed metadata is dropped rather than failing the read.
		_ = json.Unmarshal(d.Metadata, &metadata)
	}
	return &entity.Document{
		Id:               d.Id,
		UserId:           d.UserId,
		Filename:         d.Filename,
		OriginalFilename: d.OriginalFilename,
		FileSize:         d.FileSize,
		FileType:         d.FileType,
		Status:           entity.DocumentStatus(d.ProcessingStatus),
		ChunkCount:       d.ChunkCount,
		TotalPages:       d.TotalPages,
		CollectionId:     d.CollectionId,
		Metadata:         metadata,
		UploadedAt:       d.UploadDate,
		UpdatedAt:        d.UpdatedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}
	var metadata datatypes.JSON
	if d.Metadata != nil {
		if raw, err := json.Marshal(d.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}
	return &model.Document{
		Id:               d.Id,
		UserId:           d.UserId,
		Filename:         d.Filename,
		OriginalFilename: d.OriginalFilename,
		FileSize:         d.FileSize,
		FileType:         d.FileType,
		ProcessingStatus: string(d.Status),
		ChunkCount:       d.ChunkCount,
		TotalPages:       d.TotalPages,
		CollectionId:     d.CollectionId,
		Metadata:         metadata,
		UploadDate:       d.UploadedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func (m *DocumentMapper) ToEntities(docs []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
