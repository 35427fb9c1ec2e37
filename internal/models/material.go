package models

import (
	"encoding/json"
	"time"
)

// Material представляет документ, который клиент хранит локально и синхронизирует с сервером.
// Content передаётся как есть: движок его не интерпретирует.
type Material struct {
	CreatedAt      time.Time       `json:"created_at"`          // CreatedAt время первого сохранения
	UpdatedAt      time.Time       `json:"updated_at"`          // UpdatedAt время последнего локального изменения
	ID             string          `json:"id"`                  // ID уникальный идентификатор (UUID, если не задан)
	Title          string          `json:"title"`               // Title заголовок документа
	FileType       string          `json:"file_type"`           // FileType тип файла, например "pdf", "md"
	FolderID       string          `json:"folder_id,omitempty"` // FolderID папка, в которой лежит документ
	Content        json.RawMessage `json:"content,omitempty"`   // Content непрозрачное содержимое
	Synced         bool            `json:"synced"`              // Synced true после подтверждения сервером
	OfflineCreated bool            `json:"offline_created"`     // OfflineCreated первое сохранение было без сети
}

// MaterialPatch описывает частичное обновление документа.
// nil поля не изменяются.
type MaterialPatch struct {
	Title    *string         `json:"title,omitempty"`
	FileType *string         `json:"file_type,omitempty"`
	FolderID *string         `json:"folder_id,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
}

// Apply merges the patch onto m.
func (p MaterialPatch) Apply(m *Material) {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.FileType != nil {
		m.FileType = *p.FileType
	}
	if p.FolderID != nil {
		m.FolderID = *p.FolderID
	}
	if p.Content != nil {
		m.Content = append(json.RawMessage(nil), p.Content...)
	}
}
