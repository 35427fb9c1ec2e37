package models

import "time"

// Folder представляет папку, содержащую документы. Папки могут быть вложенными.
type Folder struct {
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ParentFolderID string    `json:"parent_folder_id,omitempty"`
	Synced         bool      `json:"synced"`
	OfflineCreated bool      `json:"offline_created"`
}

// FolderPatch описывает частичное обновление папки.
type FolderPatch struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	ParentFolderID *string `json:"parent_folder_id,omitempty"`
}

// Apply merges the patch onto f.
func (p FolderPatch) Apply(f *Folder) {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.ParentFolderID != nil {
		f.ParentFolderID = *p.ParentFolderID
	}
}
