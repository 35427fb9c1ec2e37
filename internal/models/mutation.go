package models

import (
	"encoding/json"
	"fmt"
)

// Table is the entity collection a queued mutation targets.
type Table string

// Action is the remote operation a queued mutation replays.
type Action string

const (
	TableMaterials Table = "materials"
	TableFolders   Table = "folders"
)

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// IsValid reports whether t is one of the known tables.
func (t Table) IsValid() bool {
	switch t {
	case TableMaterials, TableFolders:
		return true
	}
	return false
}

// IsValid reports whether a is one of the known actions.
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// MutationItem представляет отложенную удалённую операцию в очереди.
// Data содержит снимок сущности для create/update и {"id": ...} для delete.
type MutationItem struct {
	ID        string          `json:"id"`                   // ID table:action:entityID:nonce
	Action    Action          `json:"action"`               // Action create, update или delete
	Table     Table           `json:"table"`                // Table materials или folders
	LastError string          `json:"last_error,omitempty"` // LastError текст последней ошибки
	Data      json.RawMessage `json:"data"`                 // Data снимок сущности
	Timestamp int64           `json:"timestamp"`            // Timestamp Unix ms момента постановки в очередь
	Seq       int64           `json:"seq"`                  // Seq логические часы для упорядочивания внутри одной ms
	Retries   int             `json:"retries"`              // Retries количество неудачных попыток
}

// EntityID extracts the id field of the snapshot carried by the item.
func (i *MutationItem) EntityID() (string, error) {
	var ref struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(i.Data, &ref); err != nil {
		return "", fmt.Errorf("failed to decode mutation data: %w", err)
	}
	if ref.ID == "" {
		return "", fmt.Errorf("mutation data has no id")
	}
	return ref.ID, nil
}

// Before reports whether i was issued before other.
func (i *MutationItem) Before(other *MutationItem) bool {
	if i.Timestamp != other.Timestamp {
		return i.Timestamp < other.Timestamp
	}
	if i.Seq != other.Seq {
		return i.Seq < other.Seq
	}
	return i.ID < other.ID
}
