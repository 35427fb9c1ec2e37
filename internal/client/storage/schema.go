package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Namespace is an independent record collection inside the local store.
type Namespace string

const (
	NamespaceMaterials   Namespace = "materials"
	NamespaceFolders     Namespace = "folders"
	NamespaceQueue       Namespace = "mutation_queue"
	NamespacePreferences Namespace = "preferences"
	NamespaceCache       Namespace = "cache"
)

// SchemaVersion is bumped whenever namespaces or indexes change.
const SchemaVersion = 1

// Schema describes one namespace: where the key lives in a record and which
// top-level fields are indexed.
type Schema struct {
	Namespace Namespace
	KeyPath   string
	Indexes   []string
}

// Schemas is the full local store layout.
var Schemas = []Schema{
	{Namespace: NamespaceMaterials, KeyPath: "id", Indexes: []string{"synced", "folder_id", "file_type"}},
	{Namespace: NamespaceFolders, KeyPath: "id", Indexes: []string{"synced", "parent_folder_id"}},
	{Namespace: NamespaceQueue, KeyPath: "id", Indexes: []string{"table", "action"}},
	{Namespace: NamespacePreferences, KeyPath: "key"},
	{Namespace: NamespaceCache, KeyPath: "key"},
}

// Lookup returns the schema of ns.
func Lookup(ns Namespace) (Schema, error) {
	for _, s := range Schemas {
		if s.Namespace == ns {
			return s, nil
		}
	}
	return Schema{}, fmt.Errorf("%w: %s", ErrUnknownNamespace, ns)
}

// HasIndex reports whether the namespace declares index name.
func (s Schema) HasIndex(name string) bool {
	for _, idx := range s.Indexes {
		if idx == name {
			return true
		}
	}
	return false
}

// EncodedRecord is a record ready to be written by a driver.
// IndexValues holds the compact JSON of every indexed field that is present and not null.
type EncodedRecord struct {
	IndexValues map[string][]byte
	Key         string
	Value       []byte
}

// Encode serializes record and extracts its key and index values.
// record may be a struct, a map, or already encoded JSON ([]byte / json.RawMessage).
func (s Schema) Encode(record any) (*EncodedRecord, error) {
	var value []byte
	switch r := record.(type) {
	case json.RawMessage:
		value = r
	case []byte:
		value = r
	default:
		data, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal record: %w", err)
		}
		value = data
	}

	compact := &bytes.Buffer{}
	if err := json.Compact(compact, value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	fields, err := s.fields(compact.Bytes())
	if err != nil {
		return nil, err
	}

	var key string
	rawKey, ok := fields[s.KeyPath]
	if !ok || json.Unmarshal(rawKey, &key) != nil || key == "" {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingKey, s.Namespace, s.KeyPath)
	}

	return &EncodedRecord{
		Key:         key,
		Value:       compact.Bytes(),
		IndexValues: s.indexValues(fields),
	}, nil
}

// IndexValues extracts index values from an already stored record.
func (s Schema) IndexValues(value []byte) (map[string][]byte, error) {
	fields, err := s.fields(value)
	if err != nil {
		return nil, err
	}
	return s.indexValues(fields), nil
}

func (s Schema) fields(value []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil || fields == nil {
		return nil, ErrInvalidRecord
	}
	return fields, nil
}

func (s Schema) indexValues(fields map[string]json.RawMessage) map[string][]byte {
	values := make(map[string][]byte, len(s.Indexes))
	for _, idx := range s.Indexes {
		raw, ok := fields[idx]
		if !ok || bytes.Equal(raw, []byte("null")) {
			continue
		}
		normalized, err := normalizeJSON(raw)
		if err != nil {
			continue
		}
		values[idx] = normalized
	}
	return values
}

// IndexKey encodes a lookup value the same way Encode encodes indexed fields.
func IndexKey(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal index value: %w", err)
	}
	normalized, err := normalizeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize index value: %w", err)
	}
	return normalized, nil
}

// normalizeJSON приводит JSON значение к каноническому виду json.Marshal:
// одинаковые значения с разным экранированием или записью чисел дают одни и те же байты
func normalizeJSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
