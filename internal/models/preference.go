package models

import (
	"encoding/json"
	"time"
)

// Preference is a user setting stored as an opaque JSON value. Last write wins.
type Preference struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"` // Unix ms
}

// CacheEntry is a time-boxed cache row. TTL and Timestamp are milliseconds.
type CacheEntry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	TTL       int64           `json:"ttl"`
}

// Expired reports whether the entry is past its TTL at now.
// An entry read exactly at timestamp+ttl is still valid.
func (e *CacheEntry) Expired(now time.Time) bool {
	return now.UnixMilli()-e.Timestamp > e.TTL
}
