package storage

import "errors"

// Common client storage errors
var (
	// ErrUninitialized indicates that the store is used before its schema setup completed
	ErrUninitialized = errors.New("storage is not initialized")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrNotFound indicates that no record exists under the requested key
	ErrNotFound = errors.New("record not found")

	// ErrUnknownNamespace indicates that the namespace is not part of the schema
	ErrUnknownNamespace = errors.New("unknown namespace")

	// ErrUnknownIndex indicates that the index is not declared for the namespace
	ErrUnknownIndex = errors.New("unknown index")

	// ErrInvalidRecord indicates that a record is not a JSON object
	ErrInvalidRecord = errors.New("record must be a JSON object")

	// ErrMissingKey indicates that a record has no string value under its key path
	ErrMissingKey = errors.New("record has no key")
)
