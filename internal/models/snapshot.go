package models

// SnapshotVersion версия формата экспорта.
const SnapshotVersion = "1.0"

// Snapshot is the export document: every material, folder and preference at one moment.
type Snapshot struct {
	Materials   []Material   `json:"materials"`
	Folders     []Folder     `json:"folders"`
	Preferences []Preference `json:"preferences"`
	ExportedAt  string       `json:"exportedAt"` // RFC 3339
	Version     string       `json:"version"`
}

// EncryptedSnapshot is the envelope written by an encrypted export.
// Payload is the AES-GCM sealed plain Snapshot document.
type EncryptedSnapshot struct {
	Version   string `json:"version"`
	KDF       string `json:"kdf"`
	Salt      string `json:"salt"`    // base64
	Payload   string `json:"payload"` // base64
	Encrypted bool   `json:"encrypted"`
}

// Stats is a live count of the local namespaces.
type Stats struct {
	TotalMaterials    int `json:"totalMaterials"`
	UnsyncedMaterials int `json:"unsyncedMaterials"`
	TotalFolders      int `json:"totalFolders"`
	UnsyncedFolders   int `json:"unsyncedFolders"`
	QueueSize         int `json:"queueSize"`
	CacheSize         int `json:"cacheSize"`
}
