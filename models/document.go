package models

// DocumentFolder groups a client's uploaded documents. Folders form a tree
// via ParentID; deleting a folder soft-deletes the whole subtree.
type DocumentFolder struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	Name     string  `gorm:"not null" json:"name"`
	LeadID   string  `gorm:"index;not null" json:"lead_id"`
	ParentID *string `gorm:"index" json:"parent_id,omitempty"`

	Timestamps
}

// Document is an uploaded client file (W-2, 1099, prior return, ...).
type Document struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	LeadID   string  `gorm:"index;not null" json:"lead_id"`
	FolderID *string `gorm:"index" json:"folder_id,omitempty"`

	FileName    string `gorm:"not null" json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	StorageKey  string `gorm:"not null" json:"storage_key"` // R2 object key or local path
	URL         string `json:"url,omitempty"`

	UploadedBy string `json:"uploaded_by,omitempty"`

	Timestamps
}
