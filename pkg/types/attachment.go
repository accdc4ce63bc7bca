package types

import "time"

// Attachment is the metadata row of a file stored against an entry.
type Attachment struct {
	// AttachmentID is a UUID v7, generated on upload.
	AttachmentID string `json:"id"`

	// OwnerID is the account that owns the file.
	OwnerID string `json:"owner_id"`

	// EntryID is the entry the file was uploaded for.
	EntryID string `json:"entry_id"`

	// StoredPath is <app folder>/<entry date>/<stored name>, relative to the
	// owner's blob space.
	StoredPath string `json:"stored_path"`

	// OriginalName is the file name as supplied by the user.
	OriginalName string `json:"original_name"`

	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}
