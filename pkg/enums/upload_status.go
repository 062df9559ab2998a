package enums

import "fmt"

// UploadStatus maps to the upload_status_enum enum in Postgres.
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

var validUploadStatuses = []UploadStatus{
	UploadStatusPending,
	UploadStatusProcessing,
	UploadStatusCompleted,
	UploadStatusFailed,
}

// IsValid reports whether the value matches the canonical upload status enum.
func (s UploadStatus) IsValid() bool {
	for _, candidate := range validUploadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

// ParseUploadStatus converts raw input into UploadStatus.
func ParseUploadStatus(value string) (UploadStatus, error) {
	for _, candidate := range validUploadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload status %q", value)
}
