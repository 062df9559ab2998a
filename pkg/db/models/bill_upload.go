package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ecochamp/ecochamp-backend/pkg/enums"
)

// BillUpload tracks one uploaded utility bill through its processing
// lifecycle: pending -> processing -> completed|failed. Completed and failed
// are terminal; failed uploads are reported, not retried.
type BillUpload struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID    uuid.UUID          `gorm:"column:account_id;type:uuid;not null;index"`
	Filename     string             `gorm:"column:filename;not null"`
	ContentType  string             `gorm:"column:content_type;not null"`
	SizeBytes    int64              `gorm:"column:size_bytes;not null"`
	StorageURL   string             `gorm:"column:storage_url;not null;default:''"`
	Status       enums.UploadStatus `gorm:"column:status;type:upload_status_enum;not null;default:'pending'"`
	Extracted    json.RawMessage    `gorm:"column:extracted;type:jsonb"`
	PointsEarned int                `gorm:"column:points_earned;not null;default:0"`
	FailureNote  string             `gorm:"column:failure_note;not null;default:''"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
