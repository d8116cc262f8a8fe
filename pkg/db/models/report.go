package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// Report flags a listing for admin review. One report per (reporter,
// listing) pair.
type Report struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ListingID  uuid.UUID          `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_reports_reporter_listing"`
	ReporterID uuid.UUID          `gorm:"column:reporter_id;type:uuid;not null;uniqueIndex:idx_reports_reporter_listing"`
	Reason     enums.ReportReason `gorm:"column:reason;type:report_reason;not null"`
	Note       *string            `gorm:"column:note;type:text"`
	ResolvedAt *time.Time         `gorm:"column:resolved_at"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}
