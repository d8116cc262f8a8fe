package reports

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/enums"
)

// ReportDTO is the API representation of a listing report.
type ReportDTO struct {
	ID         uuid.UUID          `json:"id"`
	ListingID  uuid.UUID          `json:"listing_id"`
	ReporterID uuid.UUID          `json:"reporter_id"`
	Reason     enums.ReportReason `json:"reason"`
	Note       *string            `json:"note,omitempty"`
	ResolvedAt *time.Time         `json:"resolved_at,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

func toReportDTO(report *models.Report) *ReportDTO {
	return &ReportDTO{
		ID:         report.ID,
		ListingID:  report.ListingID,
		ReporterID: report.ReporterID,
		Reason:     report.Reason,
		Note:       report.Note,
		ResolvedAt: report.ResolvedAt,
		CreatedAt:  report.CreatedAt,
	}
}
