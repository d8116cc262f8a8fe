package enums

import "fmt"

// ReportReason categorizes why a listing was flagged.
type ReportReason string

const (
	ReportReasonProhibited  ReportReason = "prohibited_item"
	ReportReasonCounterfeit ReportReason = "counterfeit"
	ReportReasonMisleading  ReportReason = "misleading"
	ReportReasonSpam        ReportReason = "spam"
	ReportReasonOther       ReportReason = "other"
)

var validReportReasons = []ReportReason{
	ReportReasonProhibited,
	ReportReasonCounterfeit,
	ReportReasonMisleading,
	ReportReasonSpam,
	ReportReasonOther,
}

// IsValid reports whether the value is a known ReportReason.
func (r ReportReason) IsValid() bool {
	for _, candidate := range validReportReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReportReason converts raw input into a ReportReason.
func ParseReportReason(value string) (ReportReason, error) {
	for _, candidate := range validReportReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report reason %q", value)
}
