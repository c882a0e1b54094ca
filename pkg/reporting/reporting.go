// Package reporting renders generation records into themed PDF reports and
// CSV tables.
package reporting

import (
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/internal/resources"
)

// ReportFormat represents the output format of a report
type ReportFormat string

const (
	FormatCSV ReportFormat = "csv"
	FormatPDF ReportFormat = "pdf"
)

// ContentType returns the MIME type of artifacts in format f.
func (f ReportFormat) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// Input is everything a report is composed from. Records should already be
// filtered to what the reader is looking at.
type Input struct {
	Records    []models.GenerationRecord
	Config     resources.Config
	Range      models.YearRange
	Projection *float64 // nil renders as N/A
	ChartImage []byte   // PNG or JPEG; nil omits the chart section
	Synthetic  bool     // records are sample data, not live
}

// CurrentProjection returns the value of the latest-year record that is not
// deleted, or nil when there is none.
func CurrentProjection(records []models.GenerationRecord) *float64 {
	var latest *models.GenerationRecord
	for i := range records {
		r := &records[i]
		if r.IsDeleted {
			continue
		}
		if latest == nil || r.Year > latest.Year {
			latest = r
		}
	}
	if latest == nil {
		return nil
	}
	return models.Float(latest.GenerationValue)
}
