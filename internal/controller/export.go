package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/rcourtman/energy-reports/internal/capture"
	"github.com/rcourtman/energy-reports/internal/logging"
	"github.com/rcourtman/energy-reports/internal/metrics"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/pkg/reporting"
)

// Artifact is a finished export ready for delivery.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

func artifactName(key, kind string, yr models.YearRange, format reporting.ReportFormat) string {
	return fmt.Sprintf("%s_%s_%d-%d.%s", key, kind, yr.Start, yr.End, format)
}

// ExportCSV serializes the filtered records.
func (c *Controller) ExportCSV() (Artifact, error) {
	started := time.Now()
	snap := c.Snapshot()

	out, err := reporting.ToCSV(snap.Filtered(), reporting.ColumnsFor(c.cfg))
	metrics.RecordExport(c.cfg.Key, string(reporting.FormatCSV), err == nil, time.Since(started))
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Name:        artifactName(c.cfg.Key, "data", snap.Range, reporting.FormatCSV),
		ContentType: reporting.FormatCSV.ContentType(),
		Data:        []byte(out),
	}, nil
}

// ExportPDF composes the report for the filtered records. chart may be nil;
// a chart that cannot be captured in time is left out of the report.
func (c *Controller) ExportPDF(ctx context.Context, chart capture.Ref) (Artifact, error) {
	started := time.Now()
	snap := c.Snapshot()
	records := snap.Filtered()

	image := c.opts.Capturer.Capture(ctx, chart, capture.Options{Timeout: c.opts.CaptureTimeout})

	doc := c.opts.Composer.Compose(reporting.Input{
		Records:    records,
		Config:     c.cfg,
		Range:      snap.Range,
		Projection: reporting.CurrentProjection(records),
		ChartImage: image,
		Synthetic:  snap.Synthetic,
	})

	data, err := doc.Bytes()
	metrics.RecordExport(c.cfg.Key, string(reporting.FormatPDF), err == nil, time.Since(started))
	if err != nil {
		return Artifact{}, err
	}

	logger := logging.FromContext(ctx)
	logger.Debug().
		Str("resource", c.cfg.Key).
		Int("pages", doc.PageCount()).
		Int("failedSections", len(doc.Failed())).
		Bool("chart", doc.Has(reporting.SectionChart)).
		Msg("Composed PDF report")

	return Artifact{
		Name:        artifactName(c.cfg.Key, "report", snap.Range, reporting.FormatPDF),
		ContentType: reporting.FormatPDF.ContentType(),
		Data:        data,
	}, nil
}
