package reporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/internal/resources"
)

// DateLayout is the short date format used in exported tables.
const DateLayout = "1/2/2006"

// Column is one exported table column.
type Column struct {
	Header string
	Format func(models.GenerationRecord) string
}

var (
	YearColumn = Column{
		Header: "Year",
		Format: func(r models.GenerationRecord) string { return strconv.Itoa(r.Year) },
	}

	ValueColumn = Column{
		Header: "Generation (GWh)",
		Format: func(r models.GenerationRecord) string { return formatValue(r.GenerationValue) },
	}

	DateColumn = Column{
		Header: "Date Added",
		Format: func(r models.GenerationRecord) string {
			if r.DateAdded.IsZero() {
				return ""
			}
			return r.DateAdded.Format(DateLayout)
		},
	}
)

// ExtraColumn exports one of the optional extended fields. Missing values
// are left empty.
func ExtraColumn(field resources.Field) Column {
	return Column{
		Header: field.Label(),
		Format: func(r models.GenerationRecord) string {
			v := field.Value(r)
			if v == nil {
				return ""
			}
			return formatValue(*v)
		},
	}
}

// ColumnsFor returns the CSV columns for a resource type.
func ColumnsFor(cfg resources.Config) []Column {
	cols := tableColumns(cfg)
	return append(cols, DateColumn)
}

// tableColumns are the columns shown in the PDF table.
func tableColumns(cfg resources.Config) []Column {
	cols := []Column{YearColumn, ValueColumn}
	for _, f := range cfg.ExtraFields {
		cols = append(cols, ExtraColumn(f))
	}
	return cols
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// ToCSV writes a header row from columns and one row per record.
func ToCSV(records []models.GenerationRecord, columns []Column) (string, error) {
	if len(columns) == 0 {
		return "", internalerrors.Serialization("export_csv", "", fmt.Errorf("no columns"))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Header
	}
	if err := w.Write(header); err != nil {
		return "", internalerrors.Serialization("export_csv", "", fmt.Errorf("write CSV header: %w", err))
	}

	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = col.Format(rec)
		}
		if err := w.Write(row); err != nil {
			return "", internalerrors.Serialization("export_csv", rec.ResourceType, fmt.Errorf("write CSV row for %d: %w", rec.Year, err))
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", internalerrors.Serialization("export_csv", "", fmt.Errorf("CSV write error: %w", err))
	}
	return buf.String(), nil
}
