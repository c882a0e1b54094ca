package reporting

import (
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/internal/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCSVThreeRecords(t *testing.T) {
	records := []models.GenerationRecord{
		{Year: 2020, GenerationValue: 100},
		{Year: 2021, GenerationValue: 110.256},
		{Year: 2022, GenerationValue: 120.5},
	}

	out, err := ToCSV(records, []Column{YearColumn, ValueColumn})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Year,Generation (GWh)", lines[0])
	assert.Equal(t, "2020,100.00", lines[1])
	assert.Equal(t, "2021,110.26", lines[2])
	assert.Equal(t, "2022,120.50", lines[3])
}

func TestToCSVRoundTrip(t *testing.T) {
	var records []models.GenerationRecord
	for i := 0; i < 25; i++ {
		records = append(records, models.GenerationRecord{
			Year:            1990 + i,
			GenerationValue: float64(i)*3.14159 + 0.005,
		})
	}

	out, err := ToCSV(records, []Column{YearColumn, ValueColumn})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(records)+1)

	for i, rec := range records {
		row := rows[i+1]
		year, err := strconv.Atoi(row[0])
		require.NoError(t, err)
		assert.Equal(t, rec.Year, year)
		assert.Equal(t, strconv.FormatFloat(rec.GenerationValue, 'f', 2, 64), row[1])
	}
}

func TestToCSVEscapesSpecialCharacters(t *testing.T) {
	note := Column{
		Header: "Note",
		Format: func(r models.GenerationRecord) string { return r.ID },
	}
	records := []models.GenerationRecord{
		{ID: `a,"b"`},
		{ID: "line\nbreak"},
		{ID: "plain"},
	}

	out, err := ToCSV(records, []Column{note})
	require.NoError(t, err)
	assert.Contains(t, out, `"a,""b"""`)
	assert.Contains(t, out, "\"line\nbreak\"")
	assert.Contains(t, out, "\nplain\n")

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, `a,"b"`, rows[1][0])
	assert.Equal(t, "line\nbreak", rows[2][0])
}

func TestColumnsForExtendedType(t *testing.T) {
	cfg, err := resources.Default().Get(resources.Wind)
	require.NoError(t, err)

	cols := ColumnsFor(cfg)
	var headers []string
	for _, c := range cols {
		headers = append(headers, c.Header)
	}
	assert.Equal(t, []string{"Year", "Generation (GWh)", "Non-Renewable Energy (GWh)", "Population", "GDP", "Date Added"}, headers)

	rec := models.GenerationRecord{
		Year:            2023,
		GenerationValue: 5,
		NonRenewable:    models.Float(400.126),
		DateAdded:       time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
	out, err := ToCSV([]models.GenerationRecord{rec}, cols)
	require.NoError(t, err)
	assert.Contains(t, out, "2023,5.00,400.13,,,3/5/2024\n")
}

func TestColumnsForMinimalType(t *testing.T) {
	cfg, err := resources.Default().Get(resources.Solar)
	require.NoError(t, err)
	assert.Len(t, ColumnsFor(cfg), 3)
	assert.Equal(t, "", DateColumn.Format(models.GenerationRecord{}))
}

func TestToCSVRequiresColumns(t *testing.T) {
	_, err := ToCSV(nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, internalerrors.ErrSerialization))
}
