package reporting

import (
	"bytes"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/internal/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testComposer() *Composer {
	return &Composer{
		Now:          func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) },
		Organization: "Test Analytics",
	}
}

func recordsFor(key string, start, end int) []models.GenerationRecord {
	var out []models.GenerationRecord
	for y := start; y <= end; y++ {
		out = append(out, models.GenerationRecord{
			ID:              key + "-" + strconv.Itoa(y),
			ResourceType:    key,
			Year:            y,
			GenerationValue: float64(y-start)*10 + 100.5,
		})
	}
	return out
}

func inputFor(t *testing.T, key string, records []models.GenerationRecord, yr models.YearRange) Input {
	t.Helper()
	cfg, err := resources.Default().Get(key)
	require.NoError(t, err)
	return Input{
		Records:    records,
		Config:     cfg,
		Range:      yr,
		Projection: CurrentProjection(records),
	}
}

func kinds(doc *Document) []SectionKind {
	var out []SectionKind
	for _, s := range doc.Sections() {
		out = append(out, s.Kind)
	}
	return out
}

func sectionOf(t *testing.T, doc *Document, kind SectionKind) Section {
	t.Helper()
	for _, s := range doc.Sections() {
		if s.Kind == kind {
			return s
		}
	}
	t.Fatalf("section %s not found", kind)
	return Section{}
}

func TestComposeWithoutChartOmitsChartSection(t *testing.T) {
	in := inputFor(t, resources.Solar, recordsFor(resources.Solar, 2020, 2023), models.NewYearRange(2020, 2023))
	in.ChartImage = nil

	doc := testComposer().Compose(in)
	require.NotNil(t, doc)

	assert.Equal(t, []SectionKind{
		SectionHeader, SectionMetadata, SectionTable, SectionRecommendations, SectionFooter,
	}, kinds(doc))
	assert.False(t, doc.Has(SectionChart))
	assert.True(t, doc.Has(SectionTable))
	assert.True(t, doc.Has(SectionRecommendations))
	assert.GreaterOrEqual(t, doc.PageCount(), 1)
	assert.Empty(t, doc.Failed())

	data, err := doc.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestComposeWithChartImage(t *testing.T) {
	chart, err := logoPNG(resources.RGB{10, 20, 30})
	require.NoError(t, err)

	in := inputFor(t, resources.Wind, recordsFor(resources.Wind, 2020, 2023), models.NewYearRange(2020, 2023))
	in.ChartImage = chart

	doc := testComposer().Compose(in)
	assert.Equal(t, []SectionKind{
		SectionHeader, SectionMetadata, SectionChart, SectionTable, SectionRecommendations, SectionFooter,
	}, kinds(doc))
	assert.Empty(t, doc.Failed())

	_, err = doc.Bytes()
	require.NoError(t, err)
}

func TestComposeIsolatesBrokenChart(t *testing.T) {
	cases := map[string][]byte{
		"unknown format": []byte("definitely not an image"),
		"corrupt png":    append([]byte("\x89PNG\r\n\x1a\n"), []byte("garbage")...),
	}
	for name, img := range cases {
		t.Run(name, func(t *testing.T) {
			in := inputFor(t, resources.Hydro, recordsFor(resources.Hydro, 2020, 2022), models.NewYearRange(2020, 2022))
			in.ChartImage = img

			doc := testComposer().Compose(in)
			failed := doc.Failed()
			require.Len(t, failed, 1)
			assert.Equal(t, SectionChart, failed[0].Kind)
			assert.True(t, errors.Is(failed[0].Err, internalerrors.ErrRenderCapture))

			assert.True(t, doc.Has(SectionTable))
			assert.True(t, doc.Has(SectionRecommendations))
			data, err := doc.Bytes()
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}

func TestComposeEmptyRecords(t *testing.T) {
	in := inputFor(t, resources.Biomass, nil, models.NewYearRange(2020, 2023))
	assert.Nil(t, in.Projection)

	doc := testComposer().Compose(in)
	for _, kind := range []SectionKind{SectionHeader, SectionMetadata, SectionTable, SectionRecommendations} {
		assert.True(t, doc.Has(kind), "missing %s", kind)
	}
	assert.Empty(t, doc.Failed())
	assert.Equal(t, 1, doc.PageCount())
}

func TestComposeZeroValueComposer(t *testing.T) {
	var c *Composer
	doc := c.Compose(Input{})
	assert.True(t, doc.Has(SectionHeader))
	assert.GreaterOrEqual(t, doc.PageCount(), 1)
}

func TestRecommendationsPageBreakThreshold(t *testing.T) {
	short := testComposer().Compose(inputFor(t, resources.Solar,
		recordsFor(resources.Solar, 2020, 2023), models.NewYearRange(2020, 2023)))
	assert.Equal(t, 1, sectionOf(t, short, SectionRecommendations).StartPage)

	longer := testComposer().Compose(inputFor(t, resources.Solar,
		recordsFor(resources.Solar, 2010, 2021), models.NewYearRange(2010, 2021)))
	assert.Equal(t, 1, sectionOf(t, longer, SectionTable).EndPage)
	assert.Equal(t, 2, sectionOf(t, longer, SectionRecommendations).StartPage)

	// Seven rows leave more than 140mm to the page edge but less above the
	// bottom margin.
	seven := testComposer().Compose(inputFor(t, resources.Solar,
		recordsFor(resources.Solar, 2020, 2026), models.NewYearRange(2020, 2026)))
	assert.Equal(t, 1, sectionOf(t, seven, SectionTable).EndPage)
	assert.Equal(t, 2, sectionOf(t, seven, SectionRecommendations).StartPage)
}

func newTestLayout(t *testing.T, key string) *layout {
	t.Helper()
	cfg, err := resources.Default().Get(key)
	require.NoError(t, err)
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.AddPage()
	return &layout{pdf: pdf, in: Input{Config: cfg}, tr: func(s string) string { return s }}
}

func TestEnsureSpaceHonoursBottomMargin(t *testing.T) {
	l := newTestLayout(t, resources.Solar)
	_, pageHeight := l.pdf.GetPageSize()

	l.pdf.SetY(pageHeight - bottomMargin - 140)
	l.ensureSpace(140)
	assert.Equal(t, 1, l.pdf.PageCount())

	l.pdf.SetY(pageHeight - bottomMargin - 139)
	l.ensureSpace(140)
	assert.Equal(t, 2, l.pdf.PageCount())
	assert.InDelta(t, pageMargin, l.pdf.GetY(), 0.01)
}

func TestSourcesRowsStayOnOnePage(t *testing.T) {
	l := newTestLayout(t, resources.Wind)
	_, pageHeight := l.pdf.GetPageSize()
	usable := 210 - 2*pageMargin

	l.pdf.SetY(pageHeight - bottomMargin - 10)
	l.sources(l.in.Config, usable)

	require.NoError(t, l.pdf.Error())
	assert.Equal(t, 2, l.pdf.PageCount())
	assert.Less(t, l.pdf.GetY(), 100.0)
}

func TestTableFlowsAcrossPages(t *testing.T) {
	records := recordsFor(resources.Geothermal, 1900, 2000)
	doc := testComposer().Compose(inputFor(t, resources.Geothermal, records, models.NewYearRange(1900, 2000)))

	table := sectionOf(t, doc, SectionTable)
	assert.Equal(t, 1, table.StartPage)
	assert.GreaterOrEqual(t, table.EndPage, 3)
	assert.GreaterOrEqual(t, doc.PageCount(), table.EndPage)

	footer := sectionOf(t, doc, SectionFooter)
	assert.Equal(t, 1, footer.StartPage)
	assert.Equal(t, doc.PageCount(), footer.EndPage)

	pages := doc.Pages()
	require.Len(t, pages, doc.PageCount())
	assert.Contains(t, pages[0].Sections, SectionHeader)
	assert.Contains(t, pages[1].Sections, SectionTable)
	assert.NotContains(t, pages[1].Sections, SectionHeader)
}

func TestSectionRecoversPanicAndClearsError(t *testing.T) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	l := &layout{pdf: pdf, tr: func(s string) string { return s }}
	doc := &Document{}

	l.section(doc, SectionMetadata, func() error { panic("font metrics unavailable") })
	l.section(doc, SectionTable, func() error {
		pdf.SetError(errors.New("sticky"))
		return nil
	})
	l.section(doc, SectionRecommendations, func() error { return nil })

	sections := doc.Sections()
	require.Len(t, sections, 3)
	assert.ErrorContains(t, sections[0].Err, "font metrics unavailable")
	assert.ErrorContains(t, sections[1].Err, "sticky")
	assert.NoError(t, sections[2].Err)
	assert.False(t, pdf.Err())
}

func TestCurrentProjection(t *testing.T) {
	assert.Nil(t, CurrentProjection(nil))

	records := []models.GenerationRecord{
		{Year: 2021, GenerationValue: 10},
		{Year: 2024, GenerationValue: 99, IsDeleted: true},
		{Year: 2023, GenerationValue: 30},
		{Year: 2022, GenerationValue: 20},
	}
	got := CurrentProjection(records)
	require.NotNil(t, got)
	assert.Equal(t, 30.0, *got)
}

func TestImageTypeOf(t *testing.T) {
	typ, err := imageTypeOf([]byte("\x89PNG\r\n\x1a\nrest"))
	require.NoError(t, err)
	assert.Equal(t, "PNG", typ)

	typ, err = imageTypeOf([]byte{0xff, 0xd8, 0xff, 0xe0})
	require.NoError(t, err)
	assert.Equal(t, "JPG", typ)

	_, err = imageTypeOf([]byte("GIF89a"))
	assert.Error(t, err)
}

func TestReportFormatContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
	assert.Equal(t, "application/octet-stream", ReportFormat("xlsx").ContentType())
}
