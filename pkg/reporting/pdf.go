package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/metrics"
	"github.com/rcourtman/energy-reports/internal/resources"
	"github.com/rs/zerolog/log"
)

var (
	colorTextDark  = [3]int{44, 62, 80}    // Dark text
	colorTextMuted = [3]int{127, 140, 141} // Muted text
	colorGridLine  = [3]int{220, 220, 220} // Rules
	colorWarning   = [3]int{211, 84, 0}    // Sample-data notice
)

// Layout in millimetres on A4.
const (
	pageMargin     = 20.0
	bottomMargin   = 25.0
	headerHeight   = 40.0
	logoSize       = 22.0
	footerLogoSize = 10.0
	chartWidth     = 170.0
	chartHeight    = 85.0
	yearColWidth   = 30.0
	tableRowHeight = 7.0
	tableBreakY    = 260.0

	// Recommendations start on a new page when less than this is left.
	recommendationsMinSpace = 140.0
)

const (
	logoImage  = "report-logo"
	chartImage = "report-chart"
)

// Composer lays out generation reports. The zero value is usable.
type Composer struct {
	Now          func() time.Time
	Organization string // copyright holder
}

// NewComposer creates a composer using the wall clock.
func NewComposer() *Composer {
	return &Composer{Now: time.Now, Organization: "Renewable Energy Analytics"}
}

// layout carries the per-document drawing state.
type layout struct {
	pdf       *fpdf.Fpdf
	in        Input
	tr        func(string) string
	now       time.Time
	org       string
	logoState int // 0 unknown, 1 registered, -1 unavailable
}

// Compose builds a report. It never panics; sections that fail are recorded
// on the document and skipped. Output errors surface from Document.Bytes.
func (c *Composer) Compose(in Input) (doc *Document) {
	doc = &Document{}
	defer func() {
		if r := recover(); r != nil {
			doc.err = internalerrors.Serialization("export_pdf", in.Config.Key, fmt.Errorf("PDF output panic: %v", r))
		}
	}()

	now := time.Now()
	org := "Renewable Energy Analytics"
	if c != nil {
		if c.Now != nil {
			now = c.Now()
		}
		if c.Organization != "" {
			org = c.Organization
		}
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.SetTitle(reportTitle(in.Config), true)
	pdf.SetCreator("energy-reports", true)
	pdf.AddPage()

	l := &layout{
		pdf: pdf,
		in:  in,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
		now: now,
		org: org,
	}

	l.section(doc, SectionHeader, l.header)
	l.section(doc, SectionMetadata, l.metadata)
	if len(in.ChartImage) > 0 {
		l.section(doc, SectionChart, l.chart)
	}
	l.section(doc, SectionTable, l.table)
	l.ensureSpace(recommendationsMinSpace)
	l.section(doc, SectionRecommendations, l.recommendations)
	l.section(doc, SectionFooter, l.footer)

	doc.buildPages(pdf.PageCount())

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		doc.err = internalerrors.Serialization("export_pdf", in.Config.Key, fmt.Errorf("PDF output error: %w", err))
		return doc
	}
	doc.data = buf.Bytes()
	return doc
}

func reportTitle(cfg resources.Config) string {
	name := cfg.DisplayName
	if name == "" {
		name = cfg.Key
	}
	return name + " Report"
}

// section runs one drawing step in isolation. A panic or a sticky fpdf error
// marks the section failed and clears the error so later sections still
// render.
func (l *layout) section(doc *Document, kind SectionKind, draw func() error) {
	pdf := l.pdf
	sec := Section{Kind: kind, StartPage: pdf.PageNo()}
	defer func() {
		if r := recover(); r != nil {
			sec.Err = fmt.Errorf("%s section panicked: %v", kind, r)
		}
		if sec.Err == nil && pdf.Err() {
			sec.Err = pdf.Error()
		}
		if sec.Err != nil {
			pdf.ClearError()
			log.Warn().
				Err(sec.Err).
				Str("resource", l.in.Config.Key).
				Str("section", string(kind)).
				Msg("Report section failed; continuing without it")
			metrics.RecordSectionFailure(string(kind))
		}
		if kind == SectionFooter {
			sec.StartPage = 1
		}
		sec.EndPage = pdf.PageNo()
		doc.sections = append(doc.sections, sec)
	}()
	sec.Err = draw()
}

func (l *layout) setText(c [3]int) {
	l.pdf.SetTextColor(c[0], c[1], c[2])
}

// centered writes text horizontally centred at y from its measured width.
func (l *layout) centered(y, h float64, text string) {
	text = l.tr(text)
	pageWidth, _ := l.pdf.GetPageSize()
	w := l.pdf.GetStringWidth(text)
	l.pdf.SetXY((pageWidth-w)/2, y)
	l.pdf.CellFormat(w, h, text, "", 0, "L", false, 0, "")
}

// ensureLogo registers the badge image once. Without it the header and
// closing block are drawn without logos.
func (l *layout) ensureLogo() bool {
	if l.logoState != 0 {
		return l.logoState > 0
	}
	data, err := logoPNG(l.in.Config.ThemeColor)
	if err == nil {
		l.pdf.RegisterImageOptionsReader(logoImage, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(data))
		if l.pdf.Err() {
			err = l.pdf.Error()
			l.pdf.ClearError()
		}
	}
	if err != nil {
		log.Warn().Err(err).Str("resource", l.in.Config.Key).Msg("Report logo unavailable")
		l.logoState = -1
		return false
	}
	l.logoState = 1
	return true
}

func (l *layout) header() error {
	pdf := l.pdf
	pageWidth, _ := pdf.GetPageSize()
	theme := l.in.Config.ThemeColor

	pdf.SetFillColor(theme[0], theme[1], theme[2])
	pdf.Rect(0, 0, pageWidth, headerHeight, "F")

	if l.ensureLogo() {
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.ImageOptions(logoImage, 8, 9, logoSize, logoSize, false, opts, 0, "")
		pdf.ImageOptions(logoImage, pageWidth-8-logoSize, 9, logoSize, logoSize, false, opts, 0, "")
	}

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 20)
	l.centered(11, 10, reportTitle(l.in.Config))
	pdf.SetFont("Arial", "", 10)
	l.centered(24, 6, "Generated on "+l.now.Format("January 2, 2006"))

	pdf.SetY(headerHeight + 8)
	return nil
}

func (l *layout) metadata() error {
	pdf := l.pdf
	y := pdf.GetY()

	pdf.SetFont("Arial", "B", 12)
	l.setText(colorTextDark)
	l.centered(y, 7, fmt.Sprintf("Year Range: %d–%d", l.in.Range.Start, l.in.Range.End))

	projection := "N/A"
	if l.in.Projection != nil {
		projection = fmt.Sprintf("%.2f GWh", *l.in.Projection)
	}
	pdf.SetFont("Arial", "", 12)
	l.centered(y+8, 7, "Current Projection: "+projection)
	y += 16

	if l.in.Synthetic {
		pdf.SetFont("Arial", "I", 9)
		l.setText(colorWarning)
		l.centered(y, 6, "Live data was unavailable; this report shows sample data.")
		y += 8
	}

	pdf.SetY(y + 4)
	return nil
}

func (l *layout) chart() error {
	pdf := l.pdf
	imageType, err := imageTypeOf(l.in.ChartImage)
	if err != nil {
		return internalerrors.RenderCapture("compose_chart", err)
	}

	y := pdf.GetY()
	pdf.SetFont("Arial", "B", 13)
	l.setText(colorTextDark)
	l.centered(y, 8, l.in.Config.DisplayName+" Generation Trend")

	opts := fpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader(chartImage, opts, bytes.NewReader(l.in.ChartImage))
	if pdf.Err() {
		return internalerrors.RenderCapture("compose_chart", pdf.Error())
	}

	pageWidth, _ := pdf.GetPageSize()
	pdf.ImageOptions(chartImage, (pageWidth-chartWidth)/2, y+10, chartWidth, chartHeight, false, opts, 0, "")
	pdf.SetY(y + 10 + chartHeight + 6)
	return nil
}

func imageTypeOf(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "PNG", nil
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return "JPG", nil
	default:
		return "", fmt.Errorf("unsupported chart image format")
	}
}

func (l *layout) table() error {
	pdf := l.pdf
	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 2*pageMargin

	cols := tableColumns(l.in.Config)
	widths := make([]float64, len(cols))
	widths[0] = yearColWidth
	for i := 1; i < len(cols); i++ {
		widths[i] = (usable - yearColWidth) / float64(len(cols)-1)
	}

	pdf.SetFont("Arial", "B", 13)
	l.setText(colorTextDark)
	pdf.SetX(pageMargin)
	pdf.CellFormat(0, 8, "Generation Data", "", 1, "L", false, 0, "")
	pdf.Ln(2)
	l.tableHeader(cols, widths)

	rows := 0
	alt := l.in.Config.Scheme.AltRow
	for _, rec := range l.in.Records {
		if rec.IsDeleted {
			continue
		}
		if pdf.GetY() > tableBreakY {
			pdf.AddPage()
			l.tableHeader(cols, widths)
		}

		fill := rows%2 == 1
		pdf.SetFillColor(alt[0], alt[1], alt[2])
		pdf.SetFont("Arial", "", 9)
		l.setText(colorTextDark)
		pdf.SetX(pageMargin)
		for i, col := range cols {
			value := col.Format(rec)
			if value == "" {
				value = "-"
			}
			pdf.CellFormat(widths[i], tableRowHeight, value, "1", 0, "C", fill, 0, "")
		}
		pdf.Ln(-1)
		rows++
	}

	if rows == 0 {
		pdf.SetFont("Arial", "I", 9)
		l.setText(colorTextMuted)
		pdf.SetX(pageMargin)
		pdf.CellFormat(usable, tableRowHeight, "No records in the selected range.", "1", 1, "C", false, 0, "")
	}

	pdf.Ln(6)
	return nil
}

func (l *layout) tableHeader(cols []Column, widths []float64) {
	pdf := l.pdf
	theme := l.in.Config.ThemeColor
	pdf.SetFillColor(theme[0], theme[1], theme[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetX(pageMargin)
	for i, col := range cols {
		size := 8.0
		pdf.SetFont("Arial", "B", size)
		for pdf.GetStringWidth(col.Header) > widths[i]-2 && size > 6 {
			size -= 0.5
			pdf.SetFontSize(size)
		}
		pdf.CellFormat(widths[i], tableRowHeight, col.Header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// ensureSpace starts a new page when less than space is left between the
// cursor and the bottom margin.
func (l *layout) ensureSpace(space float64) {
	_, pageHeight := l.pdf.GetPageSize()
	if pageHeight-bottomMargin-l.pdf.GetY() < space {
		l.pdf.AddPage()
	}
}

func (l *layout) recommendations() error {
	pdf := l.pdf
	cfg := l.in.Config
	pageWidth, _ := pdf.GetPageSize()
	usable := pageWidth - 2*pageMargin

	y := pdf.GetY()
	bar := cfg.Scheme.Header
	pdf.SetFillColor(bar[0], bar[1], bar[2])
	pdf.Rect(pageMargin, y, usable, 10, "F")
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(pageMargin+4, y)
	pdf.CellFormat(usable-8, 10, "Recommendations", "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 10)
	l.setText(colorTextDark)
	intro := fmt.Sprintf("Based on the %s outlook for %d–%d, consider the following actions:",
		cfg.DisplayName, l.in.Range.Start, l.in.Range.End)
	pdf.SetX(pageMargin)
	pdf.MultiCell(usable, 5, l.tr(intro), "", "L", false)
	pdf.Ln(2)

	for _, rec := range cfg.Recommendations {
		pdf.SetX(pageMargin + 4)
		pdf.MultiCell(usable-4, 5, l.tr("• "+rec), "", "L", false)
		pdf.Ln(1)
	}

	pdf.Ln(3)
	accent := cfg.Scheme.Accent
	pdf.SetDrawColor(accent[0], accent[1], accent[2])
	pdf.SetLineWidth(0.4)
	ruleY := pdf.GetY()
	pdf.Line(pageMargin, ruleY, pageWidth-pageMargin, ruleY)
	pdf.Ln(5)

	l.sources(cfg, usable)
	l.closing(pageWidth)
	return nil
}

// sources draws the Sources block in two columns. Rows are kept whole so
// both columns of a row land on the same page.
func (l *layout) sources(cfg resources.Config, usable float64) {
	pdf := l.pdf
	const gutter, lineHeight, titleHeight = 6.0, 4.5, 7.0
	colWidth := (usable - gutter) / 2

	pdf.SetFont("Arial", "", 9)
	var rows [][][]string
	var heights []float64
	for i := 0; i < len(cfg.Sources); i += 2 {
		var row [][]string
		height := lineHeight
		for j := 0; j < 2 && i+j < len(cfg.Sources); j++ {
			lines := pdf.SplitText(l.tr(cfg.Sources[i+j]), colWidth)
			row = append(row, lines)
			if h := float64(len(lines)) * lineHeight; h > height {
				height = h
			}
		}
		rows = append(rows, row)
		heights = append(heights, height)
	}

	if len(heights) > 0 {
		l.ensureSpace(titleHeight + heights[0])
	}
	pdf.SetFont("Arial", "B", 11)
	l.setText(colorTextDark)
	pdf.SetX(pageMargin)
	pdf.CellFormat(0, titleHeight, "Sources", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	l.setText(colorTextMuted)
	for i, row := range rows {
		l.ensureSpace(heights[i])
		y := pdf.GetY()
		for j, lines := range row {
			x := pageMargin + float64(j)*(colWidth+gutter)
			for k, line := range lines {
				pdf.SetXY(x, y+float64(k)*lineHeight)
				pdf.CellFormat(colWidth, lineHeight, line, "", 0, "L", false, 0, "")
			}
		}
		pdf.SetY(y + heights[i] + 2)
	}
}

func (l *layout) closing(pageWidth float64) {
	pdf := l.pdf
	pdf.Ln(4)
	if l.ensureLogo() {
		y := pdf.GetY()
		pdf.ImageOptions(logoImage, (pageWidth-footerLogoSize)/2, y, footerLogoSize, footerLogoSize, false,
			fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		pdf.SetY(y + footerLogoSize + 2)
	}
	pdf.SetFont("Arial", "", 8)
	l.setText(colorTextMuted)
	l.centered(pdf.GetY(), 5, fmt.Sprintf("© %d %s. All rights reserved.", l.now.Year(), l.org))
}

// footer stamps "Page n of N" on every page.
func (l *layout) footer() error {
	pdf := l.pdf
	// Disable auto page break while adding footers to prevent creating new pages
	pdf.SetAutoPageBreak(false, 0)

	total := pdf.PageCount()
	for i := 1; i <= total; i++ {
		pdf.SetPage(i)
		pageWidth, pageHeight := pdf.GetPageSize()

		pdf.SetDrawColor(colorGridLine[0], colorGridLine[1], colorGridLine[2])
		pdf.SetLineWidth(0.3)
		pdf.Line(pageMargin, pageHeight-20, pageWidth-pageMargin, pageHeight-20)

		pdf.SetY(pageHeight - 15)
		pdf.SetFont("Arial", "", 8)
		l.setText(colorTextMuted)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of %d", i, total), "", 0, "C", false, 0, "")
	}
	return nil
}
