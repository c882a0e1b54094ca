package reporting

// SectionKind identifies a part of a composed report.
type SectionKind string

const (
	SectionHeader          SectionKind = "header"
	SectionMetadata        SectionKind = "metadata"
	SectionChart           SectionKind = "chart"
	SectionTable           SectionKind = "table"
	SectionRecommendations SectionKind = "recommendations"
	SectionFooter          SectionKind = "footer"
)

// Section records where a section landed and whether it rendered.
type Section struct {
	Kind      SectionKind
	StartPage int
	EndPage   int
	Err       error // set when the section was skipped after a failure
}

// Page lists the sections that touch one page.
type Page struct {
	Number   int
	Sections []SectionKind
}

// Document is a composed report. It is not modified after Compose returns.
type Document struct {
	sections []Section
	pages    []Page
	data     []byte
	err      error
}

// Sections returns the sections in layout order.
func (d *Document) Sections() []Section {
	return append([]Section(nil), d.sections...)
}

// Pages returns the page list.
func (d *Document) Pages() []Page {
	out := make([]Page, len(d.pages))
	for i, p := range d.pages {
		out[i] = Page{Number: p.Number, Sections: append([]SectionKind(nil), p.Sections...)}
	}
	return out
}

// PageCount is the number of pages in the document.
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Has reports whether a section of kind is part of the document.
func (d *Document) Has(kind SectionKind) bool {
	for _, s := range d.sections {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

// Failed returns the sections that were skipped after a failure.
func (d *Document) Failed() []Section {
	var out []Section
	for _, s := range d.sections {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Bytes returns the rendered PDF, or a serialization error when the final
// output step failed.
func (d *Document) Bytes() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	return append([]byte(nil), d.data...), nil
}

func (d *Document) buildPages(total int) {
	d.pages = make([]Page, 0, total)
	for n := 1; n <= total; n++ {
		page := Page{Number: n}
		for _, s := range d.sections {
			if s.StartPage <= n && n <= s.EndPage {
				page.Sections = append(page.Sections, s.Kind)
			}
		}
		d.pages = append(d.pages, page)
	}
}
