package models

import (
	"sort"
	"time"
)

// Year bounds accepted anywhere a year is stored or queried.
const (
	MinYear = 1900
	MaxYear = 2100
)

// GenerationRecord is one year of generation data for a resource type.
type GenerationRecord struct {
	ID              string    `json:"id"`
	ResourceType    string    `json:"resourceType"`
	Year            int       `json:"year"`
	GenerationValue float64   `json:"generationValue"` // GWh
	DateAdded       time.Time `json:"dateAdded"`
	IsPredicted     bool      `json:"isPredicted"`
	IsDeleted       bool      `json:"isDeleted"`
	IsSynthetic     bool      `json:"isSynthetic"`

	// Extended payload fields; nil when the backend omits them or sends null.
	NonRenewable *float64 `json:"nonRenewable,omitempty"`
	Population   *float64 `json:"population,omitempty"`
	GDP          *float64 `json:"gdp,omitempty"`
}

// Clone returns a deep copy, including the optional pointer fields.
func (r GenerationRecord) Clone() GenerationRecord {
	out := r
	out.NonRenewable = cloneFloat(r.NonRenewable)
	out.Population = cloneFloat(r.Population)
	out.GDP = cloneFloat(r.GDP)
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v, for populating the optional fields.
func Float(v float64) *float64 {
	return &v
}

// CloneRecords deep-copies a record slice.
func CloneRecords(records []GenerationRecord) []GenerationRecord {
	if records == nil {
		return nil
	}
	out := make([]GenerationRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// SortByYear orders records ascending by year in place.
func SortByYear(records []GenerationRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Year < records[j].Year
	})
}

// Active returns the records that are not soft-deleted.
func Active(records []GenerationRecord) []GenerationRecord {
	out := make([]GenerationRecord, 0, len(records))
	for _, r := range records {
		if !r.IsDeleted {
			out = append(out, r)
		}
	}
	return out
}

// Draft is the user-editable part of a record.
type Draft struct {
	Year            int
	GenerationValue float64

	NonRenewable *float64
	Population   *float64
	GDP          *float64
}

// DraftOf extracts the editable fields of a record.
func DraftOf(r GenerationRecord) Draft {
	return Draft{
		Year:            r.Year,
		GenerationValue: r.GenerationValue,
		NonRenewable:    cloneFloat(r.NonRenewable),
		Population:      cloneFloat(r.Population),
		GDP:             cloneFloat(r.GDP),
	}
}
