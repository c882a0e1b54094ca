package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rcourtman/energy-reports/internal/models"
)

// StatusSuccess is the status value of every successful response.
const StatusSuccess = "success"

// Year decodes a year sent as a JSON integer, float, or numeric string.
type Year int

func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse year %q: %w", raw, err)
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("year %v is not a whole number", f)
	}
	*y = Year(int(f))
	return nil
}

// Prediction is one row of a read response. Both the minimal
// {Year, Predicted Production} shape and the extended shape decode into it.
type Prediction struct {
	ID                  string   `json:"id,omitempty"`
	Year                Year     `json:"Year"`
	PredictedProduction *float64 `json:"Predicted Production"`
	NonRenewable        *float64 `json:"Non-Renewable Energy,omitempty"`
	Population          *float64 `json:"Population,omitempty"`
	GDP                 *float64 `json:"GDP,omitempty"`
	DateAdded           string   `json:"dateAdded,omitempty"`
	IsDeleted           bool     `json:"isDeleted,omitempty"`
	IsPredicted         *bool    `json:"isPredicted,omitempty"`
}

// ListResponse is the body of GET {endpoint}.
type ListResponse struct {
	Status      string       `json:"status"`
	Message     string       `json:"message,omitempty"`
	Predictions []Prediction `json:"predictions"`
}

// WriteRequest is the body of POST {endpoint} and PUT {endpoint}/{year}.
type WriteRequest struct {
	Year                *int     `json:"Year,omitempty"`
	PredictedProduction *float64 `json:"Predicted Production,omitempty"`
	NonRenewable        *float64 `json:"Non-Renewable Energy,omitempty"`
	Population          *float64 `json:"Population,omitempty"`
	GDP                 *float64 `json:"GDP,omitempty"`
	IsDeleted           *bool    `json:"isDeleted,omitempty"`
}

// StatusResponse is the body of every write response.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// WriteRequestFromDraft builds the create/update body for a draft.
func WriteRequestFromDraft(d models.Draft) WriteRequest {
	year := d.Year
	value := d.GenerationValue
	return WriteRequest{
		Year:                &year,
		PredictedProduction: &value,
		NonRenewable:        d.NonRenewable,
		Population:          d.Population,
		GDP:                 d.GDP,
	}
}

// ToRecord converts a wire row into a record for resourceType. ok is false
// for rows that cannot be represented (missing or negative production, year
// out of bounds).
func (p Prediction) ToRecord(resourceType string) (models.GenerationRecord, bool) {
	year := int(p.Year)
	if year < models.MinYear || year > models.MaxYear {
		return models.GenerationRecord{}, false
	}
	if p.PredictedProduction == nil || *p.PredictedProduction < 0 || math.IsNaN(*p.PredictedProduction) {
		return models.GenerationRecord{}, false
	}

	rec := models.GenerationRecord{
		ID:              p.ID,
		ResourceType:    resourceType,
		Year:            year,
		GenerationValue: *p.PredictedProduction,
		IsDeleted:       p.IsDeleted,
		IsPredicted:     true,
		NonRenewable:    p.NonRenewable,
		Population:      p.Population,
		GDP:             p.GDP,
	}
	if p.IsPredicted != nil {
		rec.IsPredicted = *p.IsPredicted
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("%s-%d", resourceType, year)
	}
	if p.DateAdded != "" {
		if ts, err := time.Parse(time.RFC3339, p.DateAdded); err == nil {
			rec.DateAdded = ts
		}
	}
	return rec, true
}

// PredictionFromRecord converts a record into its wire row.
func PredictionFromRecord(r models.GenerationRecord) Prediction {
	value := r.GenerationValue
	predicted := r.IsPredicted
	p := Prediction{
		ID:                  r.ID,
		Year:                Year(r.Year),
		PredictedProduction: &value,
		NonRenewable:        r.NonRenewable,
		Population:          r.Population,
		GDP:                 r.GDP,
		IsDeleted:           r.IsDeleted,
		IsPredicted:         &predicted,
	}
	if !r.DateAdded.IsZero() {
		p.DateAdded = r.DateAdded.UTC().Format(time.RFC3339)
	}
	return p
}

// MarshalJSON keeps Year a plain number on the wire.
func (y Year) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(y))
}
