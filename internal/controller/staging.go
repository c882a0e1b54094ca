package controller

import (
	"context"
	"errors"
	"fmt"

	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/models"
)

// ErrNoDraft is returned when a draft operation runs with nothing staged.
var ErrNoDraft = errors.New("no draft in progress")

// StagingMode says what a staged draft will do on submit.
type StagingMode string

const (
	StagingNone   StagingMode = ""
	StagingCreate StagingMode = "create"
	StagingEdit   StagingMode = "edit"
)

// Staging is the edit buffer behind the create and edit dialogs.
type Staging struct {
	Mode StagingMode
	// Year is the key of the record being edited.
	Year  int
	Draft models.Draft
	// Fields holds the validation problems from the last failed submit.
	Fields []internalerrors.FieldError
}

func (s Staging) clone() Staging {
	out := s
	out.Draft = cloneDraft(s.Draft)
	out.Fields = append([]internalerrors.FieldError(nil), s.Fields...)
	return out
}

func cloneDraft(d models.Draft) models.Draft {
	return models.DraftOf(models.GenerationRecord{
		Year:            d.Year,
		GenerationValue: d.GenerationValue,
		NonRenewable:    d.NonRenewable,
		Population:      d.Population,
		GDP:             d.GDP,
	})
}

// BeginCreate stages an empty draft for the current year.
func (c *Controller) BeginCreate() Staging {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staging = Staging{
		Mode:  StagingCreate,
		Draft: models.Draft{Year: c.opts.Now().Year()},
	}
	return c.staging.clone()
}

// BeginEdit stages the active record for year.
func (c *Controller) BeginEdit(year int) (Staging, error) {
	rec, ok := c.find(year, false)
	if !ok {
		return Staging{}, internalerrors.NotFound("edit", c.cfg.Key, fmt.Errorf("no record for year %d", year))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.staging = Staging{
		Mode:  StagingEdit,
		Year:  year,
		Draft: models.DraftOf(rec),
	}
	return c.staging.clone(), nil
}

// Staging returns a copy of the current edit buffer.
func (c *Controller) Staging() Staging {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staging.clone()
}

// SetDraft replaces the staged draft.
func (c *Controller) SetDraft(d models.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staging.Mode == StagingNone {
		return ErrNoDraft
	}
	c.staging.Draft = cloneDraft(d)
	c.staging.Fields = nil
	return nil
}

// CancelDraft discards the edit buffer.
func (c *Controller) CancelDraft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.staging = Staging{}
}

// SubmitDraft creates or updates from the staged draft. The buffer is
// cleared on success and kept, with field errors, on failure.
func (c *Controller) SubmitDraft(ctx context.Context) error {
	staged := c.Staging()

	var err error
	switch staged.Mode {
	case StagingCreate:
		err = c.Create(ctx, staged.Draft)
	case StagingEdit:
		err = c.Update(ctx, staged.Year, staged.Draft)
	default:
		return ErrNoDraft
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.staging.Fields = internalerrors.FieldErrors(err)
		return err
	}
	c.staging = Staging{}
	return nil
}
