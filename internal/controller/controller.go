// Package controller owns the per-resource-type CRUD and fetch state that
// dashboards and report exports read from.
package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rcourtman/energy-reports/internal/capture"
	internalerrors "github.com/rcourtman/energy-reports/internal/errors"
	"github.com/rcourtman/energy-reports/internal/logging"
	"github.com/rcourtman/energy-reports/internal/metrics"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rcourtman/energy-reports/internal/resources"
	"github.com/rcourtman/energy-reports/pkg/reporting"
)

// State is the fetch lifecycle of a controller.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// FallbackWarning is set on the snapshot when synthetic data is shown.
const FallbackWarning = "Live data is unavailable; showing sample data."

// Backend is the per-resource API the controller reads from and writes to.
type Backend interface {
	List(ctx context.Context, yr models.YearRange) ([]models.GenerationRecord, error)
	Create(ctx context.Context, d models.Draft) error
	Update(ctx context.Context, year int, d models.Draft) error
	SetDeleted(ctx context.Context, year int, deleted bool) error
}

// Synthesizer produces fallback records when the backend read fails.
type Synthesizer interface {
	Generate(cfg resources.Config, r models.YearRange) []models.GenerationRecord
}

// Options tunes controller behaviour.
type Options struct {
	// DisableFallback moves the controller to StateError on read failure
	// instead of showing synthetic data.
	DisableFallback bool

	// Composer and Capturer default to fresh instances.
	Composer       *reporting.Composer
	Capturer       *capture.Capturer
	CaptureTimeout time.Duration

	Now func() time.Time
}

// Controller is the stateful CRUD/fetch controller for one resource type.
// It is safe for concurrent use.
type Controller struct {
	cfg     resources.Config
	backend Backend
	synth   Synthesizer
	opts    Options

	mu        sync.Mutex
	state     State
	yearRange models.YearRange
	records   []models.GenerationRecord
	warning   string
	synthetic bool
	lastErr   error
	token     uint64
	search    string
	staging   Staging
}

// New builds a controller for cfg. Use Factory to build controllers from a
// registry.
func New(cfg resources.Config, backend Backend, synth Synthesizer, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Composer == nil {
		opts.Composer = reporting.NewComposer()
	}
	if opts.Capturer == nil {
		opts.Capturer = capture.NewCapturer()
	}
	return &Controller{
		cfg:     cfg,
		backend: backend,
		synth:   synth,
		opts:    opts,
		state:   StateIdle,
	}
}

// Config returns the resource configuration the controller was built with.
func (c *Controller) Config() resources.Config {
	return c.cfg
}

// DefaultRange is the window Initialize loads: the last four years through
// next year, clamped into the accepted year bounds.
func DefaultRange(now time.Time) models.YearRange {
	year := now.Year()
	return models.NewYearRange(year-4, year+1).Clamp()
}

// Initialize loads the default window.
func (c *Controller) Initialize(ctx context.Context) error {
	r := DefaultRange(c.opts.Now())
	return c.FetchRange(ctx, r.Start, r.End)
}

// FetchRange loads [start, end]. Only a ValidationError is returned; backend
// failures degrade to synthetic data and a warning on the snapshot. When
// several fetches overlap, the one started last determines state.
func (c *Controller) FetchRange(ctx context.Context, start, end int) error {
	yr := models.NewYearRange(start, end)
	if problems := yr.Validate(); len(problems) > 0 {
		fields := make([]internalerrors.FieldError, 0, len(problems))
		for _, p := range problems {
			fields = append(fields, internalerrors.FieldError{Field: "yearRange", Message: p})
		}
		return internalerrors.Validation("fetch_range", c.cfg.Key, fields...)
	}

	c.mu.Lock()
	c.token++
	token := c.token
	prevRange := c.yearRange
	c.state = StateLoading
	c.yearRange = yr
	c.mu.Unlock()

	logger := logging.FromContext(ctx).With().Str("resource", c.cfg.Key).Str("range", yr.String()).Logger()

	records, err := c.backend.List(ctx, yr)

	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		logger.Debug().Uint64("token", token).Uint64("latest", c.token).Msg("Discarding stale fetch response")
		metrics.RecordFetch(c.cfg.Key, metrics.FetchStale)
		return nil
	}

	if err == nil {
		c.records = normalize(records, yr)
		c.state = StateReady
		c.warning = ""
		c.synthetic = false
		c.lastErr = nil
		metrics.RecordFetch(c.cfg.Key, metrics.FetchLive)
		return nil
	}

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// The caller abandoned this fetch; keep whatever was shown before.
		c.yearRange = prevRange
		c.state = c.settledState()
		metrics.RecordFetch(c.cfg.Key, metrics.FetchCanceled)
		return nil
	}

	if c.opts.DisableFallback || c.synth == nil {
		logger.Warn().Err(err).Msg("Backend read failed")
		c.records = nil
		c.state = StateError
		c.lastErr = err
		c.warning = internalerrors.UserMessage(err)
		c.synthetic = false
		metrics.RecordFetch(c.cfg.Key, metrics.FetchFailed)
		return nil
	}

	logger.Warn().Err(err).Msg("Backend read failed; falling back to sample data")
	c.records = normalize(c.synth.Generate(c.cfg, yr), yr)
	c.state = StateReady
	c.warning = FallbackWarning
	c.synthetic = true
	c.lastErr = err
	metrics.RecordFetch(c.cfg.Key, metrics.FetchSynthetic)
	return nil
}

func (c *Controller) settledState() State {
	switch {
	case c.lastErr != nil && c.records == nil:
		return StateError
	case c.records != nil:
		return StateReady
	default:
		return StateIdle
	}
}

// normalize keeps records inside yr, keeps at most one active record per
// year (the most recently added), and sorts ascending.
func normalize(records []models.GenerationRecord, yr models.YearRange) []models.GenerationRecord {
	out := make([]models.GenerationRecord, 0, len(records))
	activeIdx := make(map[int]int)
	for _, rec := range records {
		if !yr.Contains(rec.Year) {
			continue
		}
		if rec.IsDeleted {
			out = append(out, rec.Clone())
			continue
		}
		if idx, seen := activeIdx[rec.Year]; seen {
			if rec.DateAdded.After(out[idx].DateAdded) {
				out[idx] = rec.Clone()
			}
			continue
		}
		activeIdx[rec.Year] = len(out)
		out = append(out, rec.Clone())
	}
	models.SortByYear(out)
	return out
}

// Create validates d, writes it, and reloads the current window. A record
// already present for d.Year is overwritten.
func (c *Controller) Create(ctx context.Context, d models.Draft) error {
	if err := c.validateDraft("create", d); err != nil {
		return err
	}
	if err := c.backend.Create(ctx, d); err != nil {
		return c.writeFailed(ctx, "create", err)
	}
	metrics.RecordWrite(c.cfg.Key, "create", true)

	yr := c.currentRange()
	return c.FetchRange(ctx, yr.Start, yr.End)
}

// Update replaces the record keyed by year with d. d.Year may move the
// record to a different year.
func (c *Controller) Update(ctx context.Context, year int, d models.Draft) error {
	if err := c.validateDraft("update", d); err != nil {
		return err
	}
	if _, ok := c.find(year, false); !ok {
		return internalerrors.NotFound("update", c.cfg.Key, fmt.Errorf("no record for year %d", year))
	}
	if err := c.backend.Update(ctx, year, d); err != nil {
		return c.writeFailed(ctx, "update", err)
	}
	metrics.RecordWrite(c.cfg.Key, "update", true)

	c.mu.Lock()
	defer c.mu.Unlock()
	updated := make([]models.GenerationRecord, 0, len(c.records))
	for _, rec := range c.records {
		switch {
		case d.Year != year && rec.Year == d.Year:
			// Moving onto an occupied year overwrites it, deleted rows included.
			continue
		case rec.IsDeleted:
		case rec.Year == year:
			rec.Year = d.Year
			rec.GenerationValue = d.GenerationValue
			rec.NonRenewable = d.NonRenewable
			rec.Population = d.Population
			rec.GDP = d.GDP
		}
		updated = append(updated, rec.Clone())
	}
	c.records = normalize(updated, c.yearRange)
	return nil
}

// Remove soft-deletes the record for year.
func (c *Controller) Remove(ctx context.Context, year int) error {
	return c.setDeleted(ctx, "remove", year, true)
}

// Recover clears the soft-delete flag of the record for year.
func (c *Controller) Recover(ctx context.Context, year int) error {
	return c.setDeleted(ctx, "recover", year, false)
}

func (c *Controller) setDeleted(ctx context.Context, op string, year int, deleted bool) error {
	if _, ok := c.find(year, !deleted); !ok {
		return internalerrors.NotFound(op, c.cfg.Key, fmt.Errorf("no record for year %d", year))
	}
	if !deleted {
		if _, active := c.find(year, false); active {
			return internalerrors.Validation(op, c.cfg.Key, internalerrors.FieldError{
				Field:   "year",
				Message: fmt.Sprintf("an active record already exists for %d", year),
			})
		}
	}
	if err := c.backend.SetDeleted(ctx, year, deleted); err != nil {
		return c.writeFailed(ctx, op, err)
	}
	metrics.RecordWrite(c.cfg.Key, op, true)

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.records {
		if c.records[i].Year == year && c.records[i].IsDeleted == !deleted {
			c.records[i].IsDeleted = deleted
			break
		}
	}
	return nil
}

// find looks up the record for year with the given deleted flag.
func (c *Controller) find(year int, deleted bool) (models.GenerationRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range c.records {
		if rec.Year == year && rec.IsDeleted == deleted {
			return rec.Clone(), true
		}
	}
	return models.GenerationRecord{}, false
}

func (c *Controller) currentRange() models.YearRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.yearRange == (models.YearRange{}) {
		return DefaultRange(c.opts.Now())
	}
	return c.yearRange
}

func (c *Controller) validateDraft(op string, d models.Draft) error {
	var fields []internalerrors.FieldError
	if d.Year < models.MinYear || d.Year > models.MaxYear {
		fields = append(fields, internalerrors.FieldError{
			Field:   "year",
			Message: fmt.Sprintf("Year must be between %d and %d.", models.MinYear, models.MaxYear),
		})
	}
	if d.GenerationValue < 0 || math.IsNaN(d.GenerationValue) || math.IsInf(d.GenerationValue, 0) {
		fields = append(fields, internalerrors.FieldError{
			Field:   "generationValue",
			Message: "Generation value must be a non-negative number.",
		})
	}
	if len(fields) > 0 {
		return internalerrors.Validation(op, c.cfg.Key, fields...)
	}
	return nil
}

func (c *Controller) writeFailed(ctx context.Context, op string, err error) error {
	metrics.RecordWrite(c.cfg.Key, op, false)
	if !errors.Is(err, internalerrors.ErrValidation) {
		logger := logging.FromContext(ctx)
		logger.Error().Err(err).Str("resource", c.cfg.Key).Str("op", op).Msg("Backend write failed")
	}
	var structured *internalerrors.Error
	if errors.As(err, &structured) {
		return err
	}
	return internalerrors.Network(op, c.cfg.Key, err)
}

// SetSearch filters Filtered and exports by year prefix or formatted value.
func (c *Controller) SetSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = strings.TrimSpace(term)
}

// Filtered returns the active records matching the search term.
func (c *Controller) Filtered() []models.GenerationRecord {
	return c.Snapshot().Filtered()
}

// Snapshot is a point-in-time copy of controller state.
type Snapshot struct {
	Resource  string
	State     State
	Range     models.YearRange
	Records   []models.GenerationRecord
	Warning   string
	Synthetic bool
	Err       error
	Search    string
}

// Snapshot copies the current state. The copy is independent of later
// fetches and writes.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Resource:  c.cfg.Key,
		State:     c.state,
		Range:     c.yearRange,
		Records:   models.CloneRecords(c.records),
		Warning:   c.warning,
		Synthetic: c.synthetic,
		Err:       c.lastErr,
		Search:    c.search,
	}
}

// Active returns the records that are not soft-deleted.
func (s Snapshot) Active() []models.GenerationRecord {
	return models.Active(s.Records)
}

// Deleted returns the soft-deleted records, which Recover can restore.
func (s Snapshot) Deleted() []models.GenerationRecord {
	out := make([]models.GenerationRecord, 0)
	for _, r := range s.Records {
		if r.IsDeleted {
			out = append(out, r)
		}
	}
	return out
}

// Filtered returns the active records matching the search term.
func (s Snapshot) Filtered() []models.GenerationRecord {
	active := s.Active()
	if s.Search == "" {
		return active
	}
	term := strings.ToLower(s.Search)
	out := make([]models.GenerationRecord, 0, len(active))
	for _, r := range active {
		if strings.HasPrefix(strconv.Itoa(r.Year), term) ||
			strings.Contains(strconv.FormatFloat(r.GenerationValue, 'f', 2, 64), term) {
			out = append(out, r)
		}
	}
	return out
}
