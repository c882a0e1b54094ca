// Package store keeps generation records in SQLite so the development
// backend survives restarts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rcourtman/energy-reports/internal/models"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by writes that address a year with no record.
var ErrNotFound = errors.New("record not found")

// Store persists generation records keyed by resource type and year.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open record database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().
		Str("path", path).
		Msg("Record store initialized")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generation_records (
		id TEXT PRIMARY KEY,
		resource_type TEXT NOT NULL,
		year INTEGER NOT NULL,
		value REAL NOT NULL,
		date_added INTEGER NOT NULL,
		is_predicted INTEGER NOT NULL DEFAULT 1,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		non_renewable REAL,
		population REAL,
		gdp REAL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_generation_type_year
	ON generation_records(resource_type, year);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `id, resource_type, year, value, date_added, is_predicted, is_deleted, non_renewable, population, gdp`

// List returns the records of resourceType within yr ordered by year.
// Soft-deleted rows are included only when includeDeleted is set.
func (s *Store) List(ctx context.Context, resourceType string, yr models.YearRange, includeDeleted bool) ([]models.GenerationRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM generation_records
		WHERE resource_type = ? AND year >= ? AND year <= ?`
	if !includeDeleted {
		query += ` AND is_deleted = 0`
	}
	query += ` ORDER BY year ASC`

	rows, err := s.db.QueryContext(ctx, query, resourceType, yr.Start, yr.End)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.GenerationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// Get returns the record of resourceType for year, deleted or not.
func (s *Store) Get(ctx context.Context, resourceType string, year int) (models.GenerationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM generation_records WHERE resource_type = ? AND year = ?`,
		resourceType, year)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GenerationRecord{}, ErrNotFound
	}
	return rec, err
}

// Upsert stores rec as the record for its year. An existing row for the same
// year is overwritten and its delete flag cleared; the stored copy gets a
// fresh ID and date.
func (s *Store) Upsert(ctx context.Context, rec models.GenerationRecord) (models.GenerationRecord, error) {
	rec.ID = ulid.Make().String()
	rec.DateAdded = s.now().UTC()
	rec.IsDeleted = false
	rec.IsSynthetic = false

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_records
			(id, resource_type, year, value, date_added, is_predicted, is_deleted, non_renewable, population, gdp)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT(resource_type, year) DO UPDATE SET
			id = excluded.id,
			value = excluded.value,
			date_added = excluded.date_added,
			is_predicted = excluded.is_predicted,
			is_deleted = 0,
			non_renewable = excluded.non_renewable,
			population = excluded.population,
			gdp = excluded.gdp
	`, rec.ID, rec.ResourceType, rec.Year, rec.GenerationValue, rec.DateAdded.UnixMilli(),
		rec.IsPredicted, nullFloat(rec.NonRenewable), nullFloat(rec.Population), nullFloat(rec.GDP))
	if err != nil {
		return models.GenerationRecord{}, fmt.Errorf("failed to upsert record: %w", err)
	}
	return rec, nil
}

// Update rewrites the active record of resourceType for year from d. When
// d.Year differs the record moves, replacing whatever occupied d.Year.
func (s *Store) Update(ctx context.Context, resourceType string, year int, d models.Draft) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM generation_records WHERE resource_type = ? AND year = ? AND is_deleted = 0`,
		resourceType, year).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up record: %w", err)
	}

	if d.Year != year {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM generation_records WHERE resource_type = ? AND year = ?`,
			resourceType, d.Year); err != nil {
			return fmt.Errorf("failed to clear target year: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE generation_records
		SET year = ?, value = ?, non_renewable = ?, population = ?, gdp = ?
		WHERE id = ?
	`, d.Year, d.GenerationValue, nullFloat(d.NonRenewable), nullFloat(d.Population), nullFloat(d.GDP), id); err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update: %w", err)
	}
	return nil
}

// SetDeleted flips the soft-delete flag of the record for year.
func (s *Store) SetDeleted(ctx context.Context, resourceType string, year int, deleted bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE generation_records SET is_deleted = ? WHERE resource_type = ? AND year = ?`,
		deleted, resourceType, year)
	if err != nil {
		return fmt.Errorf("failed to update delete flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Seed inserts records for years that have no row yet. Existing rows,
// including soft-deleted ones, are left alone. It returns the number of
// rows inserted.
func (s *Store) Seed(ctx context.Context, records []models.GenerationRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO generation_records
			(id, resource_type, year, value, date_added, is_predicted, is_deleted, non_renewable, population, gdp)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare seed: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC()
	inserted := 0
	for _, r := range records {
		added := r.DateAdded
		if added.IsZero() {
			added = now
		}
		res, err := stmt.ExecContext(ctx, ulid.Make().String(), r.ResourceType, r.Year, r.GenerationValue,
			added.UnixMilli(), r.IsPredicted, nullFloat(r.NonRenewable), nullFloat(r.Population), nullFloat(r.GDP))
		if err != nil {
			return 0, fmt.Errorf("failed to seed %s %d: %w", r.ResourceType, r.Year, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}
	if inserted > 0 {
		log.Debug().Int("rows", inserted).Msg("Seeded record store")
	}
	return inserted, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (models.GenerationRecord, error) {
	var (
		rec                           models.GenerationRecord
		added                         int64
		nonRenewable, population, gdp sql.NullFloat64
	)
	err := row.Scan(&rec.ID, &rec.ResourceType, &rec.Year, &rec.GenerationValue, &added,
		&rec.IsPredicted, &rec.IsDeleted, &nonRenewable, &population, &gdp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}
	rec.DateAdded = time.UnixMilli(added).UTC()
	rec.NonRenewable = floatPtr(nonRenewable)
	rec.Population = floatPtr(population)
	rec.GDP = floatPtr(gdp)
	return rec, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return models.Float(v.Float64)
}
