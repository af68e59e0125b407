package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/you/subway-path/models"

	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteDB wraps a SQL database connection for SQLite with write serialization
type SQLiteDB struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// NewSQLiteDB opens a SQLite database with WAL mode and foreign keys enabled
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time; one connection plus
	// writeMu keeps transactions from nesting.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			slog.Warn("failed to set pragma", "pragma", pragma, "err", err)
		}
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *SQLiteDB) GetDB() *sql.DB {
	return s.db
}

// EnsureSchema creates tables if they don't exist
func (s *SQLiteDB) EnsureSchema(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SQLiteLineRepository loads and saves lines and stations in SQLite
type SQLiteLineRepository struct {
	sdb *SQLiteDB
}

// NewSQLiteLineRepository creates a repository on an open database
func NewSQLiteLineRepository(sdb *SQLiteDB) *SQLiteLineRepository {
	return &SQLiteLineRepository{sdb: sdb}
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Ping checks database connectivity
func (r *SQLiteLineRepository) Ping(ctx context.Context) error {
	return r.sdb.db.PingContext(ctx)
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateStation stores a new station
func (r *SQLiteLineRepository) CreateStation(ctx context.Context, name string) (models.Station, error) {
	station, err := models.NewStation(name)
	if err != nil {
		return models.Station{}, err
	}

	r.sdb.writeMu.Lock()
	defer r.sdb.writeMu.Unlock()

	return insertStation(ctx, r.sdb.db, station.Name)
}

func insertStation(ctx context.Context, q sqlQuerier, name string) (models.Station, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO stations (name, created_at) VALUES (?, ?)", name, nowString())
	if err != nil {
		if isUniqueViolation(err) {
			return models.Station{}, duplicateStation(name)
		}
		return models.Station{}, fmt.Errorf("failed to insert station: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Station{}, fmt.Errorf("failed to read station id: %w", err)
	}
	return models.RestoreStation(id, name)
}

func findStation(ctx context.Context, q sqlQuerier, name string) (models.Station, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM stations WHERE name = ?", name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Station{}, models.NewNotFoundError(models.CodeStationNotFound, "station %q not found", name)
		}
		return models.Station{}, fmt.Errorf("failed to query station: %w", err)
	}
	return models.RestoreStation(id, name)
}

func ensureStation(ctx context.Context, q sqlQuerier, name string) (models.Station, error) {
	existing, err := findStation(ctx, q, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.Station{}, err
	}
	return insertStation(ctx, q, name)
}

// EnsureStation returns the station with this name, storing it first if needed
func (r *SQLiteLineRepository) EnsureStation(ctx context.Context, name string) (models.Station, error) {
	station, err := models.NewStation(name)
	if err != nil {
		return models.Station{}, err
	}

	r.sdb.writeMu.Lock()
	defer r.sdb.writeMu.Unlock()

	return ensureStation(ctx, r.sdb.db, station.Name)
}

// FindStationByName looks a station up by its unique name
func (r *SQLiteLineRepository) FindStationByName(ctx context.Context, name string) (models.Station, error) {
	return findStation(ctx, r.sdb.db, strings.TrimSpace(name))
}

// GetStation returns a station by id
func (r *SQLiteLineRepository) GetStation(ctx context.Context, id int64) (models.Station, error) {
	var name string
	err := r.sdb.db.QueryRowContext(ctx, "SELECT name FROM stations WHERE id = ?", id).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Station{}, models.NewNotFoundError(models.CodeStationNotFound, "station %d not found", id)
		}
		return models.Station{}, fmt.Errorf("failed to query station: %w", err)
	}
	return models.RestoreStation(id, name)
}

// ListStations returns every station ordered by id
func (r *SQLiteLineRepository) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := r.sdb.db.QueryContext(ctx, "SELECT id, name FROM stations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := []models.Station{}
	for rows.Next() {
		var s models.Station
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan station row: %w", err)
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating station rows: %w", err)
	}
	return stations, nil
}

// CreateLine stores a new empty line
func (r *SQLiteLineRepository) CreateLine(ctx context.Context, name string) (*models.Line, error) {
	line, err := models.NewLine(name)
	if err != nil {
		return nil, err
	}

	r.sdb.writeMu.Lock()
	defer r.sdb.writeMu.Unlock()

	revision := uuid.NewString()
	now := nowString()
	res, err := r.sdb.db.ExecContext(ctx,
		"INSERT INTO lines (name, revision, created_at, updated_at) VALUES (?, ?, ?, ?)",
		line.Name(), revision, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateLine(line.Name())
		}
		return nil, fmt.Errorf("failed to insert line: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read line id: %w", err)
	}
	return models.RestoreLine(id, line.Name(), revision, nil)
}

// ListLines loads every line ordered by id
func (r *SQLiteLineRepository) ListLines(ctx context.Context) ([]*models.Line, error) {
	rows, err := r.sdb.db.QueryContext(ctx, "SELECT id FROM lines ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan line row: %w", err)
		}
		ids = append(ids, id)
	}
	// The single connection must be free before loading each line.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line rows: %w", err)
	}

	lines := make([]*models.Line, 0, len(ids))
	for _, id := range ids {
		line, err := r.LoadLine(ctx, id)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// LoadLine reads a line and rebuilds its path from the unordered segment rows
func (r *SQLiteLineRepository) LoadLine(ctx context.Context, id int64) (*models.Line, error) {
	var name, revision string
	err := r.sdb.db.QueryRowContext(ctx,
		"SELECT name, revision FROM lines WHERE id = ?", id).Scan(&name, &revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lineNotFound(id)
		}
		return nil, fmt.Errorf("failed to query line: %w", err)
	}

	query := `
		SELECT
			s.left_station_id,
			ls.name,
			s.right_station_id,
			rs.name,
			s.distance
		FROM segments s
		JOIN stations ls ON ls.id = s.left_station_id
		JOIN stations rs ON rs.id = s.right_station_id
		WHERE s.line_id = ?
	`
	rows, err := r.sdb.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segmentRows []segmentRow
	for rows.Next() {
		var row segmentRow
		if err := rows.Scan(
			&row.LeftStationID,
			&row.LeftStationName,
			&row.RightStationID,
			&row.RightStationName,
			&row.Distance,
		); err != nil {
			return nil, fmt.Errorf("failed to scan segment row: %w", err)
		}
		segmentRows = append(segmentRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating segment rows: %w", err)
	}

	return buildLine(id, name, revision, segmentRows)
}

// SaveLine replaces the stored segments of a line with its current sequence.
// Stations that have not been stored yet are created in the same
// transaction. It fails with a conflict when the line was saved by someone
// else since it was loaded. The returned line carries the new revision.
func (r *SQLiteLineRepository) SaveLine(ctx context.Context, line *models.Line) (*models.Line, error) {
	r.sdb.writeMu.Lock()
	defer r.sdb.writeMu.Unlock()

	tx, err := r.sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	revision := uuid.NewString()
	res, err := tx.ExecContext(ctx,
		"UPDATE lines SET revision = ?, updated_at = ? WHERE id = ? AND revision = ?",
		revision, nowString(), line.ID(), line.Revision())
	if err != nil {
		return nil, fmt.Errorf("failed to update line revision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM lines WHERE id = ?", line.ID()).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lineNotFound(line.ID())
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query line: %w", err)
		}
		return nil, staleRevision(line.ID())
	}

	segments, err := storeStations(line.Segments(), func(name string) (models.Station, error) {
		return ensureStation(ctx, tx, name)
	})
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM segments WHERE line_id = ?", line.ID()); err != nil {
		return nil, fmt.Errorf("failed to clear segments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments (line_id, left_station_id, right_station_id, distance, position)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare segment insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range segments {
		if _, err := stmt.ExecContext(ctx, line.ID(), s.Left.ID, s.Right.ID, s.Distance.Int(), i); err != nil {
			return nil, fmt.Errorf("failed to insert segment %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return models.RestoreLine(line.ID(), line.Name(), revision, segments)
}

// DeleteLine removes a line and its segments
func (r *SQLiteLineRepository) DeleteLine(ctx context.Context, id int64) error {
	r.sdb.writeMu.Lock()
	defer r.sdb.writeMu.Unlock()

	tx, err := r.sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segments WHERE line_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete segments: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM lines WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return lineNotFound(id)
	}

	return tx.Commit()
}
