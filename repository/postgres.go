package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/you/subway-path/models"
)

//go:embed schema_postgres.sql
var postgresSchema string

// PostgresLineRepository loads and saves lines and stations in Postgres
type PostgresLineRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLineRepository connects to databaseURL and verifies the connection
func NewPostgresLineRepository(ctx context.Context, databaseURL string) (*PostgresLineRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresLineRepository{pool: pool}, nil
}

// Close releases the connection pool
func (r *PostgresLineRepository) Close() {
	r.pool.Close()
}

// Ping checks that the database is reachable
func (r *PostgresLineRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// EnsureSchema creates tables if they don't exist
func (r *PostgresLineRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateStation stores a new station
func (r *PostgresLineRepository) CreateStation(ctx context.Context, name string) (models.Station, error) {
	station, err := models.NewStation(name)
	if err != nil {
		return models.Station{}, err
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		"INSERT INTO stations (name) VALUES ($1) RETURNING id", station.Name).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Station{}, duplicateStation(station.Name)
		}
		return models.Station{}, fmt.Errorf("failed to insert station: %w", err)
	}
	return models.RestoreStation(id, station.Name)
}

// EnsureStation returns the station with this name, storing it first if needed
func (r *PostgresLineRepository) EnsureStation(ctx context.Context, name string) (models.Station, error) {
	station, err := models.NewStation(name)
	if err != nil {
		return models.Station{}, err
	}

	return upsertStation(ctx, r.pool, station.Name)
}

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx
type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsertStation(ctx context.Context, q pgQuerier, name string) (models.Station, error) {
	// The no-op update makes RETURNING yield the id of an existing row too.
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO stations (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&id)
	if err != nil {
		return models.Station{}, fmt.Errorf("failed to upsert station: %w", err)
	}
	return models.RestoreStation(id, name)
}

// FindStationByName looks a station up by its unique name
func (r *PostgresLineRepository) FindStationByName(ctx context.Context, name string) (models.Station, error) {
	name = strings.TrimSpace(name)
	var id int64
	err := r.pool.QueryRow(ctx, "SELECT id FROM stations WHERE name = $1", name).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Station{}, models.NewNotFoundError(models.CodeStationNotFound, "station %q not found", name)
		}
		return models.Station{}, fmt.Errorf("failed to query station: %w", err)
	}
	return models.RestoreStation(id, name)
}

// GetStation returns a station by id
func (r *PostgresLineRepository) GetStation(ctx context.Context, id int64) (models.Station, error) {
	var name string
	err := r.pool.QueryRow(ctx, "SELECT name FROM stations WHERE id = $1", id).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Station{}, models.NewNotFoundError(models.CodeStationNotFound, "station %d not found", id)
		}
		return models.Station{}, fmt.Errorf("failed to query station: %w", err)
	}
	return models.RestoreStation(id, name)
}

// ListStations returns every station ordered by id
func (r *PostgresLineRepository) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name FROM stations ORDER BY id")
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
func (r *PostgresLineRepository) CreateLine(ctx context.Context, name string) (*models.Line, error) {
	line, err := models.NewLine(name)
	if err != nil {
		return nil, err
	}

	revision := uuid.New()
	var id int64
	err = r.pool.QueryRow(ctx,
		"INSERT INTO lines (name, revision) VALUES ($1, $2) RETURNING id",
		line.Name(), revision).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateLine(line.Name())
		}
		return nil, fmt.Errorf("failed to insert line: %w", err)
	}
	return models.RestoreLine(id, line.Name(), revision.String(), nil)
}

// ListLines returns every line with its segments, ordered by id
func (r *PostgresLineRepository) ListLines(ctx context.Context) ([]*models.Line, error) {
	rows, err := r.pool.Query(ctx, "SELECT id FROM lines ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan line rows: %w", err)
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
func (r *PostgresLineRepository) LoadLine(ctx context.Context, id int64) (*models.Line, error) {
	var name string
	var revision uuid.UUID
	err := r.pool.QueryRow(ctx,
		"SELECT name, revision FROM lines WHERE id = $1", id).Scan(&name, &revision)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
		WHERE s.line_id = $1
	`
	rows, err := r.pool.Query(ctx, query, id)
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

	return buildLine(id, name, revision.String(), segmentRows)
}

// SaveLine replaces the stored segments of a line with its current sequence,
// guarded by a compare-and-swap on the revision. New stations are stored
// in the same transaction.
func (r *PostgresLineRepository) SaveLine(ctx context.Context, line *models.Line) (*models.Line, error) {
	expected, err := uuid.Parse(line.Revision())
	if err != nil {
		return nil, staleRevision(line.ID())
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	revision := uuid.New()
	tag, err := tx.Exec(ctx,
		"UPDATE lines SET revision = $1, updated_at = NOW() WHERE id = $2 AND revision = $3",
		revision, line.ID(), expected)
	if err != nil {
		return nil, fmt.Errorf("failed to update line revision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists int
		err := tx.QueryRow(ctx, "SELECT 1 FROM lines WHERE id = $1", line.ID()).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lineNotFound(line.ID())
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query line: %w", err)
		}
		return nil, staleRevision(line.ID())
	}

	segments, err := storeStations(line.Segments(), func(name string) (models.Station, error) {
		return upsertStation(ctx, tx, name)
	})
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM segments WHERE line_id = $1", line.ID()); err != nil {
		return nil, fmt.Errorf("failed to clear segments: %w", err)
	}

	batch := &pgx.Batch{}
	for i, s := range segments {
		batch.Queue(`
			INSERT INTO segments (line_id, left_station_id, right_station_id, distance, position)
			VALUES ($1, $2, $3, $4, $5)
		`, line.ID(), s.Left.ID, s.Right.ID, s.Distance.Int(), i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("failed to insert segments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return models.RestoreLine(line.ID(), line.Name(), revision.String(), segments)
}

// DeleteLine removes a line and its segments
func (r *PostgresLineRepository) DeleteLine(ctx context.Context, id int64) error {
	// segments go with the line through ON DELETE CASCADE
	tag, err := r.pool.Exec(ctx, "DELETE FROM lines WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return lineNotFound(id)
	}
	return nil
}
