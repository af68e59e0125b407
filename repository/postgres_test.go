package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/you/subway-path/models"
)

func setupPostgresRepository(t *testing.T) *PostgresLineRepository {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	ctx := context.Background()
	repo, err := NewPostgresLineRepository(ctx, databaseURL)
	if err != nil {
		t.Fatalf("Failed to create test repository: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		t.Fatalf("Failed to ensure schema: %v", err)
	}
	return repo
}

// uniqueName keeps runs against a shared database from colliding
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestPostgresSaveAndLoadLine(t *testing.T) {
	repo := setupPostgresRepository(t)
	defer repo.Close()

	ctx := context.Background()

	line, err := repo.CreateLine(ctx, uniqueName("line"))
	if err != nil {
		t.Fatalf("CreateLine failed: %v", err)
	}
	defer repo.DeleteLine(ctx, line.ID())

	var stations []models.Station
	for _, name := range []string{"A", "B", "C"} {
		s, err := repo.EnsureStation(ctx, uniqueName(name))
		if err != nil {
			t.Fatalf("EnsureStation failed: %v", err)
		}
		stations = append(stations, s)
	}

	if err := line.AddSegment(models.Segment{Left: stations[1], Right: stations[2], Distance: 7}); err != nil {
		t.Fatalf("AddSegment failed: %v", err)
	}
	if err := line.AddSegment(models.Segment{Left: stations[0], Right: stations[1], Distance: 5}); err != nil {
		t.Fatalf("AddSegment failed: %v", err)
	}

	saved, err := repo.SaveLine(ctx, line)
	if err != nil {
		t.Fatalf("SaveLine failed: %v", err)
	}

	loaded, err := repo.LoadLine(ctx, line.ID())
	if err != nil {
		t.Fatalf("LoadLine failed: %v", err)
	}
	if loaded.Revision() != saved.Revision() {
		t.Errorf("Expected revision %s, got %s", saved.Revision(), loaded.Revision())
	}

	route := loaded.Route()
	if len(route) != 3 {
		t.Fatalf("Expected 3 stations, got %d", len(route))
	}
	for i, want := range stations {
		if route[i] != want {
			t.Errorf("Station %d: expected %s, got %s", i, want.Name, route[i].Name)
		}
	}

	// Saving the stale copy again must be refused
	if _, err := repo.SaveLine(ctx, line); !models.IsKind(err, models.KindConflict) {
		t.Errorf("Expected conflict when saving a stale line, got %v", err)
	}
}

func TestPostgresSaveStoresNewStationsAtMaxDistance(t *testing.T) {
	repo := setupPostgresRepository(t)
	defer repo.Close()

	ctx := context.Background()

	line, err := repo.CreateLine(ctx, uniqueName("line"))
	if err != nil {
		t.Fatalf("CreateLine failed: %v", err)
	}
	defer repo.DeleteLine(ctx, line.ID())

	left, right := uniqueName("L"), uniqueName("R")
	seg := models.Segment{Left: st(0, left), Right: st(0, right), Distance: models.MaxDistance}
	if err := line.AddSegment(seg); err != nil {
		t.Fatalf("AddSegment failed: %v", err)
	}

	if _, err := repo.SaveLine(ctx, line); err != nil {
		t.Fatalf("SaveLine failed: %v", err)
	}

	loaded, err := repo.LoadLine(ctx, line.ID())
	if err != nil {
		t.Fatalf("LoadLine failed: %v", err)
	}
	if got := loaded.TotalDistance(); got != models.MaxDistance {
		t.Errorf("Expected distance %d, got %d", models.MaxDistance, got)
	}
	for _, s := range loaded.Route() {
		if !s.Persisted() {
			t.Errorf("Station %s was not stored", s.Name)
		}
	}
}

func TestPostgresMissingLine(t *testing.T) {
	repo := setupPostgresRepository(t)
	defer repo.Close()

	ctx := context.Background()

	if _, err := repo.LoadLine(ctx, -1); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
	if err := repo.DeleteLine(ctx, -1); !models.IsKind(err, models.KindNotFound) {
		t.Errorf("Expected not found, got %v", err)
	}
}
