// Package seed loads lines from YAML files and replays them through the
// line service.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/you/subway-path/models"
	"github.com/you/subway-path/service"
)

// File is the YAML layout of a seed file:
//
//	lines:
//	  - name: Line 2
//	    segments:
//	      - {left: Jamsil, right: Gangnam, distance: 10}
type File struct {
	Lines []Line `yaml:"lines"`
}

// Line is one seeded line and its segments, applied in file order
type Line struct {
	Name     string    `yaml:"name"`
	Segments []Segment `yaml:"segments"`
}

// Segment is one seeded segment
type Segment struct {
	Left     string `yaml:"left"`
	Right    string `yaml:"right"`
	Distance int    `yaml:"distance"`
}

// Load reads and checks a seed file. Segment semantics are left to the
// line service; only the file's own shape is validated here.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	names := make(map[string]bool)
	for i, l := range f.Lines {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			return nil, fmt.Errorf("%s: line %d has no name", path, i+1)
		}
		if names[name] {
			return nil, fmt.Errorf("%s: line %q is listed twice", path, name)
		}
		names[name] = true
	}
	return &f, nil
}

// LineService is the subset of the service a seed needs
type LineService interface {
	CreateLine(ctx context.Context, name string) (*models.Line, error)
	AddSegment(ctx context.Context, lineID int64, leftName, rightName string, distance int) (*service.AddSegmentResult, error)
}

// LineReport says what happened to one seeded line
type LineReport struct {
	Name    string
	LineID  int64
	Applied int
	// Ignored lists segments that never connected to the line
	Ignored []Segment
}

// Apply creates every line of f and adds its segments in file order.
// Segments the line ignores are retried after the others, so a file may
// list them in any order; those that still do not connect are reported.
// Any rejected segment stops the run.
func Apply(ctx context.Context, svc LineService, f *File) ([]LineReport, error) {
	reports := make([]LineReport, 0, len(f.Lines))
	for _, l := range f.Lines {
		report, err := applyLine(ctx, svc, l)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func applyLine(ctx context.Context, svc LineService, l Line) (LineReport, error) {
	line, err := svc.CreateLine(ctx, l.Name)
	if err != nil {
		return LineReport{}, fmt.Errorf("line %q: %w", l.Name, err)
	}
	report := LineReport{Name: line.Name(), LineID: line.ID()}

	pending := l.Segments
	for len(pending) > 0 {
		var ignored []Segment
		for _, s := range pending {
			res, err := svc.AddSegment(ctx, line.ID(), s.Left, s.Right, s.Distance)
			if err != nil {
				return report, fmt.Errorf("line %q segment %s-%s: %w", l.Name, s.Left, s.Right, err)
			}
			if res.Applied {
				report.Applied++
			} else {
				ignored = append(ignored, s)
			}
		}
		if len(ignored) == len(pending) {
			report.Ignored = ignored
			break
		}
		pending = ignored
	}
	return report, nil
}
