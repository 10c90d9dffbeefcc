// Package export writes the per-step simulation log as a JSON document.
package export

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"v2x-sim/internal/common"
	"v2x-sim/internal/runner"
)

// EntityPosition is one entity in a log entry.
type EntityPosition struct {
	ID       int           `json:"id"`
	Position common.Vector `json:"position"`
}

// Entry is the log record of one step.
type Entry struct {
	Time         float64          `json:"time"`
	Vehicles     []EntityPosition `json:"vehicles"`
	BaseStations []EntityPosition `json:"base_stations"`
	Assignments  map[int]int      `json:"assignments"`
}

// NewEntry converts a step result into a log entry.
func NewEntry(result runner.StepResult) Entry {
	e := Entry{
		Time:         result.State.Time,
		Vehicles:     make([]EntityPosition, 0, len(result.State.Vehicles)),
		BaseStations: make([]EntityPosition, 0, len(result.State.BaseStations)),
		Assignments:  make(map[int]int, len(result.Assignment)),
	}
	for _, v := range result.State.Vehicles {
		e.Vehicles = append(e.Vehicles, EntityPosition{ID: v.ID(), Position: v.Position()})
	}
	for _, bs := range result.State.BaseStations {
		e.BaseStations = append(e.BaseStations, EntityPosition{ID: bs.ID(), Position: bs.Position()})
	}
	for vid, bsid := range result.Assignment {
		e.Assignments[vid] = bsid
	}
	return e
}

// JSONLog collects entries in memory and writes them as one indented array
// when closed.
type JSONLog struct {
	path     string
	compress bool
	entries  []Entry
	logger   zerolog.Logger
}

// NewJSONLog creates a sink writing to path. With compress the file is
// gzipped.
func NewJSONLog(path string, compress bool, logger zerolog.Logger) *JSONLog {
	return &JSONLog{
		path:     path,
		compress: compress,
		logger:   logger,
	}
}

// Record implements runner.Sink.
func (l *JSONLog) Record(_ context.Context, result runner.StepResult) error {
	l.entries = append(l.entries, NewEntry(result))
	return nil
}

// Entries returns the collected entries.
func (l *JSONLog) Entries() []Entry {
	return l.entries
}

// Close writes the log file.
func (l *JSONLog) Close() error {
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if l.compress {
		gz := gzip.NewWriter(f)
		if err := l.Encode(gz); err != nil {
			return err
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	} else if err := l.Encode(f); err != nil {
		return err
	}

	l.logger.Info().
		Str("path", l.path).
		Int("entries", len(l.entries)).
		Bool("compressed", l.compress).
		Msg("Simulation log exported")
	return f.Close()
}

// Encode writes the entries to w with two-space indentation.
func (l *JSONLog) Encode(w io.Writer) error {
	entries := l.entries
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode simulation log: %w", err)
	}
	return nil
}
