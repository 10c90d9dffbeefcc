// Package report writes a spreadsheet summary of a simulation run.
package report

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"v2x-sim/internal/metrics"
	"v2x-sim/internal/runner"
)

// Sheet names.
const (
	StepsSheet       = "Steps"
	AssignmentsSheet = "Assignments"
	StationsSheet    = "Stations"
)

var (
	stepsHeader       = []interface{}{"Step", "Time (s)", "Vehicles", "Assigned", "Unassigned", "Total rate (Mbit/s)", "Mean rate (Mbit/s)", "Std dev rate (Mbit/s)", "Unbounded links"}
	assignmentsHeader = []interface{}{"Step", "Time (s)", "Vehicle", "Base station", "Rate (Mbit/s)"}
	stationsHeader    = []interface{}{"Step", "Time (s)", "Base station", "Load", "Capacity", "Utilization"}
)

// Workbook is a runner.Sink that fills an XLSX workbook and saves it on
// Close.
type Workbook struct {
	file *excelize.File
	path string
	rows map[string]int
	log  zerolog.Logger
}

// New creates an empty workbook with header rows.
func New(path string, log zerolog.Logger) (*Workbook, error) {
	f := excelize.NewFile()
	w := &Workbook{
		file: f,
		path: path,
		rows: make(map[string]int),
		log:  log,
	}

	headers := []struct {
		sheet string
		row   []interface{}
	}{
		{StepsSheet, stepsHeader},
		{AssignmentsSheet, assignmentsHeader},
		{StationsSheet, stationsHeader},
	}
	for _, h := range headers {
		if _, err := f.NewSheet(h.sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", h.sheet, err)
		}
		w.rows[h.sheet] = 1
		if err := w.appendRow(h.sheet, h.row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	return w, nil
}

func (w *Workbook) appendRow(sheet string, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.rows[sheet])
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, w.rows[sheet], err)
	}
	w.rows[sheet]++
	return nil
}

// rateCell keeps infinite rates readable; spreadsheets have no infinity.
func rateCell(rate float64) interface{} {
	if math.IsInf(rate, 1) {
		return "inf"
	}
	return rate
}

// Record implements runner.Sink.
func (w *Workbook) Record(_ context.Context, result runner.StepResult) error {
	sum := result.Summary
	t := result.State.Time

	err := w.appendRow(StepsSheet, []interface{}{
		result.Index, t, sum.Vehicles, sum.Assigned, sum.Unassigned,
		sum.TotalRate, sum.MeanRate, sum.StdDevRate, sum.UnboundedLinks,
	})
	if err != nil {
		return err
	}

	for _, p := range result.Assignment.Pairs() {
		rate, _ := metrics.LinkRate(result.State, result.Assignment, p.VehicleID)
		err := w.appendRow(AssignmentsSheet, []interface{}{
			result.Index, t, p.VehicleID, p.BaseStationID, rateCell(rate),
		})
		if err != nil {
			return err
		}
	}

	for _, st := range sum.Stations {
		err := w.appendRow(StationsSheet, []interface{}{
			result.Index, t, st.BaseStationID, st.Load, st.Capacity, st.Utilization,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Close saves the workbook.
func (w *Workbook) Close() error {
	defer func() {
		if err := w.file.Close(); err != nil {
			w.log.Error().Err(err).Msg("Failed to close workbook")
		}
	}()

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	w.log.Info().Str("path", w.path).Int("steps", w.rows[StepsSheet]-2).Msg("Report saved")
	return nil
}
