package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"v2x-sim/internal/metrics"
	"v2x-sim/internal/runner"
)

// RunInfo describes a run when it is registered.
type RunInfo struct {
	Optimizer    string
	TimeStep     float64
	Vehicles     int
	BaseStations int
}

// Recorder is a runner.Sink writing every step to the database.
type Recorder struct {
	db    *gorm.DB
	run   Run
	steps int
	log   zerolog.Logger
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// NewRecorder registers a new run and returns a sink recording into it.
func NewRecorder(db *gorm.DB, info RunInfo, log zerolog.Logger) (*Recorder, error) {
	run := Run{
		ID:           NewRunID(),
		StartedAt:    time.Now().UTC(),
		Optimizer:    info.Optimizer,
		TimeStep:     info.TimeStep,
		Vehicles:     info.Vehicles,
		BaseStations: info.BaseStations,
	}
	if err := db.Create(&run).Error; err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	log.Info().Str("runId", run.ID).Msg("Run registered")
	return &Recorder{db: db, run: run, log: log}, nil
}

// RunID returns the id of the run being recorded.
func (r *Recorder) RunID() string {
	return r.run.ID
}

// Record implements runner.Sink.
func (r *Recorder) Record(ctx context.Context, result runner.StepResult) error {
	step := StepRecord{
		RunID:          r.run.ID,
		Step:           result.Index,
		Time:           result.State.Time,
		Assigned:       result.Summary.Assigned,
		Unassigned:     result.Summary.Unassigned,
		TotalRate:      result.Summary.TotalRate,
		MeanRate:       result.Summary.MeanRate,
		StdDevRate:     result.Summary.StdDevRate,
		UnboundedLinks: result.Summary.UnboundedLinks,
	}

	vehicles := make([]VehicleStepRecord, 0, len(result.State.Vehicles))
	for _, v := range result.State.Vehicles {
		rec := VehicleStepRecord{
			RunID:     r.run.ID,
			Step:      result.Index,
			VehicleID: v.ID(),
			PositionX: v.Position().X,
			PositionY: v.Position().Y,
		}
		if rate, ok := metrics.LinkRate(result.State, result.Assignment, v.ID()); ok {
			bsID := result.Assignment[v.ID()]
			rec.BaseStationID = &bsID
			if math.IsInf(rate, 1) {
				rec.Unbounded = true
			} else {
				rec.Rate = rate
			}
		}
		vehicles = append(vehicles, rec)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&step).Error; err != nil {
			return err
		}
		if len(vehicles) == 0 {
			return nil
		}
		return tx.CreateInBatches(vehicles, createBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to store step %d: %w", result.Index, err)
	}
	r.steps = result.Index
	return nil
}

// Close marks the run finished and closes the connection.
func (r *Recorder) Close() error {
	finished := time.Now().UTC()
	err := r.db.Model(&Run{}).
		Where("id = ?", r.run.ID).
		Updates(map[string]any{"finished_at": finished, "steps": r.steps}).Error
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	r.log.Info().Str("runId", r.run.ID).Int("steps", r.steps).Msg("Run stored")

	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}
