package storage

import "time"

// Run is one simulation run.
type Run struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	StartedAt    time.Time  `json:"startedAt" gorm:"index:idx_run_started_at"`
	FinishedAt   *time.Time `json:"finishedAt"`
	Optimizer    string     `json:"optimizer" gorm:"size:32"`
	TimeStep     float64    `json:"timeStep"`
	Vehicles     int        `json:"vehicles"`
	BaseStations int        `json:"baseStations"`
	Steps        int        `json:"steps"`
}

// StepRecord holds the summary of one step.
type StepRecord struct {
	ID             uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID          string  `json:"runId" gorm:"size:36;index:idx_step_run_step,priority:1"`
	Run            Run     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:RunID"`
	Step           int     `json:"step" gorm:"index:idx_step_run_step,priority:2"`
	Time           float64 `json:"time"`
	Assigned       int     `json:"assigned"`
	Unassigned     int     `json:"unassigned"`
	TotalRate      float64 `json:"totalRate"`
	MeanRate       float64 `json:"meanRate"`
	StdDevRate     float64 `json:"stdDevRate"`
	UnboundedLinks int     `json:"unboundedLinks"`
}

// VehicleStepRecord is one vehicle at one step. BaseStationID is nil when
// the vehicle is unassigned; an infinite link rate is stored as Unbounded
// with Rate 0.
type VehicleStepRecord struct {
	ID            uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID         string  `json:"runId" gorm:"size:36;index:idx_vehicle_run_step,priority:1"`
	Run           Run     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:RunID"`
	Step          int     `json:"step" gorm:"index:idx_vehicle_run_step,priority:2"`
	VehicleID     int     `json:"vehicleId" gorm:"index"`
	PositionX     float64 `json:"positionX"`
	PositionY     float64 `json:"positionY"`
	BaseStationID *int    `json:"baseStationId"`
	Rate          float64 `json:"rate"`
	Unbounded     bool    `json:"unbounded"`
}

// Models lists every table for migration.
var Models = []any{
	&Run{},
	&StepRecord{},
	&VehicleStepRecord{},
}
