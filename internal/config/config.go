// Package config loads scenario files into a typed configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"v2x-sim/internal/assignment"
	"v2x-sim/internal/channel"
	"v2x-sim/internal/common"
	"v2x-sim/internal/entity"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix prefixes environment overrides, e.g. V2X_SIMULATION_STEPS.
const EnvPrefix = "V2X"

// Config is the full scenario description.
type Config struct {
	LogLevel       string               `mapstructure:"logLevel"`
	LogFormat      string               `mapstructure:"logFormat"`
	Simulation     SimulationConfig     `mapstructure:"simulation"`
	Channel        channel.PathLoss     `mapstructure:"channel"`
	Optimizer      OptimizerConfig      `mapstructure:"optimizer"`
	Vehicles       []VehicleConfig      `mapstructure:"vehicles"`
	RandomVehicles RandomVehiclesConfig `mapstructure:"randomVehicles"`
	BaseStations   []BaseStationConfig  `mapstructure:"baseStations"`
	Output         OutputConfig         `mapstructure:"output"`
}

// SimulationConfig controls the stepping loop.
type SimulationConfig struct {
	Steps    int     `mapstructure:"steps"`
	TimeStep float64 `mapstructure:"timeStep"`
	Workers  int     `mapstructure:"workers"`
}

// OptimizerConfig selects the assignment strategy.
type OptimizerConfig struct {
	Type              string `mapstructure:"type"` // greedy or exact
	SkipUnusableLinks bool   `mapstructure:"skipUnusableLinks"`
}

// VehicleConfig is one explicitly placed vehicle.
type VehicleConfig struct {
	ID       int       `mapstructure:"id"`
	Position []float64 `mapstructure:"position"`
	Velocity []float64 `mapstructure:"velocity"`
}

// RandomVehiclesConfig generates additional vehicles from a seed.
type RandomVehiclesConfig struct {
	Count    int       `mapstructure:"count"`
	Seed     int64     `mapstructure:"seed"`
	FirstID  int       `mapstructure:"firstId"`
	Bounds   []float64 `mapstructure:"bounds"` // minX, maxX, minY, maxY
	MaxSpeed float64   `mapstructure:"maxSpeed"`
}

// BaseStationConfig is one base station.
type BaseStationConfig struct {
	ID          int       `mapstructure:"id"`
	Position    []float64 `mapstructure:"position"`
	MaxCapacity int       `mapstructure:"maxCapacity"`
}

// OutputConfig enables the result sinks.
type OutputConfig struct {
	JSON      JSONConfig      `mapstructure:"json"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Influx    InfluxConfig    `mapstructure:"influx"`
	Report    ReportConfig    `mapstructure:"report"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// JSONConfig holds the simulation log settings.
type JSONConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Path     string `mapstructure:"path"`
	Compress bool   `mapstructure:"compress"`
}

// StorageConfig holds the database settings.
type StorageConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"` // sqlite or postgres
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
}

// InfluxConfig holds the InfluxDB v2 settings.
type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

// ReportConfig holds the spreadsheet report settings.
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TelemetryConfig toggles OpenTelemetry instruments.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "console")

	v.SetDefault("simulation.steps", 50)
	v.SetDefault("simulation.timeStep", 0.5)
	v.SetDefault("simulation.workers", 1)

	p := channel.DefaultPathLoss()
	v.SetDefault("channel.p0", p.P0)
	v.SetDefault("channel.alpha", p.Alpha)
	v.SetDefault("channel.noiseFloor", p.NoiseFloor)
	v.SetDefault("channel.scale", p.Scale)

	v.SetDefault("optimizer.type", "greedy")
	v.SetDefault("optimizer.skipUnusableLinks", false)

	v.SetDefault("randomVehicles.count", 0)
	v.SetDefault("randomVehicles.seed", 1)
	v.SetDefault("randomVehicles.firstId", 1000)
	v.SetDefault("randomVehicles.bounds", []float64{0, 2000, 0, 1000})
	v.SetDefault("randomVehicles.maxSpeed", 30.0)

	v.SetDefault("output.json.enabled", true)
	v.SetDefault("output.json.path", "simulation_log.json")
	v.SetDefault("output.json.compress", false)

	v.SetDefault("output.storage.enabled", false)
	v.SetDefault("output.storage.driver", "sqlite")
	v.SetDefault("output.storage.path", "v2x.db")
	v.SetDefault("output.storage.dsn", "")

	v.SetDefault("output.influx.enabled", false)
	v.SetDefault("output.influx.url", "http://localhost:8086")
	v.SetDefault("output.influx.token", "")
	v.SetDefault("output.influx.org", "v2x")
	v.SetDefault("output.influx.bucket", "v2x-sim")

	v.SetDefault("output.report.enabled", false)
	v.SetDefault("output.report.path", "report.xlsx")

	v.SetDefault("output.telemetry.enabled", false)
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"steps":     "simulation.steps",
	"dt":        "simulation.timeStep",
	"workers":   "simulation.workers",
	"log-level": "logLevel",
}

// Load reads the scenario at path, applies defaults, environment variables
// and any flags that were set, then validates the result. The file type is
// taken from the extension. An empty path loads defaults only.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Simulation.Steps < 0 {
		return invalid("simulation.steps must be non-negative, got %d", c.Simulation.Steps)
	}
	if c.Simulation.TimeStep < 0 || math.IsNaN(c.Simulation.TimeStep) || math.IsInf(c.Simulation.TimeStep, 0) {
		return invalid("simulation.timeStep must be finite and non-negative, got %v", c.Simulation.TimeStep)
	}
	if c.Simulation.Workers < 0 {
		return invalid("simulation.workers must be non-negative, got %d", c.Simulation.Workers)
	}

	switch strings.ToLower(c.Optimizer.Type) {
	case "greedy", "exact":
	default:
		return invalid("unknown optimizer type %q", c.Optimizer.Type)
	}

	for i, vc := range c.Vehicles {
		if len(vc.Position) != 2 {
			return invalid("vehicles[%d].position must have 2 components", i)
		}
		if len(vc.Velocity) != 2 {
			return invalid("vehicles[%d].velocity must have 2 components", i)
		}
	}
	for i, bc := range c.BaseStations {
		if len(bc.Position) != 2 {
			return invalid("baseStations[%d].position must have 2 components", i)
		}
		if bc.MaxCapacity < 0 {
			return invalid("baseStations[%d].maxCapacity must be non-negative, got %d", i, bc.MaxCapacity)
		}
	}

	rv := c.RandomVehicles
	if rv.Count < 0 {
		return invalid("randomVehicles.count must be non-negative, got %d", rv.Count)
	}
	if rv.Count > 0 {
		if len(rv.Bounds) != 4 || rv.Bounds[0] > rv.Bounds[1] || rv.Bounds[2] > rv.Bounds[3] {
			return invalid("randomVehicles.bounds must be [minX, maxX, minY, maxY], got %v", rv.Bounds)
		}
		if rv.MaxSpeed < 0 {
			return invalid("randomVehicles.maxSpeed must be non-negative, got %v", rv.MaxSpeed)
		}
	}

	if c.Output.Storage.Enabled {
		switch c.Output.Storage.Driver {
		case "sqlite", "postgres":
		default:
			return invalid("unknown storage driver %q", c.Output.Storage.Driver)
		}
	}
	return nil
}

// Entities builds the vehicles (explicit ones first, then generated ones)
// and the base stations.
func (c *Config) Entities() ([]entity.Vehicle, []entity.BaseStation, error) {
	vehicles := make([]entity.Vehicle, 0, len(c.Vehicles)+c.RandomVehicles.Count)
	for i, vc := range c.Vehicles {
		pos, err := common.FromSlice(vc.Position)
		if err != nil {
			return nil, nil, fmt.Errorf("vehicles[%d].position: %w", i, err)
		}
		vel, err := common.FromSlice(vc.Velocity)
		if err != nil {
			return nil, nil, fmt.Errorf("vehicles[%d].velocity: %w", i, err)
		}
		vehicles = append(vehicles, entity.NewVehicle(vc.ID, pos, vel))
	}

	generated, err := c.RandomVehicles.generate()
	if err != nil {
		return nil, nil, err
	}
	vehicles = append(vehicles, generated...)

	stations := make([]entity.BaseStation, 0, len(c.BaseStations))
	for i, bc := range c.BaseStations {
		pos, err := common.FromSlice(bc.Position)
		if err != nil {
			return nil, nil, fmt.Errorf("baseStations[%d].position: %w", i, err)
		}
		bs, err := entity.NewBaseStation(bc.ID, pos, bc.MaxCapacity)
		if err != nil {
			return nil, nil, fmt.Errorf("baseStations[%d]: %w", i, err)
		}
		stations = append(stations, bs)
	}
	return vehicles, stations, nil
}

// generate places Count vehicles uniformly inside Bounds, heading in a
// uniform direction at a uniform speed up to MaxSpeed. The same seed always
// yields the same vehicles.
func (rv RandomVehiclesConfig) generate() ([]entity.Vehicle, error) {
	if rv.Count == 0 {
		return nil, nil
	}
	rng := rand.New(rand.NewSource(rv.Seed))
	vehicles := make([]entity.Vehicle, 0, rv.Count)
	for i := 0; i < rv.Count; i++ {
		pos, err := common.NewRandomVector(rng, rv.Bounds)
		if err != nil {
			return nil, fmt.Errorf("randomVehicles: %w", err)
		}
		heading := rng.Float64() * 2 * math.Pi
		speed := rng.Float64() * rv.MaxSpeed
		vel := common.NewVector(math.Cos(heading), math.Sin(heading)).Scale(speed)
		vehicles = append(vehicles, entity.NewVehicle(rv.FirstID+i, pos, vel))
	}
	return vehicles, nil
}

// ChannelModel returns the configured path loss law.
func (c *Config) ChannelModel() channel.PathLoss {
	return c.Channel
}

// NewOptimizer returns the configured assignment strategy.
func (c *Config) NewOptimizer() assignment.Optimizer {
	if strings.EqualFold(c.Optimizer.Type, "exact") {
		return assignment.Exact{SkipUnusableLinks: c.Optimizer.SkipUnusableLinks}
	}
	return assignment.Greedy{SkipUnusableLinks: c.Optimizer.SkipUnusableLinks}
}
