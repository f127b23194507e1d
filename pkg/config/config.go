package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/peter-kozarec/btlite/pkg/common"
	"github.com/peter-kozarec/btlite/pkg/data/duckdb"
	"github.com/peter-kozarec/btlite/pkg/middleware"
	"github.com/peter-kozarec/btlite/pkg/simulation"
)

const EnvPrefix = "BTLITE"

const (
	DataKindDuckDB    = "duckdb"
	DataKindBinary    = "binary"
	DataKindSynthetic = "synthetic"
)

var (
	ErrEmptyPath     = errors.New("config path cannot be empty")
	ErrInvalidConfig = errors.New("invalid configuration")
)

type Config struct {
	Log        LogConfig         `mapstructure:"log"`
	Simulation SimulationConfig  `mapstructure:"simulation"`
	Contracts  []common.Contract `mapstructure:"contracts"`
	Data       DataConfig        `mapstructure:"data"`
	Sandbox    SandboxConfig     `mapstructure:"sandbox"`
	Strategy   StrategyConfig    `mapstructure:"strategy"`
	Monitor    []string          `mapstructure:"monitor"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

type SimulationConfig struct {
	InitialCash      float64       `mapstructure:"initial_cash"`
	TradeLag         time.Duration `mapstructure:"trade_lag"`
	From             time.Time     `mapstructure:"from"`
	To               time.Time     `mapstructure:"to"`
	Location         string        `mapstructure:"location"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
}

// DataConfig selects where reference prices come from. Path and Table are
// used by duckdb, Files by binary and the remaining fields by synthetic.
type DataConfig struct {
	Kind       string        `mapstructure:"kind"`
	Path       string        `mapstructure:"path"`
	Table      string        `mapstructure:"table"`
	Files      []FileConfig  `mapstructure:"files"`
	Seed       int64         `mapstructure:"seed"`
	StartPrice float64       `mapstructure:"start_price"`
	Mu         float64       `mapstructure:"mu"`
	Sigma      float64       `mapstructure:"sigma"`
	Interval   time.Duration `mapstructure:"interval"`
	Steps      int64         `mapstructure:"steps"`
}

type FileConfig struct {
	Symbol string `mapstructure:"symbol"`
	Path   string `mapstructure:"path"`
}

type SandboxConfig struct {
	Slippage     float64 `mapstructure:"slippage"`
	TickRounding bool    `mapstructure:"tick_rounding"`
	MaxFillQty   float64 `mapstructure:"max_fill_qty"`
}

type StrategyConfig struct {
	Symbol           string  `mapstructure:"symbol"`
	Fraction         float64 `mapstructure:"fraction"`
	EntryTimeInForce string  `mapstructure:"entry_time_in_force"`
}

// Load reads the YAML file at path. Every key can be overridden by an
// environment variable, e.g. BTLITE_SIMULATION_INITIAL_CASH.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.development", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("simulation.initial_cash", 100_000.0)
	v.SetDefault("simulation.trade_lag", simulation.DefaultTradeLag)
	v.SetDefault("simulation.location", "UTC")
	v.SetDefault("simulation.snapshot_interval", time.Hour)

	v.SetDefault("data.kind", DataKindDuckDB)
	v.SetDefault("data.table", duckdb.DefaultTable)
	v.SetDefault("data.seed", 1)
	v.SetDefault("data.start_price", 100.0)
	v.SetDefault("data.mu", 0.05)
	v.SetDefault("data.sigma", 0.2)
	v.SetDefault("data.interval", time.Minute)
	v.SetDefault("data.steps", 0)

	v.SetDefault("sandbox.slippage", 0.0)
	v.SetDefault("sandbox.tick_rounding", false)
	v.SetDefault("sandbox.max_fill_qty", 0.0)

	v.SetDefault("strategy.fraction", 0.1)
	v.SetDefault("strategy.entry_time_in_force", "fok")

	v.SetDefault("monitor", []string{})
}

func (c *Config) Validate() error {
	if c.Simulation.InitialCash <= 0 {
		return invalid("simulation.initial_cash must be positive, got %v", c.Simulation.InitialCash)
	}
	if c.Simulation.TradeLag < 0 {
		return invalid("simulation.trade_lag must not be negative, got %v", c.Simulation.TradeLag)
	}
	if c.Simulation.From.IsZero() || c.Simulation.To.IsZero() {
		return invalid("simulation.from and simulation.to are required")
	}
	if !c.Simulation.To.After(c.Simulation.From) {
		return invalid("simulation.to %v must be after simulation.from %v", c.Simulation.To, c.Simulation.From)
	}
	if _, err := time.LoadLocation(c.Simulation.Location); err != nil {
		return invalid("simulation.location %q: %v", c.Simulation.Location, err)
	}
	if c.Simulation.SnapshotInterval < 0 {
		return invalid("simulation.snapshot_interval must not be negative, got %v", c.Simulation.SnapshotInterval)
	}

	if err := c.validateContracts(); err != nil {
		return err
	}
	if err := c.validateData(); err != nil {
		return err
	}

	if c.Sandbox.Slippage < 0 {
		return invalid("sandbox.slippage must not be negative, got %v", c.Sandbox.Slippage)
	}
	if c.Sandbox.MaxFillQty < 0 {
		return invalid("sandbox.max_fill_qty must not be negative, got %v", c.Sandbox.MaxFillQty)
	}

	if c.Strategy.Fraction <= 0 || c.Strategy.Fraction > 1 {
		return invalid("strategy.fraction must be in (0, 1], got %v", c.Strategy.Fraction)
	}
	if _, err := c.Strategy.TimeInForce(); err != nil {
		return invalid("strategy.entry_time_in_force: %v", err)
	}
	if _, ok := middleware.ParseMonitorFlags(c.Monitor...); !ok {
		return invalid("unknown monitor flag in %v", c.Monitor)
	}
	return nil
}

func (c *Config) validateContracts() error {
	if len(c.Contracts) == 0 {
		return invalid("at least one contract is required")
	}

	seen := make(map[string]struct{}, len(c.Contracts))
	for _, contract := range c.Contracts {
		if contract.Symbol == "" {
			return invalid("contract without symbol")
		}
		if contract.Multiplier <= 0 {
			return invalid("contract %s multiplier must be positive, got %v", contract.Symbol, contract.Multiplier)
		}
		if contract.TickSize < 0 {
			return invalid("contract %s tick_size must not be negative, got %v", contract.Symbol, contract.TickSize)
		}
		key := strings.ToUpper(contract.Symbol)
		if _, ok := seen[key]; ok {
			return invalid("duplicate contract %s", contract.Symbol)
		}
		seen[key] = struct{}{}
	}

	if _, ok := seen[strings.ToUpper(c.Strategy.Symbol)]; !ok {
		return invalid("strategy.symbol %q has no contract", c.Strategy.Symbol)
	}
	return nil
}

func (c *Config) validateData() error {
	switch c.Data.Kind {
	case DataKindDuckDB:
		if c.Data.Path == "" {
			return invalid("data.path is required for kind %s", c.Data.Kind)
		}
	case DataKindBinary:
		if len(c.Data.Files) == 0 {
			return invalid("data.files is required for kind %s", c.Data.Kind)
		}
		for _, file := range c.Data.Files {
			if file.Symbol == "" || file.Path == "" {
				return invalid("data.files entries need symbol and path")
			}
		}
	case DataKindSynthetic:
		if c.Data.StartPrice <= 0 {
			return invalid("data.start_price must be positive, got %v", c.Data.StartPrice)
		}
		if c.Data.Sigma < 0 {
			return invalid("data.sigma must not be negative, got %v", c.Data.Sigma)
		}
		if c.Data.Interval <= 0 {
			return invalid("data.interval must be positive, got %v", c.Data.Interval)
		}
	default:
		return invalid("unknown data.kind %q", c.Data.Kind)
	}
	return nil
}

// TimeInForce parses the configured entry time in force.
func (s StrategyConfig) TimeInForce() (common.TimeInForce, error) {
	return common.ParseTimeInForce(s.EntryTimeInForce)
}

// SyntheticSteps is the number of generated prices. Without an explicit step
// count the whole simulation period is covered.
func (c *Config) SyntheticSteps() int64 {
	if c.Data.Steps > 0 {
		return c.Data.Steps
	}
	return int64(c.Simulation.To.Sub(c.Simulation.From)/c.Data.Interval) + 1
}

func (c *Config) MonitorFlags() middleware.MonitorFlags {
	flags, _ := middleware.ParseMonitorFlags(c.Monitor...)
	return flags
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Simulation.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig)
}
