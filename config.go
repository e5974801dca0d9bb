package qbloch

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. QBLOCH_STEP.
const EnvPrefix = "qbloch"

var initialStates = map[string][2]complex128{
	"0":  {1, 0},
	"1":  {0, 1},
	"+":  {complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)},
	"-":  {complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)},
	"+i": {complex(1/math.Sqrt2, 0), complex(0, 1/math.Sqrt2)},
	"-i": {complex(1/math.Sqrt2, 0), complex(0, -1/math.Sqrt2)},
}

type Config struct {
	// Step is how far the interpolation parameter advances per tick.
	Step float64
	// TickInterval is the period of the animation clock.
	TickInterval time.Duration
	// ViaAxis names the axis antipodal transitions pass through. Empty picks
	// a perpendicular automatically.
	ViaAxis string
	// Seed makes measurements reproducible. Zero uses the global source.
	Seed uint64
	// Initial is the starting basis label: 0, 1, +, -, +i or -i.
	Initial string
	// BufferSize is the channel capacity handed to each broadcast subscriber.
	BufferSize int
}

func NewConfig() *Config {
	return &Config{
		Step:         0.02,
		TickInterval: time.Second / 30,
		Initial:      "0",
		BufferSize:   10,
	}
}

/*
LoadConfig layers, from lowest to highest precedence, the defaults of
NewConfig, an optional config file (any format viper understands) and
QBLOCH_* environment variables. A .env file in the working directory is
loaded into the environment first; variables already set win. The result is
validated before it is returned.
*/
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	def := NewConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("step", def.Step)
	v.SetDefault("tick_interval", def.TickInterval)
	v.SetDefault("via_axis", def.ViaAxis)
	v.SetDefault("seed", def.Seed)
	v.SetDefault("initial", def.Initial)
	v.SetDefault("buffer_size", def.BufferSize)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Step:         v.GetFloat64("step"),
		TickInterval: v.GetDuration("tick_interval"),
		ViaAxis:      v.GetString("via_axis"),
		Seed:         v.GetUint64("seed"),
		Initial:      v.GetString("initial"),
		BufferSize:   v.GetInt("buffer_size"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot drive a session.
func (c *Config) Validate() error {
	if !(c.Step > 0 && c.Step <= 1) {
		return fmt.Errorf("step must be in (0, 1], got %g", c.Step)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	if c.ViaAxis != "" {
		if _, err := ParseAxis(c.ViaAxis); err != nil {
			return fmt.Errorf("via axis: %w", err)
		}
	}
	if _, ok := initialStates[c.Initial]; !ok {
		return fmt.Errorf("unknown initial state %q", c.Initial)
	}
	if c.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	return nil
}

func (c *Config) amplitudes() (complex128, complex128) {
	amps := initialStates[c.Initial]
	return amps[0], amps[1]
}

func (c *Config) slerpOptions() []SlerpOption {
	if c.ViaAxis == "" {
		return nil
	}

	axis, err := ParseAxis(c.ViaAxis)
	if err != nil {
		return nil
	}
	return []SlerpOption{WithViaAxis(axis)}
}

func (c *Config) randomSource() RandomSource {
	if c.Seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(c.Seed, c.Seed^0x9e3779b97f4a7c15))
}
