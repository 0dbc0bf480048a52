package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Timing struct {
	Unit  uint32 `yaml:"unit"` // cycles per unit; 0 derives it from the clock
	Short uint32 `yaml:"short"`
	Long  uint32 `yaml:"long"`
	Reset uint32 `yaml:"reset"`
}

type Calibrate struct {
	Enabled bool   `yaml:"enabled"`
	Min     uint32 `yaml:"min"`
	Max     uint32 `yaml:"max"`
	MaxStep uint32 `yaml:"max_step"`
}

type Dim struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type Config struct {
	Backend string `yaml:"backend"` // "periph" | "gpiod" | "rpio" | "sim"
	Pin     string `yaml:"pin"`     // e.g. GPIO12, gpiochip0:12, 12
	Status  string `yaml:"status,omitempty"`
	// StatusInv is a status LED pin that is dark while the frame is lit.
	StatusInv string `yaml:"status_inv,omitempty"`
	Clock     string `yaml:"clock"` // e.g. 80MHz; empty reads the host
	Delay     string `yaml:"delay"` // "spin" | "nanospin" | "counted"

	Timing    Timing    `yaml:"timing"`
	Calibrate Calibrate `yaml:"calibrate"`

	Pattern  string   `yaml:"pattern"` // "blink" | "wheel" | "solid" | "frames" | "index_sweep" | "rgb_channels" | "row_sweep"
	Frames   []string `yaml:"frames,omitempty"`
	PeriodMs int      `yaml:"period_ms"`
	FPS      int      `yaml:"fps"`

	Dim           Dim  `yaml:"dim"`
	XFlipEveryRow bool `yaml:"x_flip_every_row"`

	Addr    string `yaml:"addr,omitempty"`
	Preview bool   `yaml:"preview"`
}

// Default matches the reference board: a 14 LED strip on GPIO12 of an 80MHz
// core, blinking once a second. Load does not apply it; zero fields in a file
// leave the command line values in place.
func Default() *Config {
	return &Config{
		Backend:  "periph",
		Pin:      "GPIO12",
		Clock:    "80MHz",
		Delay:    "spin",
		Timing:   Timing{Short: 1, Long: 2, Reset: 300},
		Pattern:  "blink",
		PeriodMs: 1000,
		FPS:      30,
		Dim:      Dim{X: 14, Y: 1},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
