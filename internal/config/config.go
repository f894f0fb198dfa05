package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Matrix struct {
	Rows    []string `yaml:"rows"`    // 8 output pins, row 0 first
	Columns []string `yaml:"columns"` // 8 input pins, column 0 first
}

type Link struct {
	Data     string `yaml:"data"`
	Clock    string `yaml:"clock"`
	Inverted bool   `yaml:"inverted"` // transistor line drivers invert
}

type Timing struct {
	SignalDelayMs  uint `yaml:"signal_delay_ms"`
	KeyReadDelayMs uint `yaml:"key_read_delay_ms"`
	BootDelayMs    uint `yaml:"boot_delay_ms"`
}

type Monitor struct {
	Addr string `yaml:"addr"` // empty disables the monitor
}

type Indicator struct {
	Enabled bool   `yaml:"enabled"`
	SPI     string `yaml:"spi"` // e.g. /dev/spidev0.0, empty picks the first port
	Pixels  int    `yaml:"pixels"`
}

type Sim struct {
	Text string `yaml:"text"` // typed once at start-up by the simulated keyboard
}

type Config struct {
	Driver string `yaml:"driver"` // "gpio" | "sim"

	Matrix    Matrix    `yaml:"matrix"`
	Link      Link      `yaml:"link"`
	Timing    Timing    `yaml:"timing"`
	Monitor   Monitor   `yaml:"monitor"`
	Indicator Indicator `yaml:"indicator"`
	Sim       Sim       `yaml:"sim,omitempty"`
}

// Default returns the stock wiring for a Raspberry Pi header and the
// firmware's compile-time timings.
func Default() *Config {
	return &Config{
		Driver: "gpio",
		Matrix: Matrix{
			Rows:    []string{"GPIO4", "GPIO5", "GPIO6", "GPIO12", "GPIO13", "GPIO16", "GPIO19", "GPIO20"},
			Columns: []string{"GPIO22", "GPIO23", "GPIO24", "GPIO25", "GPIO26", "GPIO27", "GPIO14", "GPIO15"},
		},
		Link: Link{Data: "GPIO17", Clock: "GPIO18", Inverted: true},
		Timing: Timing{
			SignalDelayMs:  4,
			KeyReadDelayMs: 115,
			BootDelayMs:    1000,
		},
		Indicator: Indicator{Pixels: 1},
	}
}

// Load reads path over the defaults, so a partial file only overrides what it names.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
