package bellchoir

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config holds the options of the bellchoir-play command. It is filled by
// viper from flags, the config file and BELLCHOIR_* environment variables.
type Config struct {
	Play      bool   `mapstructure:"play"`
	Wav       bool   `mapstructure:"wav"`
	Raw       bool   `mapstructure:"raw"`
	MIDI      bool   `mapstructure:"midi"`
	Stdout    bool   `mapstructure:"stdout"`
	OutputDir string `mapstructure:"output_dir"`

	// Gap is the number of silent samples written after each note.
	Gap int `mapstructure:"gap"`
	// Announce prints the name of every pitch as it is dispatched.
	Announce bool `mapstructure:"announce"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Gap:      GapSamples,
		Announce: true,
		LogLevel: "warn",
	}
}

// Validate checks the ranges of the numeric options and the log level.
func (c Config) Validate() error {
	if c.Gap < 0 || c.Gap > MeasureSamples {
		return fmt.Errorf("gap must be between 0 and %d samples, got %d", MeasureSamples, c.Gap)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelWarn, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Outputs reports if any file output has been requested.
func (c Config) Outputs() bool {
	return c.Wav || c.Raw || c.MIDI
}
