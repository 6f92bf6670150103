// Package sampler drives sampling campaigns: it schedules measurement
// requests against device endpoints on a drift-free deadline grid and owns
// the resulting runs until they are finalized.
package sampler

import (
	"fmt"
	"math"
	"time"
)

// resolutionTolerance is the relative slack allowed when samples, duration
// and frequency are all given and must agree.
const resolutionTolerance = 1e-3

// Config bounds one sampling campaign.
type Config struct {
	// Samples is how many measurements to attempt.
	Samples uint64 `json:"samples" mapstructure:"samples"`
	// Duration bounds the campaign's wall time; 0 leaves the campaign
	// bounded by Samples alone.
	Duration time.Duration `json:"duration" mapstructure:"duration"`
	// FrequencyHz is the sampling rate.
	FrequencyHz float64 `json:"frequency_hz" mapstructure:"frequency"`
	// MaxConsecutiveFailures aborts a run once this many samples in a row
	// have failed.
	MaxConsecutiveFailures uint `json:"max_consecutive_failures" mapstructure:"max-consecutive-failures"`
}

// ConfigError marks an invalid sampling configuration. It fails a campaign
// before any device is contacted.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return "invalid sampling config: " + e.msg }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// IsConfigError reports whether err is a sampling configuration error.
func IsConfigError(err error) bool {
	_, ok := err.(*ConfigError)
	return ok
}

// Validate checks the config before a run starts.
func (c Config) Validate() error {
	if c.Samples < 1 {
		return configErrorf("samples = %d, need at least 1", c.Samples)
	}
	if c.Duration < 0 {
		return configErrorf("duration = %v, cannot be negative", c.Duration)
	}
	if c.FrequencyHz <= 0 {
		return configErrorf("frequency = %v Hz, must be positive", c.FrequencyHz)
	}
	if c.MaxConsecutiveFailures < 1 {
		return configErrorf("max consecutive failures = %d, need at least 1", c.MaxConsecutiveFailures)
	}
	return nil
}

// Interval returns the time between consecutive sample deadlines.
func (c Config) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.FrequencyHz)
}

// Resolve fills in a missing member of the {samples, duration, frequency}
// triple from the other two; any two determine the third. When all three are
// set they must agree within a relative tolerance. Zero values count as
// unset.
func (c Config) Resolve() (Config, error) {
	haveSamples := c.Samples > 0
	haveDuration := c.Duration > 0
	haveFrequency := c.FrequencyHz > 0

	switch {
	case haveSamples && haveDuration && haveFrequency:
		implied := c.Duration.Seconds() * c.FrequencyHz
		if math.Abs(float64(c.Samples)-implied) > resolutionTolerance*float64(c.Samples) {
			return c, configErrorf("samples=%d, duration=%v and frequency=%vHz disagree (duration*frequency = %.3f)",
				c.Samples, c.Duration, c.FrequencyHz, implied)
		}
	case haveSamples && haveFrequency:
		c.Duration = time.Duration(float64(c.Samples) / c.FrequencyHz * float64(time.Second))
	case haveSamples && haveDuration:
		c.FrequencyHz = float64(c.Samples) / c.Duration.Seconds()
	case haveDuration && haveFrequency:
		c.Samples = uint64(math.Round(c.Duration.Seconds() * c.FrequencyHz))
		if c.Samples < 1 {
			return c, configErrorf("duration=%v at frequency=%vHz yields no samples", c.Duration, c.FrequencyHz)
		}
	default:
		return c, configErrorf("need at least two of samples, duration and frequency")
	}
	return c, nil
}
