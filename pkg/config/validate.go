package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// ValidationError represents an error found during settings validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that settings are usable.
func (s *Settings) Validate() error {
	var errs []string

	if s.MassTolerancePPM <= 0 {
		errs = append(errs, "massTolerancePPM must be positive")
	}
	if s.MinFeatureLengthPoints < 0 {
		errs = append(errs, "minFeatureLengthPoints must be non-negative")
	}
	if s.LCGapMaxSize < 0 {
		errs = append(errs, "lcGapMaxSize must be non-negative")
	}
	if s.IMSMaxDaCorrection < 0 {
		errs = append(errs, "imsMaxDaCorrection must be non-negative")
	}
	if s.SmoothingBandwidth < 0 {
		errs = append(errs, "smoothingBandwidth must be non-negative")
	}
	if s.TheoreticalFWHM <= 0 {
		errs = append(errs, "theoreticalFWHM must be positive")
	}
	if s.DaltonThreshold < 0 || s.DaltonThreshold > 1 {
		errs = append(errs, "daltonThreshold must be between 0 and 1")
	}
	if s.Workers < 0 {
		errs = append(errs, "workers must be non-negative")
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		errs = append(errs, fmt.Sprintf("unknown logLevel '%s'", s.LogLevel))
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Settings",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}
