// Package config loads feature finder settings from defaults, an optional
// configuration file, FEATUREKEY_ environment variables and command flags.
package config

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding settings.
const EnvPrefix = "FEATUREKEY"

// Settings holds the feature finder configuration
type Settings struct {
	MassTolerancePPM         float64 `mapstructure:"massTolerancePPM"`
	UseCharge                bool    `mapstructure:"useCharge"`
	MinFeatureLengthPoints   int     `mapstructure:"minFeatureLengthPoints"`
	LCGapMaxSize             int     `mapstructure:"lcGapMaxSize"`
	IMSMaxDaCorrection       int     `mapstructure:"imsMaxDaCorrection"`
	UseConformationDetection bool    `mapstructure:"useConformationDetection"`
	SmoothingBandwidth       float64 `mapstructure:"smoothingBandwidth"`

	FrameType       int     `mapstructure:"frameType"`
	TheoreticalFWHM float64 `mapstructure:"theoreticalFWHM"`
	DaltonThreshold float64 `mapstructure:"daltonThreshold"`
	Workers         int     `mapstructure:"workers"`
	LogLevel        string  `mapstructure:"logLevel"`
}

// FlagNames maps setting keys to the command-line flags that override them.
var FlagNames = map[string]string{
	"massTolerancePPM":         "ppm",
	"useCharge":                "use-charge",
	"minFeatureLengthPoints":   "min-points",
	"lcGapMaxSize":             "lc-gap",
	"imsMaxDaCorrection":       "max-da",
	"useConformationDetection": "conformations",
	"smoothingBandwidth":       "bandwidth",
	"frameType":                "frame-type",
	"theoreticalFWHM":          "theoretical-fwhm",
	"daltonThreshold":          "dalton-threshold",
	"workers":                  "workers",
	"logLevel":                 "log-level",
}

// setDefaults sets default values for every setting
func setDefaults(v *viper.Viper) {
	v.SetDefault("massTolerancePPM", 20.0)
	v.SetDefault("useCharge", false)
	v.SetDefault("minFeatureLengthPoints", 3)
	v.SetDefault("lcGapMaxSize", 4)
	v.SetDefault("imsMaxDaCorrection", 1)
	v.SetDefault("useConformationDetection", true)
	v.SetDefault("smoothingBandwidth", 1.0)

	v.SetDefault("frameType", 1)
	v.SetDefault("theoreticalFWHM", 4.0)
	v.SetDefault("daltonThreshold", 0.3)
	v.SetDefault("workers", 0)
	v.SetDefault("logLevel", "info")
}

// Default returns the default settings.
func Default() *Settings {
	s, err := Load("", nil)
	if err != nil {
		// Defaults always validate.
		panic(err)
	}
	return s
}

// Load builds settings from defaults, the configuration file at path (if
// not empty), environment variables and the changed flags in flags (may be
// nil). The result is validated.
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		for key, name := range FlagNames {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("error binding flag %s: %w", name, err)
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// WorkerCount returns the number of parallel workers to use.
func (s *Settings) WorkerCount() int {
	if s.Workers <= 0 {
		return runtime.NumCPU()
	}
	return s.Workers
}

// Level returns the slog level named by LogLevel.
func (s *Settings) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
