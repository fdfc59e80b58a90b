// Package config loads engine settings from YAML with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-flowlink/pkg/constraints"
	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
	"github.com/dd0wney/cluso-flowlink/pkg/logging"
	"github.com/dd0wney/cluso-flowlink/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Default configuration values
const (
	DefaultSnapRadius        = 30.0
	DefaultBezierCurvature   = 0.5
	DefaultLabelPosition     = 0.5
	DefaultConditionPosition = 0.25
	DefaultLogLevel          = "info"
)

// Environment variables read by ApplyEnv.
const (
	EnvStyle          = "FLOWLINK_STYLE"
	EnvSnapRadius     = "FLOWLINK_SNAP_RADIUS"
	EnvAllowSelfLoop  = "FLOWLINK_ALLOW_SELF_LOOP"
	EnvEnforceAcyclic = "FLOWLINK_ENFORCE_ACYCLIC"
	EnvLogLevel       = "LOG_LEVEL"
)

// Config holds the engine configuration.
type Config struct {
	// Style is the default style for new connections.
	Style diagram.Style `yaml:"style" json:"style"`

	// SnapRadius is the magnetic snap distance in layout units.
	SnapRadius float64 `yaml:"snap_radius" json:"snapRadius"`

	AllowSelfLoop  bool `yaml:"allow_self_loop" json:"allowSelfLoop"`
	EnforceAcyclic bool `yaml:"enforce_acyclic" json:"enforceAcyclic"`

	// BezierCurvature is k in the control point offset k*|dx|.
	BezierCurvature float64 `yaml:"bezier_curvature" json:"bezierCurvature" validate:"finite,gte=0"`

	// LabelPosition and ConditionPosition are path parameters in [0, 1].
	LabelPosition     float64 `yaml:"label_position" json:"labelPosition" validate:"finite"`
	ConditionPosition float64 `yaml:"condition_position" json:"conditionPosition" validate:"finite"`

	LogLevel string `yaml:"log_level" json:"logLevel"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Style:             diagram.DefaultStyle,
		SnapRadius:        DefaultSnapRadius,
		BezierCurvature:   DefaultBezierCurvature,
		LabelPosition:     DefaultLabelPosition,
		ConditionPosition: DefaultConditionPosition,
		LogLevel:          DefaultLogLevel,
	}
}

// Load reads path, applies environment overrides and validates the result.
// Fields missing from the file keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Parse decodes YAML over the defaults. Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvStyle); v != "" {
		c.Style = diagram.Style(strings.ToLower(v))
	}
	if v := os.Getenv(EnvSnapRadius); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvSnapRadius, v, err)
		}
		c.SnapRadius = r
	}
	if v := os.Getenv(EnvAllowSelfLoop); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvAllowSelfLoop, v, err)
		}
		c.AllowSelfLoop = b
	}
	if v := os.Getenv(EnvEnforceAcyclic); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvEnforceAcyclic, v, err)
		}
		c.EnforceAcyclic = b
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

var styleNames = []string{
	string(diagram.StyleBezier),
	string(diagram.StyleStraight),
	string(diagram.StyleOrthogonal),
}

// Validate checks struct tags first, then the cross-field rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	return validation.NewConfigValidator("Config").
		When(c.Style != "", func(cv *validation.ConfigValidator) {
			cv.OneOf("Style", string(c.Style), styleNames)
		}).
		Finite("SnapRadius", c.SnapRadius).
		PositiveFloat("SnapRadius", c.SnapRadius).
		RangeFloat("LabelPosition", c.LabelPosition, 0, 1).
		RangeFloat("ConditionPosition", c.ConditionPosition, 0, 1).
		Custom("LogLevel", func() error {
			_, err := logging.ParseLevel(c.LogLevel)
			return err
		}).
		Validate()
}

// Level returns the parsed log level, InfoLevel if it does not parse.
func (c *Config) Level() logging.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}

// ConstraintOptions maps the config onto the validator options.
func (c *Config) ConstraintOptions() constraints.Options {
	return constraints.Options{
		AllowSelfLoop:  c.AllowSelfLoop,
		EnforceAcyclic: c.EnforceAcyclic,
	}
}
