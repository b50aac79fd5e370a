// Package config loads the server configuration with viper. Every key has a default,
// so a missing config file yields a fully usable configuration.
package config

import (
	"errors"
	"flight-control/internal/aircraft"
	"flight-control/internal/autopilot"
	"flight-control/internal/camera"
	"flight-control/internal/control"
	"flight-control/internal/curve"
	"flight-control/internal/flight"
	"flight-control/internal/stall"
	"fmt"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "flight_control.cfg.json"

type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

type HTTPConfig struct {
	Port int `json:"port" mapstructure:"port"`
}

type SimConfig struct {
	FrameHz   float64 `json:"frameHz" mapstructure:"frameHz"`
	FixedHz   float64 `json:"fixedHz" mapstructure:"fixedHz"`
	OriginLat float64 `json:"originLat" mapstructure:"originLat"`
	OriginLon float64 `json:"originLon" mapstructure:"originLon"`
}

type FlightConfig struct {
	AimDistance        float64 `json:"aimDistance" mapstructure:"aimDistance"`
	PointerSensitivity float64 `json:"pointerSensitivity" mapstructure:"pointerSensitivity"`
	CameraTrackingRate float64 `json:"cameraTrackingRate" mapstructure:"cameraTrackingRate"`
	ControlSwapRate    float64 `json:"controlSwapRate" mapstructure:"controlSwapRate"`
	UseFixed           bool    `json:"useFixed" mapstructure:"useFixed"`
}

type AutopilotConfig struct {
	Sensitivity         float64 `json:"sensitivity" mapstructure:"sensitivity"`
	AggressiveTurnAngle float64 `json:"aggressiveTurnAngle" mapstructure:"aggressiveTurnAngle"`
}

type AxisSensitivity struct {
	Yaw   float64 `json:"yaw" mapstructure:"yaw"`
	Pitch float64 `json:"pitch" mapstructure:"pitch"`
	Roll  float64 `json:"roll" mapstructure:"roll"`
}

type ControlConfig struct {
	Deadzone               float64         `json:"deadzone" mapstructure:"deadzone"`
	ThrottleStep           float64         `json:"throttleStep" mapstructure:"throttleStep"`
	AxisSensitivity        AxisSensitivity `json:"axisSensitivity" mapstructure:"axisSensitivity"`
	DisableAutopilotOnLock bool            `json:"disableAutopilotOnLock" mapstructure:"disableAutopilotOnLock"`
	HoldOnSuppress         bool            `json:"holdOnSuppress" mapstructure:"holdOnSuppress"`
}

type StallConfig struct {
	EntryVelocity  float64               `json:"entryVelocity" mapstructure:"entryVelocity"`
	ExitVelocity   float64               `json:"exitVelocity" mapstructure:"exitVelocity"`
	MinPitchEval   float64               `json:"minPitchEval" mapstructure:"minPitchEval"`
	AltitudeCutoff float64               `json:"altitudeCutoff" mapstructure:"altitudeCutoff"`
	PitchCurve     []curve.Keyframe      `json:"pitchCurve" mapstructure:"pitchCurve"`
	AltitudeCurve  []curve.Keyframe      `json:"altitudeCurve" mapstructure:"altitudeCurve"`
	Recovery       aircraft.StallCommand `json:"recovery" mapstructure:"recovery"`
}

type CameraConfig struct {
	FieldOfView float64 `json:"fieldOfView" mapstructure:"fieldOfView"`
	Aspect      float64 `json:"aspect" mapstructure:"aspect"`
	Near        float64 `json:"near" mapstructure:"near"`
	Far         float64 `json:"far" mapstructure:"far"`
}

type Config struct {
	LogLevel string        `json:"logLevel" mapstructure:"logLevel"`
	LogsDir  string        `json:"logsDir" mapstructure:"logsDir"`
	Graylog  GraylogConfig `json:"graylog" mapstructure:"graylog"`
	HTTP     HTTPConfig    `json:"http" mapstructure:"http"`

	Sim       SimConfig       `json:"sim" mapstructure:"sim"`
	Flight    FlightConfig    `json:"flight" mapstructure:"flight"`
	Autopilot AutopilotConfig `json:"autopilot" mapstructure:"autopilot"`
	Control   ControlConfig   `json:"control" mapstructure:"control"`
	Stall     StallConfig     `json:"stall" mapstructure:"stall"`
	Camera    CameraConfig    `json:"camera" mapstructure:"camera"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("http.port", 8080)

	viper.SetDefault("sim.frameHz", 60)
	viper.SetDefault("sim.fixedHz", 50)
	viper.SetDefault("sim.originLat", 32.0853)
	viper.SetDefault("sim.originLon", 34.7818)

	viper.SetDefault("flight.aimDistance", 500)
	viper.SetDefault("flight.pointerSensitivity", 3)
	viper.SetDefault("flight.cameraTrackingRate", 5)
	viper.SetDefault("flight.controlSwapRate", 5)
	viper.SetDefault("flight.useFixed", true)

	viper.SetDefault("autopilot.sensitivity", 5)
	viper.SetDefault("autopilot.aggressiveTurnAngle", 10)

	viper.SetDefault("control.deadzone", control.DefaultDeadzone)
	viper.SetDefault("control.throttleStep", control.DefaultThrottleStep)
	viper.SetDefault("control.axisSensitivity.yaw", 1)
	viper.SetDefault("control.axisSensitivity.pitch", 1)
	viper.SetDefault("control.axisSensitivity.roll", 1)
	viper.SetDefault("control.disableAutopilotOnLock", false)
	viper.SetDefault("control.holdOnSuppress", false)

	viper.SetDefault("stall.entryVelocity", 20)
	viper.SetDefault("stall.exitVelocity", 35)
	viper.SetDefault("stall.minPitchEval", 0.25)
	viper.SetDefault("stall.altitudeCutoff", stall.DefaultAltitudeCutoff)
	viper.SetDefault("stall.pitchCurve", []curve.Keyframe{{X: -1, Y: 0}, {X: 1, Y: 1}})
	viper.SetDefault("stall.altitudeCurve", []curve.Keyframe{{X: 0, Y: 0}, {X: 100, Y: 1}})
	viper.SetDefault("stall.recovery.yaw", 0)
	viper.SetDefault("stall.recovery.pitch", 1)
	viper.SetDefault("stall.recovery.roll", 0)

	viper.SetDefault("camera.fieldOfView", 60)
	viper.SetDefault("camera.aspect", 16.0/9.0)
	viper.SetDefault("camera.near", 0.3)
	viper.SetDefault("camera.far", 5000)
}

// Load reads FileName from configDir over the defaults and validates the result.
// A missing file is not an error.
func Load(configDir string) (*Config, error) {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field constraints the components rely on.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	positive("sim.frameHz", c.Sim.FrameHz)
	positive("sim.fixedHz", c.Sim.FixedHz)
	positive("flight.aimDistance", c.Flight.AimDistance)
	positive("flight.cameraTrackingRate", c.Flight.CameraTrackingRate)
	positive("flight.controlSwapRate", c.Flight.ControlSwapRate)
	positive("camera.fieldOfView", c.Camera.FieldOfView)
	positive("camera.aspect", c.Camera.Aspect)
	positive("camera.near", c.Camera.Near)

	if c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera.far (%v) must exceed camera.near (%v)", c.Camera.Far, c.Camera.Near))
	}
	if c.Stall.ExitVelocity <= c.Stall.EntryVelocity {
		errs = append(errs, fmt.Errorf("stall.exitVelocity (%v) must exceed stall.entryVelocity (%v)",
			c.Stall.ExitVelocity, c.Stall.EntryVelocity))
	}
	if c.Control.Deadzone < 0 || c.Control.Deadzone >= 1 {
		errs = append(errs, fmt.Errorf("control.deadzone must be in [0, 1), got %v", c.Control.Deadzone))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	if _, err := c.StallDetector(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// StallDetector builds the detector configuration, compiling both curves.
func (c *Config) StallDetector() (stall.Config, error) {
	pitch, err := curve.New(c.Stall.PitchCurve)
	if err != nil {
		return stall.Config{}, fmt.Errorf("stall.pitchCurve: %w", err)
	}
	altitude, err := curve.New(c.Stall.AltitudeCurve)
	if err != nil {
		return stall.Config{}, fmt.Errorf("stall.altitudeCurve: %w", err)
	}
	return stall.Config{
		PitchCurve:     pitch,
		AltitudeCurve:  altitude,
		MinPitchEval:   c.Stall.MinPitchEval,
		AltitudeCutoff: c.Stall.AltitudeCutoff,
		EntryVelocity:  c.Stall.EntryVelocity,
		ExitVelocity:   c.Stall.ExitVelocity,
	}, nil
}

func (c *Config) Arbiter() control.Config {
	s := c.Control.AxisSensitivity
	return control.Config{
		Deadzone:               c.Control.Deadzone,
		Sensitivity:            [3]float64{s.Yaw, s.Pitch, s.Roll},
		ThrottleStep:           c.Control.ThrottleStep,
		DisableAutopilotOnLock: c.Control.DisableAutopilotOnLock,
		HoldOnSuppress:         c.Control.HoldOnSuppress,
	}
}

func (c *Config) Law() autopilot.Law {
	return autopilot.Law{
		Sensitivity:         c.Autopilot.Sensitivity,
		AggressiveTurnAngle: c.Autopilot.AggressiveTurnAngle,
	}
}

func (c *Config) Rig() camera.Config {
	return camera.Config{
		TrackingRate: c.Flight.CameraTrackingRate,
		SwapRate:     c.Flight.ControlSwapRate,
	}
}

func (c *Config) Viewport() camera.Viewport {
	return camera.Viewport{
		FieldOfView: c.Camera.FieldOfView,
		Aspect:      c.Camera.Aspect,
		Near:        c.Camera.Near,
		Far:         c.Camera.Far,
	}
}

func (c *Config) Controller() flight.Config {
	return flight.Config{
		AimDistance:        c.Flight.AimDistance,
		PointerSensitivity: c.Flight.PointerSensitivity,
		SwapRate:           c.Flight.ControlSwapRate,
		UseFixed:           c.Flight.UseFixed,
	}
}
