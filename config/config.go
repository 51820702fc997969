// Package config loads breadcrumbs settings from a YAML file with
// BREADCRUMBS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/o0olele/breadcrumbs-go/capture"
	"github.com/o0olele/breadcrumbs-go/graph"
	"github.com/o0olele/breadcrumbs-go/query"
	"github.com/o0olele/breadcrumbs-go/route"
	"github.com/o0olele/breadcrumbs-go/trail"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BREADCRUMBS_"

// Config holds all breadcrumbs configuration.
type Config struct {
	Trail       TrailConfig       `yaml:"trail" envPrefix:"TRAIL_"`
	Capture     CaptureConfig     `yaml:"capture" envPrefix:"CAPTURE_"`
	Graph       GraphConfig       `yaml:"graph" envPrefix:"GRAPH_"`
	Navigator   NavigatorConfig   `yaml:"navigator" envPrefix:"NAVIGATOR_"`
	Repair      RepairConfig      `yaml:"repair" envPrefix:"REPAIR_"`
	Persistence PersistenceConfig `yaml:"persistence" envPrefix:"PERSISTENCE_"`
	Server      ServerConfig      `yaml:"server" envPrefix:"SERVER_"`
	Logging     LoggingConfig     `yaml:"logging" envPrefix:"LOGGING_"`
}

// TrailConfig configures the breadcrumb recorder.
type TrailConfig struct {
	MinDist          float64 `yaml:"min_dist" env:"MIN_DIST" validate:"gte=0"`
	MaxIntervalTicks int64   `yaml:"max_interval_ticks" env:"MAX_INTERVAL_TICKS" validate:"gt=0"`
	MergeDist        float64 `yaml:"merge_dist" env:"MERGE_DIST" validate:"gte=0"`
	MaxCount         int     `yaml:"max_count" env:"MAX_COUNT" validate:"gte=2"`
	TailOnReset      int     `yaml:"tail_on_reset" env:"TAIL_ON_RESET" validate:"gte=0"`
}

// CaptureConfig configures route capture.
type CaptureConfig struct {
	CooldownTicks int64 `yaml:"cooldown_ticks" env:"COOLDOWN_TICKS" validate:"gte=0"`
}

// GraphConfig configures the route graph.
type GraphConfig struct {
	KNeighbors  int     `yaml:"k_neighbors" env:"K_NEIGHBORS" validate:"gte=0"`
	MaxEdgeDist float64 `yaml:"max_edge_dist" env:"MAX_EDGE_DIST" validate:"gte=0"`
}

// NavigatorConfig configures waypoint queries.
type NavigatorConfig struct {
	MaxHops       int     `yaml:"max_hops" env:"MAX_HOPS" validate:"gt=0"`
	HopMargin     int     `yaml:"hop_margin" env:"HOP_MARGIN" validate:"gte=0"`
	ReachedRadius float64 `yaml:"reached_radius" env:"REACHED_RADIUS" validate:"gte=0"`
	HideRadius    float64 `yaml:"hide_radius" env:"HIDE_RADIUS" validate:"gtefield=ReachedRadius"`
	MinRenderDist float64 `yaml:"min_render_dist" env:"MIN_RENDER_DIST" validate:"gte=0"`
	OverlayMax    int     `yaml:"overlay_max" env:"OVERLAY_MAX" validate:"gt=0"`
}

// RepairConfig configures bridge node insertion.
type RepairConfig struct {
	OffRouteDist   float64 `yaml:"off_route_dist" env:"OFF_ROUTE_DIST" validate:"gt=0"`
	BridgeStepDist float64 `yaml:"bridge_step_dist" env:"BRIDGE_STEP_DIST" validate:"gte=0"`
	BridgeMinTicks int64   `yaml:"bridge_min_ticks" env:"BRIDGE_MIN_TICKS" validate:"gte=0"`
}

// PersistenceConfig configures the trail store.
type PersistenceConfig struct {
	Path              string `yaml:"path" env:"PATH" validate:"required_without=InMemory"`
	InMemory          bool   `yaml:"in_memory" env:"IN_MEMORY"`
	SaveIntervalTicks int64  `yaml:"save_interval_ticks" env:"SAVE_INTERVAL_TICKS" validate:"gt=0"`
	ServerKey         string `yaml:"server_key" env:"SERVER_KEY"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR" validate:"required"`
	MaxSessions     int           `yaml:"max_sessions" env:"MAX_SESSIONS" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" env:"DEVELOPMENT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Trail: TrailConfig{
			MinDist:          4.0,
			MaxIntervalTicks: 60,
			MergeDist:        2.0,
			MaxCount:         2500,
			TailOnReset:      200,
		},
		Capture: CaptureConfig{
			CooldownTicks: 40,
		},
		Graph: GraphConfig{
			KNeighbors:  6,
			MaxEdgeDist: 40.0,
		},
		Navigator: NavigatorConfig{
			MaxHops:       18,
			HopMargin:     5,
			ReachedRadius: 3.0,
			HideRadius:    6.0,
			MinRenderDist: 2.0,
			OverlayMax:    600,
		},
		Repair: RepairConfig{
			OffRouteDist:   12.0,
			BridgeStepDist: 5.0,
			BridgeMinTicks: 10,
		},
		Persistence: PersistenceConfig{
			Path:              "data/trails",
			SaveIntervalTicks: 200,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			MaxSessions:     256,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. A missing file yields the defaults.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RouteOptions maps the configuration onto controller options.
func (c *Config) RouteOptions() route.Options {
	return route.Options{
		Trail: trail.Options{
			MinDist:          c.Trail.MinDist,
			MaxIntervalTicks: c.Trail.MaxIntervalTicks,
			MergeDist:        c.Trail.MergeDist,
			MaxCount:         c.Trail.MaxCount,
		},
		TailOnReset: c.Trail.TailOnReset,
		Capture: capture.Options{
			CooldownTicks: c.Capture.CooldownTicks,
			MergeDist:     c.Trail.MergeDist,
		},
		Graph: graph.Options{
			KNeighbors:  c.Graph.KNeighbors,
			MaxEdgeDist: c.Graph.MaxEdgeDist,
		},
		Query: query.Options{
			MaxHops:       c.Navigator.MaxHops,
			HopMargin:     c.Navigator.HopMargin,
			ReachedRadius: c.Navigator.ReachedRadius,
			HideRadius:    c.Navigator.HideRadius,
		},
		Repair: route.RepairOptions{
			OffRouteDist:   c.Repair.OffRouteDist,
			BridgeStepDist: c.Repair.BridgeStepDist,
			BridgeMinTicks: c.Repair.BridgeMinTicks,
		},
		MinRenderDist:     c.Navigator.MinRenderDist,
		OverlayMax:        c.Navigator.OverlayMax,
		SaveIntervalTicks: c.Persistence.SaveIntervalTicks,
		PersistKey:        route.SanitizeKey(c.Persistence.ServerKey),
	}
}
