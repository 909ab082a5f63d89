// Package config reads settings from the environment, an optional .env file
// and an optional YAML optimizer profile.
package config

import (
	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/services/priority"
	"delivery-dispatch-sim/internal/services/routing"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBDriver   string
	DBDSN      string
	SeedPath   string
	RoutesPath string
	Port       string

	RedisURL     string
	RedisChannel string

	LogLevel  string
	LogPretty bool

	HubName       string
	Start         domain.Clock
	DeliveryStart domain.Clock
	Vehicles      int
	Drivers       int
	Capacity      int
	AvgSpeed      float64
	LookAhead     domain.Clock

	Optimizer routing.Params
	Priority  priority.Config
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config %s: %q is not an integer", key, v)
	}
	return n, nil
}

func GetFloat(key string, fallback float64) (float64, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config %s: %q is not a number", key, v)
	}
	return f, nil
}

func GetBool(key string, fallback bool) (bool, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config %s: %q is not a boolean", key, v)
	}
	return b, nil
}

func getClock(key, fallback string) (domain.Clock, error) {
	c, err := domain.ParseClock(Get(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("config %s: %w", key, err)
	}
	return c, nil
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found (using environment variables)")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		DBDriver:     Get("DB_DRIVER", "sqlite"),
		DBDSN:        Get("DATABASE_URL", "data/app.db"),
		SeedPath:     Get("SEED_PATH", "data/seeds/delivery.json"),
		RoutesPath:   Get("ROUTES_PATH", "data/routes.csv"),
		Port:         Get("PORT", "8080"),
		RedisURL:     Get("REDIS_URL", ""),
		RedisChannel: Get("REDIS_CHANNEL", "dispatch:events"),
		LogLevel:     Get("LOG_LEVEL", "info"),
		HubName:      Get("HUB_NAME", "Depot"),
		Priority:     priority.DefaultConfig(),
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	cfg.LogPretty, err = GetBool("LOG_PRETTY", false)
	collect(err)
	cfg.Start, err = getClock("SIM_START", "8:00 AM")
	collect(err)
	cfg.DeliveryStart, err = getClock("SIM_DELIVERY_START", "8:00 AM")
	collect(err)
	cfg.Vehicles, err = GetInt("VEHICLES", 3)
	collect(err)
	cfg.Drivers, err = GetInt("DRIVERS", 2)
	collect(err)
	cfg.Capacity, err = GetInt("VEHICLE_CAPACITY", domain.DefaultCapacity)
	collect(err)
	cfg.AvgSpeed, err = GetFloat("VEHICLE_SPEED_MPH", domain.DefaultAvgSpeed)
	collect(err)
	lookAhead, err := GetInt("DELAY_LOOKAHEAD_MINUTES", 15)
	collect(err)
	cfg.LookAhead = domain.Clock(lookAhead) * domain.Minute

	cfg.Optimizer.NumRoutes, err = GetInt("OPT_ROUTES", 3)
	collect(err)
	cfg.Optimizer.Generations, err = GetInt("OPT_GENERATIONS", 200)
	collect(err)
	cfg.Optimizer.PopulationSize, err = GetInt("OPT_POPULATION", 60)
	collect(err)
	seed, err := GetInt("OPT_SEED", 1)
	collect(err)
	cfg.Optimizer.Seed = int64(seed)

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	if path := Get("OPTIMIZER_PROFILE", ""); path != "" {
		if err := cfg.ApplyProfile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("config DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	if c.Vehicles < 1 || c.Drivers < 1 {
		return fmt.Errorf("config: need at least one vehicle and one driver, got %d and %d", c.Vehicles, c.Drivers)
	}
	if c.Capacity < 1 || c.AvgSpeed <= 0 {
		return fmt.Errorf("config: vehicle capacity and speed must be positive")
	}
	if err := c.Optimizer.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Profile is the YAML optimizer profile. Fields left out keep their defaults.
type Profile struct {
	Optimizer struct {
		Elite         int             `yaml:"elite"`
		CrossoverRate float64         `yaml:"crossover_rate"`
		MutationRate  float64         `yaml:"mutation_rate"`
		Workers       int             `yaml:"workers"`
		Weights       routing.Weights `yaml:"weights"`
	} `yaml:"optimizer"`
	Priority priority.Config `yaml:"priority"`
}

// ApplyProfile overlays the YAML profile at path onto c.
func (c *Config) ApplyProfile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config OPTIMIZER_PROFILE: %q not found", path)
	}
	if err != nil {
		return fmt.Errorf("config OPTIMIZER_PROFILE: %w", err)
	}
	return c.applyProfile(data)
}

func (c *Config) applyProfile(data []byte) error {
	var p Profile
	p.Optimizer.Elite = routing.DefaultElite
	p.Optimizer.CrossoverRate = routing.DefaultCrossoverRate
	p.Optimizer.MutationRate = routing.DefaultMutationRate
	p.Optimizer.Weights = routing.DefaultWeights()
	p.Priority = c.Priority

	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("config OPTIMIZER_PROFILE: parse yaml: %w", err)
	}
	if err := p.Optimizer.Weights.Validate(); err != nil {
		return fmt.Errorf("config OPTIMIZER_PROFILE: %w", err)
	}

	w := p.Optimizer.Weights
	c.Optimizer.Elite = p.Optimizer.Elite
	c.Optimizer.CrossoverRate = p.Optimizer.CrossoverRate
	c.Optimizer.MutationRate = p.Optimizer.MutationRate
	c.Optimizer.Workers = p.Optimizer.Workers
	c.Optimizer.Weights = &w
	c.Priority = p.Priority
	return nil
}
