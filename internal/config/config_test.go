package config

import (
	"os"
	"path/filepath"
	"testing"

	"delivery-dispatch-sim/internal/domain"
	"delivery-dispatch-sim/internal/services/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "VEHICLES", "DRIVERS", "SIM_START", "OPTIMIZER_PROFILE", "OPT_GENERATIONS"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 3, cfg.Vehicles)
	assert.Equal(t, 2, cfg.Drivers)
	assert.Equal(t, domain.NewClock(8, 0, 0), cfg.Start)
	assert.Equal(t, 15*domain.Minute, cfg.LookAhead)
	assert.Equal(t, domain.DefaultCapacity, cfg.Capacity)
	assert.Nil(t, cfg.Optimizer.Weights)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VEHICLES", "2")
	t.Setenv("SIM_START", "7:30 am")
	t.Setenv("VEHICLE_SPEED_MPH", "25.5")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("OPTIMIZER_PROFILE", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Vehicles)
	assert.Equal(t, domain.NewClock(7, 30, 0), cfg.Start)
	assert.Equal(t, 25.5, cfg.AvgSpeed)
	assert.True(t, cfg.LogPretty)
}

func TestFromEnvReportsEveryBadValue(t *testing.T) {
	t.Setenv("VEHICLES", "three")
	t.Setenv("SIM_START", "breakfast")
	t.Setenv("OPTIMIZER_PROFILE", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.ErrorContains(t, err, "VEHICLES")
	assert.ErrorContains(t, err, "SIM_START")
	assert.ErrorIs(t, err, domain.ErrBadClock)
}

func TestFromEnvValidates(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("OPTIMIZER_PROFILE", "")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "mysql")

	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("OPT_GENERATIONS", "0")
	_, err = FromEnv()
	assert.ErrorIs(t, err, routing.ErrBadParameter)
}

func TestApplyProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
optimizer:
  mutation_rate: 0.5
  weights:
    distance: -3
priority:
  batch_bonus: 120
`), 0o644))
	t.Setenv("OPTIMIZER_PROFILE", path)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Optimizer.MutationRate)
	assert.Equal(t, routing.DefaultCrossoverRate, cfg.Optimizer.CrossoverRate)
	require.NotNil(t, cfg.Optimizer.Weights)
	assert.Equal(t, -3.0, cfg.Optimizer.Weights.Distance)
	assert.Equal(t, routing.DefaultWeights().MedianDensity, cfg.Optimizer.Weights.MedianDensity)
	assert.Equal(t, 120.0, cfg.Priority.BatchBonus)
	assert.Equal(t, 50.0, cfg.Priority.SpecialBonus)
	assert.Len(t, cfg.Priority.Bands, 3)
}

func TestApplyProfileRejectsBadWeights(t *testing.T) {
	var cfg Config
	err := cfg.applyProfile([]byte("optimizer:\n  weights:\n    distance: 4\n"))
	assert.ErrorIs(t, err, routing.ErrBadParameter)

	assert.Error(t, cfg.ApplyProfile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, cfg.applyProfile([]byte("optimizer: [")))
}

func TestGetHelpers(t *testing.T) {
	t.Setenv("X_INT", " 42 ")
	t.Setenv("X_BAD", "nope")

	n, err := GetInt("X_INT", 1)
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = GetFloat("X_BAD", 1)
	assert.Error(t, err)
	_, err = GetBool("X_BAD", false)
	assert.Error(t, err)

	assert.Equal(t, "fallback", Get("X_UNSET_FOR_TEST", "fallback"))
}
