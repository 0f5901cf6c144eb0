package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/staffing-planner/backend/internal/config"
)

func TestLoadSolverConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadSolverConfig()
	require.NoError(t, err)

	params := cfg.Parameters()
	assert.Equal(t, int64(2), params.UnderstaffWeight)
	assert.Equal(t, int64(1), params.OverstaffWeight)
	assert.Equal(t, time.Duration(0), params.TimeLimit)
	assert.Equal(t, int64(1), params.Seed)
	assert.Equal(t, 8, params.NumWorkers)
}

func TestLoadSolverConfig_Overrides(t *testing.T) {
	t.Setenv("SOLVER_UNDERSTAFF_WEIGHT", "5")
	t.Setenv("SOLVER_TIME_LIMIT", "30")
	t.Setenv("SOLVER_SEED", "42")
	t.Setenv("SOLVER_NUM_WORKERS", "1")

	cfg, err := config.LoadSolverConfig()
	require.NoError(t, err)

	params := cfg.Parameters()
	assert.Equal(t, int64(5), params.UnderstaffWeight)
	assert.Equal(t, 30*time.Second, params.TimeLimit)
	assert.Equal(t, int64(42), params.Seed)
	assert.Equal(t, 1, params.NumWorkers)
}

func TestLoadSolverConfig_InvalidValue(t *testing.T) {
	t.Setenv("SOLVER_SEED", "not-a-number")

	_, err := config.LoadSolverConfig()
	assert.Error(t, err)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost/staffing")

	// JWT_SECRET 等必填项没有设置
	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestLoadJWTConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRATION", "24")

	cfg, err := config.LoadJWTConfig()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Secret)
	assert.Equal(t, 24, cfg.Expiration)
}
