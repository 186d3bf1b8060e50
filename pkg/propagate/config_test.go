package propagate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/faultline/internal/testutil"
	"github.com/StricklySoft/faultline/pkg/fault"
	"github.com/StricklySoft/faultline/pkg/flerr"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, fault.DefaultBudget, cfg.Budget)
	assert.True(t, cfg.Limited)
	assert.Equal(t, DefaultUserDefinedFloor, cfg.UserDefinedFloor)
	assert.Equal(t, NameIndexViolation, cfg.KnownHostCodes[CodeUniqueIndexViolation])
	assert.Equal(t, NameIndexViolation, cfg.KnownHostCodes[CodeUniqueConstraintViolation])
	assert.Equal(t, NameDeadlock, cfg.KnownHostCodes[CodeDeadlock])
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero budget with truncation", func(c *Config) { c.Budget = 0 }},
		{"empty fallback owner", func(c *Config) { c.FallbackOwner = "" }},
		{"non-positive floor", func(c *Config) { c.UserDefinedFloor = 0 }},
		{"empty host entry name", func(c *Config) { c.KnownHostCodes[2601] = "" }},
		{"host code in user-defined range", func(c *Config) { c.KnownHostCodes[60000] = "TooHigh" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Validate_UnlimitedIgnoresBudget(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Limited = false
	cfg.Budget = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	t.Parallel()

	path := testutil.TempConfigFile(t, `
budget: 512
fallbackOwner: Core
knownHostCodes:
  2601: IndexViolation
  1205: Deadlock
  547: ConstraintViolation
`, ".yaml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Budget)
	assert.Equal(t, "Core", cfg.FallbackOwner)
	assert.True(t, cfg.Limited, "absent keys keep their defaults")
	assert.Equal(t, DefaultUserDefinedFloor, cfg.UserDefinedFloor)
	assert.Equal(t, "ConstraintViolation", cfg.KnownHostCodes[547])
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	testutil.RequireErrorCode(t, err, flerr.CodeConfiguration)
}

func TestLoadConfig_Malformed(t *testing.T) {
	t.Parallel()

	path := testutil.TempConfigFile(t, "budget: [not a number", ".yaml")

	_, err := LoadConfig(path)
	testutil.RequireErrorCode(t, err, flerr.CodeConfiguration)
}

func TestLoadConfig_InvalidAfterOverlay(t *testing.T) {
	t.Parallel()

	path := testutil.TempConfigFile(t, "fallbackOwner: \"\"", ".yaml")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, flerr.IsValidation(err))
}
