package propagate

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/StricklySoft/faultline/pkg/catalog"
	"github.com/StricklySoft/faultline/pkg/fault"
	"github.com/StricklySoft/faultline/pkg/flerr"
)

// Config holds the integrator-supplied parameters of the dispatcher. Create
// one with [DefaultConfig] and adjust, or load a YAML file with
// [LoadConfig].
type Config struct {
	// Budget is the maximum encoded length of re-signaled failure text
	// when Limited is true.
	Budget int `yaml:"budget"`

	// Limited enables truncation to Budget. When false, trees are
	// re-signaled at full size.
	Limited bool `yaml:"limited"`

	// FallbackOwner is the catalog owner consulted for the UnknownError
	// entry.
	FallbackOwner string `yaml:"fallbackOwner"`

	// UserDefinedFloor is the reserved threshold at or above which a
	// failure number marks a framework-originated signal.
	UserDefinedFloor int `yaml:"userDefinedFloor"`

	// KnownHostCodes maps enumerated low-level failure codes to the
	// catalog entry name each selects.
	KnownHostCodes map[int]string `yaml:"knownHostCodes"`
}

// DefaultConfig returns the standard configuration: the default truncation
// budget with truncation enabled, the default fallback owner, the reserved
// user-defined floor, and the minimum enumerated host codes (unique
// index/constraint violations and deadlocks).
func DefaultConfig() *Config {
	return &Config{
		Budget:           fault.DefaultBudget,
		Limited:          true,
		FallbackOwner:    catalog.DefaultFallbackOwner,
		UserDefinedFloor: DefaultUserDefinedFloor,
		KnownHostCodes: map[int]string{
			CodeUniqueIndexViolation:      NameIndexViolation,
			CodeUniqueConstraintViolation: NameIndexViolation,
			CodeDeadlock:                  NameDeadlock,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Limited && c.Budget <= 0 {
		return flerr.New(flerr.CodeValidationRequired,
			"propagate: budget must be positive when truncation is enabled")
	}
	if c.FallbackOwner == "" {
		return flerr.New(flerr.CodeValidationRequired,
			"propagate: fallback owner must not be empty")
	}
	if c.UserDefinedFloor <= 0 {
		return flerr.New(flerr.CodeValidation,
			"propagate: user-defined floor must be positive")
	}
	for code, name := range c.KnownHostCodes {
		if name == "" {
			return flerr.Newf(flerr.CodeValidation,
				"propagate: host code %d maps to an empty entry name", code)
		}
		if code >= c.UserDefinedFloor {
			return flerr.Newf(flerr.CodeValidation,
				"propagate: host code %d is inside the user-defined range", code)
		}
	}
	return nil
}

// LoadConfig reads a YAML configuration file over the defaults: absent keys
// keep their [DefaultConfig] values. The result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, flerr.Wrapf(err, flerr.CodeConfiguration,
			"propagate: failed to read config file %q", path)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, flerr.Wrapf(err, flerr.CodeConfiguration,
			"propagate: failed to parse config file %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
