package apikey

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/slok/bua/internal/log"
)

// StaticValidatorConfig is the configuration for the static validator.
type StaticValidatorConfig struct {
	// MasterKey is the single operator-configured secret every request must
	// present.
	MasterKey string
	Logger    log.Logger
}

func (c *StaticValidatorConfig) defaults() error {
	if c.MasterKey == "" {
		return fmt.Errorf("master key is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "apikey.StaticValidator"})
	return nil
}

// StaticValidator validates every request against one shared secret. It is
// the deployment alternative to the per-credential lifecycle manager, for
// setups that do not want key issuance at all.
type StaticValidator struct {
	masterKey []byte
	logger    log.Logger
}

// NewStaticValidator creates a new static shared-secret validator.
func NewStaticValidator(cfg StaticValidatorConfig) (*StaticValidator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &StaticValidator{
		masterKey: []byte(cfg.MasterKey),
		logger:    cfg.Logger,
	}, nil
}

// Validate compares the presented token against the master key in constant
// time.
func (v *StaticValidator) Validate(ctx context.Context, token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), v.masterKey) == 1
}
