package apikey_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/bua/internal/apikey"
)

func TestNewStaticValidator(t *testing.T) {
	tests := map[string]struct {
		cfg    apikey.StaticValidatorConfig
		expErr bool
	}{
		"Missing master key returns error": {
			cfg:    apikey.StaticValidatorConfig{},
			expErr: true,
		},

		"Valid config works": {
			cfg: apikey.StaticValidatorConfig{MasterKey: "super-secret"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			validator, err := apikey.NewStaticValidator(tt.cfg)

			if tt.expErr {
				require.Error(t, err)
				assert.Nil(t, validator)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, validator)
			}
		})
	}
}

func TestStaticValidatorValidate(t *testing.T) {
	tests := map[string]struct {
		token    string
		expValid bool
	}{
		"Matching token is valid":  {token: "super-secret", expValid: true},
		"Different token is not":   {token: "other", expValid: false},
		"Empty token is not valid": {token: "", expValid: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			validator, err := apikey.NewStaticValidator(apikey.StaticValidatorConfig{MasterKey: "super-secret"})
			require.NoError(t, err)

			assert.Equal(t, tt.expValid, validator.Validate(t.Context(), tt.token))
		})
	}
}
