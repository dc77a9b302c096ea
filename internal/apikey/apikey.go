package apikey

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/slok/bua/internal/log"
	"github.com/slok/bua/internal/model"
	"github.com/slok/bua/internal/storage"
)

// Validator is the capability the request gate needs: decide whether a
// presented token grants access. Implemented by the full lifecycle manager
// and by the static shared-secret validator, selected at composition time.
type Validator interface {
	Validate(ctx context.Context, token string) bool
}

// ServiceConfig is the configuration for the API key lifecycle service.
type ServiceConfig struct {
	Repository storage.CredentialRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "apikey.Service"})
	return nil
}

// Service handles the API credential lifecycle: issuance, validation,
// rotation, revocation and listing.
type Service struct {
	repo   storage.CredentialRepository
	logger log.Logger
}

// NewService creates a new API key lifecycle service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Generate issues a new credential. A nil TTL uses the default 30 day
// horizon; zero or negative TTLs produce an already-expired credential.
func (s *Service) Generate(ctx context.Context, expiresInDays *int) (*model.Credential, error) {
	days := model.DefaultCredentialTTLDays
	if expiresInDays != nil {
		days = *expiresInDays
	}

	now := time.Now().UTC()
	credential := model.Credential{
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(days) * 24 * time.Hour),
		Active:    true,
	}

	// A token collision is negligible given 256 bits of entropy, but the
	// repository enforces uniqueness anyway: retry with a fresh draw.
	for {
		token, err := newToken()
		if err != nil {
			return nil, fmt.Errorf("could not generate token: %w", err)
		}
		credential.Token = token

		err = s.repo.CreateCredential(ctx, credential)
		if err == nil {
			break
		}
		if !errors.Is(err, model.ErrAlreadyExists) {
			return nil, fmt.Errorf("could not store credential: %w", err)
		}
	}

	s.logger.Infof("Issued API key (expires %s)", credential.ExpiresAt.Format(time.RFC3339))

	return &credential, nil
}

// Validate checks a presented token, failing closed: unknown, inactive and
// expired tokens are all invalid. A token seen for the first time after its
// expiry instant is deactivated. On success the usage statistics are updated
// in the same atomic step that decided validity.
func (s *Service) Validate(ctx context.Context, token string) bool {
	valid := false
	err := s.repo.MutateCredential(ctx, token, func(c *model.Credential) error {
		if !c.Active {
			return model.ErrInvalidCredential
		}

		now := time.Now().UTC()
		if now.After(c.ExpiresAt) {
			// First validation observed past the expiry instant
			// deactivates the credential. The mutation commits, the
			// validation still fails.
			c.Active = false
			return nil
		}

		c.LastUsedAt = &now
		c.UsageCount++
		valid = true
		return nil
	})

	return err == nil && valid
}

// Revoke deactivates a token. It is idempotent: revoking an already revoked
// token succeeds. Returns whether the token existed.
func (s *Service) Revoke(ctx context.Context, token string) bool {
	err := s.repo.MutateCredential(ctx, token, func(c *model.Credential) error {
		c.Active = false
		return nil
	})
	if err != nil {
		return false
	}

	s.logger.Infof("Revoked API key")

	return true
}

// Rotate issues a new credential and revokes the old one. No new credential
// is issued when the old token is invalid.
func (s *Service) Rotate(ctx context.Context, oldToken string) (*model.Credential, error) {
	if !s.Validate(ctx, oldToken) {
		return nil, fmt.Errorf("old token: %w", model.ErrInvalidCredential)
	}

	credential, err := s.Generate(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not issue replacement: %w", err)
	}

	s.Revoke(ctx, oldToken)
	s.logger.Infof("Rotated API key")

	return credential, nil
}

// Info returns the lifecycle information of a token without touching its
// usage statistics.
func (s *Service) Info(ctx context.Context, token string) (*model.Credential, error) {
	c, err := s.repo.GetCredential(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("could not get credential: %w", err)
	}

	return c, nil
}

// ListActive returns the credentials that are active and unexpired at call
// time, keyed by token.
func (s *Service) ListActive(ctx context.Context) (map[string]model.Credential, error) {
	credentials, err := s.repo.ListCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list credentials: %w", err)
	}

	now := time.Now().UTC()
	active := map[string]model.Credential{}
	for _, c := range credentials {
		if c.Valid(now) {
			active[c.Token] = c
		}
	}

	return active, nil
}

func newToken() (string, error) {
	// 32 bytes of entropy, URL-safe, namespaced with a fixed prefix.
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}

	return model.CredentialPrefix + base64.RawURLEncoding.EncodeToString(raw), nil
}
