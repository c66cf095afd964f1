package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Secrets holds sensitive configuration loaded from environment variables.
// Secrets never come from CLI flags: flags are visible in process listings
// (ps auxww).
type Secrets struct {
	// DBKey is the audit database encryption passphrase.
	// Env: DB_KEY
	DBKey string `envconfig:"DB_KEY"`
}

// LoadSecrets loads secrets from environment variables
func LoadSecrets() (*Secrets, error) {
	var s Secrets
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("failed to load secrets from environment: %w", err)
	}
	return &s, nil
}

// LoadSecretsWithDefaults loads secrets, using the provided default if the
// env var is not set
func LoadSecretsWithDefaults(dbKey string) (*Secrets, error) {
	s, err := LoadSecrets()
	if err != nil {
		return nil, err
	}
	if s.DBKey == "" {
		s.DBKey = dbKey
	}
	return s, nil
}

// ValidateDBKey validates the database encryption key if set
func (s *Secrets) ValidateDBKey() error {
	if s.DBKey != "" && len(s.DBKey) < 16 {
		return errors.New("database encryption key must be at least 16 characters")
	}
	return nil
}

// HasDBEncryption returns true if database encryption is configured
func (s *Secrets) HasDBEncryption() bool {
	return s.DBKey != ""
}

// MaskDBKey returns a masked version of the key for logging
func (s *Secrets) MaskDBKey() string {
	if s.DBKey == "" {
		return "(not set)"
	}
	if len(s.DBKey) <= 8 {
		return "****"
	}
	return s.DBKey[:2] + "****" + s.DBKey[len(s.DBKey)-2:]
}
