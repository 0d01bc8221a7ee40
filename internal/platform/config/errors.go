package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var errNoSecretResolver = errors.New("secret resolver not configured")

// ValidationError lists every field that is missing or holds an unsupported value.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return "config: invalid fields " + strings.Join(e.fields, ", ")
}

// Fields returns the offending field names.
func (e *ValidationError) Fields() []string { return slices.Clone(e.fields) }

// SecretError reports a secret reference that could not be resolved.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("config: resolve secret %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError lists required secret fields that resolved to empty values.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	return "config: missing required secrets " + strings.Join(e.RedactedNames(), ", ")
}

// RedactedNames returns short hashes of the names, safe to log.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.names))
	for i, name := range e.names {
		sum := sha256.Sum256([]byte(name))
		out[i] = hex.EncodeToString(sum[:8])
	}
	slices.Sort(out)
	return out
}

// Names returns the field names, sorted.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := slices.Clone(e.names)
	slices.Sort(out)
	return out
}

type fieldCheck struct {
	field string
	bad   bool
}

func validate(cfg Config) error {
	checks := []fieldCheck{
		{"Server.Port", cfg.Server.Port == ""},
		{"Backend.BaseURL", cfg.Backend.BaseURL == ""},
		{"Backend.Timeout", cfg.Backend.Timeout <= 0},
		{"Firebase.ProjectID", cfg.Firebase.ProjectID == ""},
		{"Payments.Provider", !slices.Contains(paymentProviders, cfg.Payments.Provider)},
		{"Payments.StripeAPIKey", cfg.Payments.Provider == "stripe" && cfg.Payments.StripeAPIKey == ""},
		{"Payments.Currency", cfg.Payments.Currency == ""},
		{"SessionStore.Driver", !slices.Contains(sessionDrivers, cfg.SessionStore.Driver)},
		{"SessionStore.TTL", cfg.SessionStore.TTL <= 0},
		{"SessionStore.RedisAddr", cfg.SessionStore.Driver == "redis" && cfg.SessionStore.RedisAddr == ""},
		{"Firestore.ProjectID", cfg.SessionStore.Driver == "firestore" && cfg.Firestore.ProjectID == ""},
		{"Events.Driver", !slices.Contains(eventsDrivers, cfg.Events.Driver)},
		{"Events.PubSubTopic", cfg.Events.Driver == "pubsub" && cfg.Events.PubSubTopic == ""},
		{"Events.KafkaBrokers", cfg.Events.Driver == "kafka" && len(cfg.Events.KafkaBrokers) == 0},
		{"Events.KafkaTopic", cfg.Events.Driver == "kafka" && cfg.Events.KafkaTopic == ""},
	}
	var invalid []string
	for _, c := range checks {
		if c.bad {
			invalid = append(invalid, c.field)
		}
	}
	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}
