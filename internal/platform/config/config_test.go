package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"STOREFRONT_FIREBASE_PROJECT_ID": "danseongsa-dev",
		"STOREFRONT_BACKEND_BASE_URL":    "http://backend.local/",
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Backend.BaseURL != "http://backend.local" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Firestore.ProjectID != "danseongsa-dev" {
		t.Errorf("expected firestore project to default to firebase project, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Payments.Provider != "sandbox" || cfg.Payments.Currency != "KRW" {
		t.Errorf("unexpected payment defaults: %+v", cfg.Payments)
	}
	if cfg.Payments.SuccessURL != "http://localhost:8080/checkout/payments/success" {
		t.Errorf("unexpected success url: %s", cfg.Payments.SuccessURL)
	}
	if cfg.SessionStore.Driver != "memory" || cfg.SessionStore.TTL != defaultSessionTTL {
		t.Errorf("unexpected session store defaults: %+v", cfg.SessionStore)
	}
	if cfg.Events.Driver != "none" {
		t.Errorf("expected events disabled by default, got %s", cfg.Events.Driver)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := baseEnv()
	env["STOREFRONT_SERVER_PORT"] = "9090"
	env["STOREFRONT_PAYMENTS_PROVIDER"] = "Stripe"
	env["STOREFRONT_PAYMENTS_STRIPE_API_KEY"] = "sm://payments/stripe"
	env["STOREFRONT_SESSION_DRIVER"] = "redis"
	env["STOREFRONT_SESSION_REDIS_ADDR"] = "localhost:6379"
	env["STOREFRONT_SESSION_REDIS_DB"] = "3"
	env["STOREFRONT_SESSION_TTL"] = "2h"
	env["STOREFRONT_EVENTS_DRIVER"] = "kafka"
	env["STOREFRONT_EVENTS_KAFKA_BROKERS"] = "k1:9092, k2:9092"
	env["STOREFRONT_EVENTS_KAFKA_TOPIC"] = "order-events"

	var seen []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		seen = append(seen, ref)
		return "sk_test_123", nil
	})

	cfg, err := Load(context.Background(),
		WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""),
		WithSecretResolver(resolver),
		WithRequiredSecrets("Payments.StripeAPIKey"),
	)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port override, got %s", cfg.Server.Port)
	}
	if cfg.Payments.Provider != "stripe" || cfg.Payments.StripeAPIKey != "sk_test_123" {
		t.Errorf("unexpected payments config: %+v", cfg.Payments)
	}
	if len(seen) != 1 || seen[0] != "secret://payments/stripe" {
		t.Errorf("expected normalized secret ref, got %v", seen)
	}
	if cfg.SessionStore.RedisDB != 3 || cfg.SessionStore.TTL != 2*time.Hour {
		t.Errorf("unexpected session store config: %+v", cfg.SessionStore)
	}
	if len(cfg.Events.KafkaBrokers) != 2 || cfg.Events.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("unexpected kafka brokers: %v", cfg.Events.KafkaBrokers)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	env := map[string]string{
		"STOREFRONT_PAYMENTS_PROVIDER": "stripe",
		"STOREFRONT_SESSION_DRIVER":    "redis",
		"STOREFRONT_EVENTS_DRIVER":     "pubsub",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string]bool{
		"Backend.BaseURL":        true,
		"Firebase.ProjectID":     true,
		"Payments.StripeAPIKey":  true,
		"SessionStore.RedisAddr": true,
		"Events.PubSubTopic":     true,
	}
	for _, field := range vErr.Fields() {
		delete(want, field)
	}
	if len(want) != 0 {
		t.Fatalf("missing expected validation fields %v in %v", want, vErr.Fields())
	}
}

func TestLoadSecretWithoutResolver(t *testing.T) {
	env := baseEnv()
	env["STOREFRONT_PAYMENTS_STRIPE_API_KEY"] = "secret://payments/stripe"

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var sErr *SecretError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected secret error, got %v", err)
	}
	if !errors.Is(err, errNoSecretResolver) {
		t.Fatalf("expected resolver not configured, got %v", err)
	}
}

func TestLoadMissingRequiredSecret(t *testing.T) {
	_, err := Load(context.Background(),
		WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""),
		WithRequiredSecrets("Payments.StripeAPIKey"),
	)
	var missing *MissingSecretsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected missing secrets error, got %v", err)
	}
	if names := missing.Names(); len(names) != 1 || names[0] != "Payments.StripeAPIKey" {
		t.Fatalf("unexpected names %v", names)
	}
	if redacted := missing.RedactedNames(); len(redacted) != 1 || redacted[0] == "Payments.StripeAPIKey" {
		t.Fatalf("expected redacted names, got %v", redacted)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# local\nexport STOREFRONT_FIREBASE_PROJECT_ID=\"from-file\"\nSTOREFRONT_BACKEND_BASE_URL=http://file\nSTOREFRONT_SERVER_PORT=7070\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	env := map[string]string{"STOREFRONT_SERVER_PORT": "6060"}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Firebase.ProjectID != "from-file" {
		t.Errorf("expected project from file, got %s", cfg.Firebase.ProjectID)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("expected env map to win over file, got %s", cfg.Server.Port)
	}

	values, err := EnvironmentValues(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}
	if values["STOREFRONT_SERVER_PORT"] != "6060" || values["STOREFRONT_BACKEND_BASE_URL"] != "http://file" {
		t.Errorf("unexpected environment values %v", values)
	}
}
