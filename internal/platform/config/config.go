package config

import (
	"context"
	"slices"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultRequestTimeout   = 20 * time.Second
	defaultEnvironment      = "local"
	defaultPublicBaseURL    = "http://localhost:8080"
	defaultBackendTimeout   = 10 * time.Second
	defaultPaymentProvider  = "sandbox"
	defaultCurrency         = "KRW"
	defaultSessionDriver    = "memory"
	defaultSessionTTL       = 24 * time.Hour
	defaultSessionKeyPrefix = "storefront:payment-session:"
	defaultSessionColl      = "paymentSessions"
	defaultEventsDriver     = "none"
)

var (
	paymentProviders = []string{"stripe", "sandbox"}
	sessionDrivers   = []string{"memory", "redis", "firestore"}
	eventsDrivers    = []string{"none", "pubsub", "kafka"}
)

// Config is the storefront runtime configuration.
type Config struct {
	Environment  string
	Server       ServerConfig
	Firebase     FirebaseConfig
	Firestore    FirestoreConfig
	Backend      BackendConfig
	Payments     PaymentsConfig
	SessionStore SessionStoreConfig
	Events       EventsConfig
	Statuses     StatusConfig
}

// ServerConfig holds listener settings and the public base URL the gateway returns to.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	PublicBaseURL  string
}

// FirebaseConfig stores Firebase project settings used to resolve session users.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig points at the session database, or its emulator.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// BackendConfig points at the order/cart backend.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PaymentsConfig selects the gateway and the URLs it returns the shopper to.
type PaymentsConfig struct {
	Provider     string
	StripeAPIKey string
	Currency     string
	SuccessURL   string
	FailURL      string
}

// SessionStoreConfig selects where pending payment sessions live.
type SessionStoreConfig struct {
	Driver        string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
	Collection    string
}

// EventsConfig selects the transport for order lifecycle events.
type EventsConfig struct {
	Driver       string
	PubSubTopic  string
	KafkaBrokers []string
	KafkaTopic   string
}

// StatusConfig controls status vocabulary loading.
type StatusConfig struct {
	AliasFile string
}

// SecretResolver turns a secret:// reference into its value.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret calls f.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

func defaultOptions(opts []Option) loaderOptions {
	o := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithEnvFile reads local overrides from path instead of .env. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap supplies values that win over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver resolves secret:// and sm:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// WithRequiredSecrets names secret fields, such as "Payments.StripeAPIKey", that must not be empty.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) { o.requiredSecrets = append(o.requiredSecrets, names...) }
}

// EnvironmentValues returns every key visible to Load, with the same precedence.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	src, err := newSource(defaultOptions(opts))
	if err != nil {
		return nil, err
	}
	return src.flatten(), nil
}

// Load reads STOREFRONT_* settings, resolves secret references and validates the result.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	o := defaultOptions(opts)
	src, err := newSource(o)
	if err != nil {
		return Config{}, err
	}

	cfg := read(src)
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.Payments.SuccessURL == "" {
		cfg.Payments.SuccessURL = cfg.Server.PublicBaseURL + "/checkout/payments/success"
	}
	if cfg.Payments.FailURL == "" {
		cfg.Payments.FailURL = cfg.Server.PublicBaseURL + "/checkout/payments/fail"
	}

	secrets := map[string]*string{
		"Payments.StripeAPIKey":      &cfg.Payments.StripeAPIKey,
		"SessionStore.RedisPassword": &cfg.SessionStore.RedisPassword,
	}
	for _, field := range secrets {
		if *field, err = resolveSecret(ctx, *field, o.secret); err != nil {
			return Config{}, err
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	var missing []string
	for _, name := range o.requiredSecrets {
		name = strings.TrimSpace(name)
		field, known := secrets[name]
		if name == "" || slices.Contains(missing, name) || (known && strings.TrimSpace(*field) != "") {
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return Config{}, &MissingSecretsError{names: missing}
	}
	return cfg, nil
}

func read(src source) Config {
	return Config{
		Environment: src.lower("STOREFRONT_ENVIRONMENT", defaultEnvironment),
		Server: ServerConfig{
			Port:           src.str("STOREFRONT_SERVER_PORT", defaultPort),
			ReadTimeout:    src.duration("STOREFRONT_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   src.duration("STOREFRONT_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    src.duration("STOREFRONT_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: src.duration("STOREFRONT_SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
			PublicBaseURL:  src.url("STOREFRONT_SERVER_PUBLIC_BASE_URL", defaultPublicBaseURL),
		},
		Firebase: FirebaseConfig{
			ProjectID:       src.str("STOREFRONT_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: src.str("STOREFRONT_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    src.str("STOREFRONT_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: src.str("STOREFRONT_FIRESTORE_EMULATOR_HOST", ""),
		},
		Backend: BackendConfig{
			BaseURL: src.url("STOREFRONT_BACKEND_BASE_URL", ""),
			Timeout: src.duration("STOREFRONT_BACKEND_TIMEOUT", defaultBackendTimeout),
		},
		Payments: PaymentsConfig{
			Provider:     src.lower("STOREFRONT_PAYMENTS_PROVIDER", defaultPaymentProvider),
			StripeAPIKey: src.str("STOREFRONT_PAYMENTS_STRIPE_API_KEY", ""),
			Currency:     strings.ToUpper(src.str("STOREFRONT_PAYMENTS_CURRENCY", defaultCurrency)),
			SuccessURL:   src.str("STOREFRONT_PAYMENTS_SUCCESS_URL", ""),
			FailURL:      src.str("STOREFRONT_PAYMENTS_FAIL_URL", ""),
		},
		SessionStore: SessionStoreConfig{
			Driver:        src.lower("STOREFRONT_SESSION_DRIVER", defaultSessionDriver),
			TTL:           src.duration("STOREFRONT_SESSION_TTL", defaultSessionTTL),
			RedisAddr:     src.str("STOREFRONT_SESSION_REDIS_ADDR", ""),
			RedisPassword: src.str("STOREFRONT_SESSION_REDIS_PASSWORD", ""),
			RedisDB:       src.int("STOREFRONT_SESSION_REDIS_DB", 0),
			KeyPrefix:     src.str("STOREFRONT_SESSION_KEY_PREFIX", defaultSessionKeyPrefix),
			Collection:    src.str("STOREFRONT_SESSION_COLLECTION", defaultSessionColl),
		},
		Events: EventsConfig{
			Driver:       src.lower("STOREFRONT_EVENTS_DRIVER", defaultEventsDriver),
			PubSubTopic:  src.str("STOREFRONT_EVENTS_PUBSUB_TOPIC", ""),
			KafkaBrokers: src.list("STOREFRONT_EVENTS_KAFKA_BROKERS"),
			KafkaTopic:   src.str("STOREFRONT_EVENTS_KAFKA_TOPIC", ""),
		},
		Statuses: StatusConfig{
			AliasFile: src.str("STOREFRONT_STATUS_ALIAS_FILE", ""),
		},
	}
}

// resolveSecret passes plain values through and resolves secret:// or sm:// references.
func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	value = strings.TrimSpace(value)
	ref, ok := strings.CutPrefix(value, "sm://")
	if ok {
		ref = "secret://" + ref
	} else if strings.HasPrefix(value, "secret://") {
		ref = value
	} else {
		return value, nil
	}
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errNoSecretResolver}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return strings.TrimSpace(secret), nil
}
