package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	referencePrefix = "secret://"
	metricNamespace = "github.com/danseongsa/storefront/internal/platform/secrets"
	defaultTimeout  = 5 * time.Second
)

var (
	// ErrSecretNotFound is returned when neither Secret Manager nor the fallback file knows the reference.
	ErrSecretNotFound = errors.New("secrets: secret not found")
	// ErrInvalidReference is returned for references that are not secret:// URIs.
	ErrInvalidReference = errors.New("secrets: invalid reference")
)

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves secret:// references through Google Secret Manager. Resolved values are cached
// for the life of the process. A local KEY=VALUE file may stand in for Secret Manager during development.
type Fetcher struct {
	client     secretManagerClient
	ownsClient bool
	projectID  string
	logger     *zap.Logger
	fallback   map[string]string

	mu    sync.RWMutex
	cache map[string]string

	latency metric.Float64Histogram
}

type fetcherConfig struct {
	projectID    string
	logger       *zap.Logger
	fallbackPath string
	client       secretManagerClient
	clientOpts   []option.ClientOption
	meter        metric.Meter
}

// Option customises Fetcher construction.
type Option func(*fetcherConfig)

// WithProject sets the project used for short references such as secret://stripe-api-key.
func WithProject(projectID string) Option {
	return func(cfg *fetcherConfig) { cfg.projectID = strings.TrimSpace(projectID) }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *fetcherConfig) { cfg.logger = logger }
}

// WithFallbackFile reads KEY=VALUE pairs keyed by secret name. Used only when no client is configured.
func WithFallbackFile(path string) Option {
	return func(cfg *fetcherConfig) { cfg.fallbackPath = strings.TrimSpace(path) }
}

// WithClientOptions forwards options to the Secret Manager client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(cfg *fetcherConfig) { cfg.clientOpts = append(cfg.clientOpts, opts...) }
}

// WithMeter injects an OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(cfg *fetcherConfig) { cfg.meter = m }
}

func withClient(client secretManagerClient) Option {
	return func(cfg *fetcherConfig) { cfg.client = client }
}

// NewFetcher builds a Fetcher. Without a fallback file a Secret Manager client is created.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	cfg := fetcherConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	meter := cfg.meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}

	f := &Fetcher{
		client:    cfg.client,
		projectID: cfg.projectID,
		logger:    cfg.logger,
		cache:     make(map[string]string),
	}
	latency, err := meter.Float64Histogram("secrets.fetch.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for Secret Manager fetches"),
	)
	if err != nil {
		cfg.logger.Warn("secrets: unable to register latency metric", zap.Error(err))
	}
	f.latency = latency

	if cfg.fallbackPath != "" {
		values, err := readFallback(cfg.fallbackPath)
		if err != nil {
			return nil, err
		}
		f.fallback = values
	}
	if f.client == nil && f.fallback == nil {
		client, err := secretmanager.NewClient(ctx, cfg.clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("secrets: create secret manager client: %w", err)
		}
		f.client = client
		f.ownsClient = true
	}
	return f, nil
}

// ResolveSecret implements config.SecretResolver.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	name, version, err := parseReference(ref)
	if err != nil {
		return "", err
	}
	key := name + "@" + version

	f.mu.RLock()
	value, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		return value, nil
	}

	if f.client == nil {
		value, ok = f.fallback[lastSegment(name)]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, ref)
		}
	} else {
		value, err = f.access(ctx, name, version)
		if err != nil {
			return "", err
		}
	}

	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()
	return value, nil
}

// Close releases the Secret Manager client when the fetcher created it.
func (f *Fetcher) Close() error {
	if f == nil || !f.ownsClient || f.client == nil {
		return nil
	}
	return f.client.Close()
}

func (f *Fetcher) access(ctx context.Context, name, version string) (string, error) {
	resource := name
	if !strings.HasPrefix(resource, "projects/") {
		if f.projectID == "" {
			return "", fmt.Errorf("%w: project required for %s", ErrInvalidReference, name)
		}
		resource = fmt.Sprintf("projects/%s/secrets/%s", f.projectID, name)
	}
	resource = fmt.Sprintf("%s/versions/%s", resource, version)

	start := time.Now()
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource},
		gax.WithTimeout(defaultTimeout),
		gax.WithRetry(func() gax.Retryer {
			return gax.OnCodes([]codes.Code{codes.Unavailable, codes.DeadlineExceeded}, gax.Backoff{
				Initial:    100 * time.Millisecond,
				Max:        2 * time.Second,
				Multiplier: 2,
			})
		}),
	)
	outcome := "ok"
	if err != nil {
		outcome = status.Code(err).String()
	}
	if f.latency != nil {
		f.latency.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, resource)
		}
		f.logger.Warn("secrets: access failed", zap.String("resource", resource), zap.Error(err))
		return "", fmt.Errorf("secrets: access %s: %w", resource, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

// parseReference splits secret://name[@version] or secret://projects/p/secrets/n[/versions/v].
func parseReference(ref string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, referencePrefix) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	body := strings.TrimPrefix(ref, referencePrefix)
	version := "latest"
	if name, v, ok := strings.Cut(body, "/versions/"); ok {
		body, version = name, v
	} else if name, v, ok := strings.Cut(body, "@"); ok {
		body, version = name, v
	}
	body = strings.Trim(body, "/")
	if body == "" || strings.TrimSpace(version) == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return body, version, nil
}

func lastSegment(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func readFallback(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("secrets: open fallback file: %w", err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		values[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("secrets: read fallback file: %w", err)
	}
	return values, nil
}
