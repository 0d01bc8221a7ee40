package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/danseongsa/storefront/internal/backend"
	"github.com/danseongsa/storefront/internal/payments"
	"github.com/danseongsa/storefront/internal/platform/auth"
	"github.com/danseongsa/storefront/internal/platform/config"
	"github.com/danseongsa/storefront/internal/platform/events"
	pfirestore "github.com/danseongsa/storefront/internal/platform/firestore"
	"github.com/danseongsa/storefront/internal/platform/metrics"
	"github.com/danseongsa/storefront/internal/platform/observability"
	"github.com/danseongsa/storefront/internal/repositories"
	firestoreRepo "github.com/danseongsa/storefront/internal/repositories/firestore"
	"github.com/danseongsa/storefront/internal/repositories/memory"
	redisRepo "github.com/danseongsa/storefront/internal/repositories/redis"
	"github.com/danseongsa/storefront/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Sessions    services.SessionService
	Cart        services.CartSelectionService
	Payments    services.PaymentSessionService
	Refunds     services.RefundService
	Fulfillment services.FulfillmentService
	Orders      services.OrderQueryService
}

// Container wires stores, clients and services for runtime use.
type Container struct {
	Config        config.Config
	Services      Services
	Authenticator *auth.Authenticator
	Metrics       *metrics.Recorder
	// Readiness lists dependency probes served by /readyz.
	Readiness map[string]func(context.Context) error

	closers []func(context.Context) error
}

// Option overrides a collaborator, mainly for tests and local runs.
type Option func(*overrides)

type overrides struct {
	orders    services.OrderBackend
	cart      services.CartBackend
	sessions  repositories.PaymentSessionRepository
	gateway   services.PaymentGateway
	events    services.OrderEventPublisher
	verifier  auth.TokenVerifier
	clock     func() time.Time
	recorder  *metrics.Recorder
	userGet   auth.UserGetter
	hasEvents bool
}

// WithBackend replaces the REST backend client.
func WithBackend(orders services.OrderBackend, cart services.CartBackend) Option {
	return func(o *overrides) {
		o.orders = orders
		o.cart = cart
	}
}

// WithSessionRepository replaces the configured session store.
func WithSessionRepository(repo repositories.PaymentSessionRepository) Option {
	return func(o *overrides) { o.sessions = repo }
}

// WithPaymentGateway replaces the configured payment providers.
func WithPaymentGateway(gateway services.PaymentGateway) Option {
	return func(o *overrides) { o.gateway = gateway }
}

// WithEventPublisher replaces the configured event transport. A nil publisher disables events.
func WithEventPublisher(publisher services.OrderEventPublisher) Option {
	return func(o *overrides) {
		o.events = publisher
		o.hasEvents = true
	}
}

// WithTokenVerifier replaces the Firebase verifier.
func WithTokenVerifier(verifier auth.TokenVerifier) Option {
	return func(o *overrides) { o.verifier = verifier }
}

// WithClock overrides the service clock.
func WithClock(clock func() time.Time) Option {
	return func(o *overrides) { o.clock = clock }
}

// WithMetricsRecorder replaces the metrics recorder.
func WithMetricsRecorder(recorder *metrics.Recorder) Option {
	return func(o *overrides) { o.recorder = recorder }
}

// NewContainer constructs the runtime dependencies from configuration.
func NewContainer(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o overrides
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = time.Now
	}

	c := &Container{Config: cfg, Readiness: make(map[string]func(context.Context) error)}
	ok := false
	defer func() {
		if !ok {
			_ = c.Close(context.Background())
		}
	}()

	if err := c.buildAuth(ctx, cfg, &o); err != nil {
		return nil, err
	}
	if err := c.buildBackend(cfg, &o); err != nil {
		return nil, err
	}
	if err := c.buildSessionStore(ctx, cfg, &o); err != nil {
		return nil, err
	}
	if err := c.buildGateway(cfg, &o, logger); err != nil {
		return nil, err
	}
	if err := c.buildEvents(ctx, cfg, &o); err != nil {
		return nil, err
	}

	recorder := o.recorder
	if recorder == nil {
		var err error
		if recorder, err = metrics.NewRecorder(); err != nil {
			return nil, fmt.Errorf("build metrics recorder: %w", err)
		}
	}
	c.Metrics = recorder

	normalizer, err := buildNormalizer(cfg.Statuses)
	if err != nil {
		return nil, err
	}

	svc, err := buildServices(cfg, &o, normalizer, recorder, logger)
	if err != nil {
		return nil, err
	}
	c.Services = svc
	ok = true
	return c, nil
}

// Close releases clients in reverse construction order.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) onClose(fn func(context.Context) error) {
	c.closers = append(c.closers, fn)
}

func (c *Container) buildAuth(ctx context.Context, cfg config.Config, o *overrides) error {
	verifier := o.verifier
	if verifier == nil {
		firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase, 0)
		if err != nil {
			return fmt.Errorf("build firebase verifier: %w", err)
		}
		verifier = firebaseVerifier
		o.userGet = firebaseVerifier
	}
	var authOpts []auth.Option
	if o.userGet != nil {
		authOpts = append(authOpts, auth.WithUserGetter(o.userGet))
	}
	c.Authenticator = auth.NewAuthenticator(verifier, authOpts...)
	return nil
}

func (c *Container) buildBackend(cfg config.Config, o *overrides) error {
	if o.orders != nil && o.cart != nil {
		return nil
	}
	client, err := backend.NewClient(cfg.Backend.BaseURL, backend.WithTimeout(cfg.Backend.Timeout))
	if err != nil {
		return fmt.Errorf("build backend client: %w", err)
	}
	if o.orders == nil {
		o.orders = client
	}
	if o.cart == nil {
		o.cart = client
	}
	return nil
}

func (c *Container) buildSessionStore(ctx context.Context, cfg config.Config, o *overrides) error {
	if o.sessions == nil {
		store := cfg.SessionStore
		switch store.Driver {
		case "redis":
			client := goredis.NewClient(&goredis.Options{
				Addr:     store.RedisAddr,
				Password: store.RedisPassword,
				DB:       store.RedisDB,
			})
			c.onClose(func(context.Context) error { return client.Close() })
			repo, err := redisRepo.NewPaymentSessionStore(client, store.KeyPrefix, store.TTL)
			if err != nil {
				return fmt.Errorf("build redis session store: %w", err)
			}
			o.sessions = repo
		case "firestore":
			provider := pfirestore.NewProvider(cfg.Firestore)
			if _, err := provider.Client(ctx); err != nil {
				return fmt.Errorf("build firestore client: %w", err)
			}
			c.onClose(provider.Close)
			repo, err := firestoreRepo.NewPaymentSessionRepository(provider, store.Collection, store.TTL)
			if err != nil {
				return fmt.Errorf("build firestore session store: %w", err)
			}
			o.sessions = repo
		default:
			o.sessions = memory.NewPaymentSessionStore(store.TTL, o.clock)
		}
	}
	if checker, ok := o.sessions.(repositories.HealthChecker); ok {
		c.Readiness["sessionStore"] = checker.Ping
	}
	return nil
}

func (c *Container) buildGateway(cfg config.Config, o *overrides, logger *zap.Logger) error {
	if o.gateway != nil {
		return nil
	}
	providers := map[string]payments.Provider{
		payments.ProviderSandbox: payments.NewSandboxProvider(o.clock),
	}
	if cfg.Payments.Provider == payments.ProviderStripe {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: cfg.Payments.StripeAPIKey,
			Clock:  o.clock,
			Logger: observability.EventLogger(logger.Named("payments"), "stripe checkout"),
		})
		if err != nil {
			return fmt.Errorf("build stripe provider: %w", err)
		}
		providers[payments.ProviderStripe] = stripeProvider
	}
	managerOpts := []payments.ManagerOption{}
	if provider := strings.TrimSpace(cfg.Payments.Provider); provider != "" {
		managerOpts = append(managerOpts, payments.WithDefaultProvider(provider))
	} else if _, ok := providers[payments.ProviderStripe]; !ok {
		managerOpts = append(managerOpts, payments.WithDefaultProvider(payments.ProviderSandbox))
	}
	manager, err := payments.NewManager(providers, append(managerOpts,
		payments.WithReturnURLs(
			firstNonEmpty(cfg.Payments.SuccessURL, cfg.Server.PublicBaseURL+"/checkout/payments/success"),
			firstNonEmpty(cfg.Payments.FailURL, cfg.Server.PublicBaseURL+"/checkout/payments/fail"),
		))...,
	)
	if err != nil {
		return fmt.Errorf("build payment manager: %w", err)
	}
	o.gateway = manager
	return nil
}

func (c *Container) buildEvents(ctx context.Context, cfg config.Config, o *overrides) error {
	if o.hasEvents {
		return nil
	}
	switch cfg.Events.Driver {
	case "pubsub":
		projectID := firstNonEmpty(cfg.Firestore.ProjectID, cfg.Firebase.ProjectID)
		client, err := pubsub.NewClient(ctx, projectID)
		if err != nil {
			return fmt.Errorf("build pubsub client: %w", err)
		}
		c.onClose(func(context.Context) error { return client.Close() })
		publisher, err := events.NewPubSubPublisher(client.Topic(cfg.Events.PubSubTopic))
		if err != nil {
			return err
		}
		c.onClose(func(context.Context) error { return publisher.Close() })
		o.events = publisher
	case "kafka":
		publisher, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		if err != nil {
			return err
		}
		c.onClose(func(context.Context) error { return publisher.Close() })
		o.events = publisher
	}
	return nil
}

func buildNormalizer(cfg config.StatusConfig) (*services.StatusNormalizer, error) {
	normalizer := services.NewStatusNormalizer()
	path := strings.TrimSpace(cfg.AliasFile)
	if path == "" {
		return normalizer, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open status alias file: %w", err)
	}
	defer f.Close()
	if err := normalizer.LoadAliases(f); err != nil {
		return nil, fmt.Errorf("load status aliases: %w", err)
	}
	return normalizer, nil
}

func buildServices(cfg config.Config, o *overrides, normalizer *services.StatusNormalizer, recorder *metrics.Recorder, logger *zap.Logger) (Services, error) {
	svc := Services{Sessions: auth.SessionResolver{}}

	cartSvc, err := services.NewCartSelectionService(services.CartSelectionServiceDeps{
		Cart:   o.cart,
		Logger: observability.EventLogger(logger.Named("cart"), "cart selection"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart selection service: %w", err)
	}
	svc.Cart = cartSvc

	paymentSvc, err := services.NewPaymentSessionService(services.PaymentSessionServiceDeps{
		Sessions:   o.sessions,
		Gateway:    o.gateway,
		Orders:     o.orders,
		Cart:       o.cart,
		Normalizer: normalizer,
		Events:     o.events,
		Metrics:    recorder,
		Currency:   cfg.Payments.Currency,
		Clock:      o.clock,
		Logger:     observability.EventLogger(logger.Named("payment_session"), "payment session"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment session service: %w", err)
	}
	svc.Payments = paymentSvc

	refundSvc, err := services.NewRefundService(services.RefundServiceDeps{
		Orders:     o.orders,
		Normalizer: normalizer,
		Events:     o.events,
		Metrics:    recorder,
		Clock:      o.clock,
		Logger:     observability.EventLogger(logger.Named("refund"), "refund workflow"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build refund service: %w", err)
	}
	svc.Refunds = refundSvc

	fulfillmentSvc, err := services.NewFulfillmentService(services.FulfillmentServiceDeps{
		Orders:     o.orders,
		Normalizer: normalizer,
		Events:     o.events,
		Metrics:    recorder,
		Clock:      o.clock,
		Logger:     observability.EventLogger(logger.Named("fulfillment"), "fulfillment"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build fulfillment service: %w", err)
	}
	svc.Fulfillment = fulfillmentSvc

	orderSvc, err := services.NewOrderQueryService(services.OrderQueryServiceDeps{
		Orders:     o.orders,
		Normalizer: normalizer,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order query service: %w", err)
	}
	svc.Orders = orderSvc

	return svc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
