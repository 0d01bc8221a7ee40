package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/danseongsa/storefront/internal/platform/requestctx"
)

// NewLogger builds the JSON logger in Cloud Logging's shape. The level comes from
// STOREFRONT_LOG_LEVEL, then LOG_LEVEL, and defaults to info.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	for _, key := range []string{"STOREFRONT_LOG_LEVEL", "LOG_LEVEL"} {
		if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
			if lvl, err := zapcore.ParseLevel(raw); err == nil {
				cfg.Level.SetLevel(lvl)
				break
			}
		}
	}
	cfg.Sampling = nil
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return cfg.Build()
}

// WithLogger installs logger as the process-level logger on ctx.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return requestctx.WithLogger(ctx, logger)
}

// EventLogger adapts zap to the event-style logger that services accept. Events go through the
// request logger when there is one so request and trace ids carry over. Events that carry an
// "error" field are logged at warn.
func EventLogger(base *zap.Logger, message string) func(context.Context, string, map[string]any) {
	if base == nil {
		base = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := base
		if requestctx.HasLogger(ctx) {
			logger = requestctx.Logger(ctx).Named(base.Name())
		}
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			if err, ok := v.(error); ok {
				zFields = append(zFields, zap.NamedError(k, err))
				continue
			}
			zFields = append(zFields, zap.Any(k, v))
		}
		if _, failed := fields["error"]; failed {
			logger.Warn(message, zFields...)
			return
		}
		logger.Info(message, zFields...)
	}
}
