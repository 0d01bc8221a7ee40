package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/danseongsa/storefront/internal/repositories"
)

type eventLogger func(ctx context.Context, event string, fields map[string]any)

func defaultLogger(logger func(context.Context, string, map[string]any)) eventLogger {
	if logger == nil {
		return func(context.Context, string, map[string]any) {}
	}
	return logger
}

func defaultClock(clock func() time.Time) func() time.Time {
	if clock == nil {
		clock = time.Now
	}
	return func() time.Time { return clock().UTC() }
}

type noopRecorder struct{}

func (noopRecorder) RecordTransition(context.Context, string, string) {}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// resourceID trims an id taken from a request and refuses values that cannot name a single
// backend resource.
func resourceID(field, raw string) (string, error) {
	id := strings.TrimSpace(raw)
	switch id {
	case "":
		return "", missingField(field)
	case ".", "..":
		return "", &ValidationError{Field: field, Message: "is not a valid id"}
	}
	return id, nil
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

func isNotPermitted(err error) bool { return errors.Is(err, ErrActorNotPermitted) }
