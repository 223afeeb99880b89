package handler

import (
	"context"
	"errors"

	"github.com/iliyamo/figure-api/internal/apperr"
	"github.com/iliyamo/figure-api/internal/events"
	"github.com/iliyamo/figure-api/internal/logging"
	"github.com/iliyamo/figure-api/internal/repository"
)

// conflictMessage hides driver detail such as index names and values.
const conflictMessage = "Value is already taken"

// storeError translates repository sentinels into the API error taxonomy.
// Anything else passes through and ends up as a 500.
func storeError(err error, notFound string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(notFound)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict(conflictMessage)
	case errors.Is(err, repository.ErrUnknownField), errors.Is(err, repository.ErrUnknownRelation):
		return apperr.Validation(err.Error())
	default:
		return err
	}
}

// publish sends ev and only logs a failure.
func publish(ctx context.Context, pub events.Publisher, log logging.Logger, ev events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn(ctx, "event publish failed", "type", ev.Type, "error", err)
	}
}
