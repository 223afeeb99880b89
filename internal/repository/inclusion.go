package repository

import (
	"context"
	"fmt"
)

// InclusionResolver attaches a related entity (or entities) to every item of
// a result set. It mutates items in place.
type InclusionResolver[T any] func(ctx context.Context, items []T) error

type inclusions[T any] struct {
	resolvers map[string]InclusionResolver[T]
}

func newInclusions[T any]() *inclusions[T] {
	return &inclusions[T]{resolvers: map[string]InclusionResolver[T]{}}
}

func (in *inclusions[T]) register(name string, fn InclusionResolver[T]) {
	in.resolvers[name] = fn
}

// resolve runs the resolvers named in include, in order. Unknown names fail
// before any resolver runs.
func (in *inclusions[T]) resolve(ctx context.Context, items []T, include []string) error {
	if len(include) == 0 || len(items) == 0 {
		return in.check(include)
	}
	if err := in.check(include); err != nil {
		return err
	}
	for _, name := range include {
		if err := in.resolvers[name](ctx, items); err != nil {
			return fmt.Errorf("include %s: %w", name, err)
		}
	}
	return nil
}

func (in *inclusions[T]) check(include []string) error {
	for _, name := range include {
		if _, ok := in.resolvers[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownRelation, name)
		}
	}
	return nil
}
