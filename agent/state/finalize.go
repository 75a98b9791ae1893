package state

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNothingToPersist = errors.New("finalizer has no persist step")

// Outcome is the result of a finalize attempt. Persisted is false whenever
// Missing is non-empty.
type Outcome[E any] struct {
	Missing   []string
	Summary   string
	Entry     E
	At        time.Time
	Persisted bool
}

func (o Outcome[E]) Complete() bool {
	return len(o.Missing) == 0
}

// Finalizer checks completeness, builds the summary and entry, then persists.
// Each successful call persists a new entry; there is no dedup.
type Finalizer[E any] struct {
	Missing func() []string
	Build   func(at time.Time) (E, string, error)
	Persist func(ctx context.Context, entry E) error
	Now     func() time.Time
}

func (f Finalizer[E]) Finalize(ctx context.Context) (Outcome[E], error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	var out Outcome[E]
	if f.Missing != nil {
		if missing := f.Missing(); len(missing) > 0 {
			out.Missing = missing
			return out, nil
		}
	}
	if f.Build == nil || f.Persist == nil {
		return out, ErrNothingToPersist
	}

	out.At = now()
	entry, summary, err := f.Build(out.At)
	if err != nil {
		return out, fmt.Errorf("build entry: %w", err)
	}
	out.Entry = entry
	out.Summary = summary

	if err := f.Persist(ctx, entry); err != nil {
		return out, fmt.Errorf("persist entry: %w", err)
	}
	out.Persisted = true
	return out, nil
}
