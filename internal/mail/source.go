package mail

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Ref identifies a message in the provider without its body.
type Ref struct {
	ID       string
	ThreadID string
}

// Source is the retrieval collaborator boundary. Implementations own
// provider auth, pagination, and body decoding.
type Source interface {
	// List returns message refs matching the provider query, newest first.
	List(ctx context.Context, query string) ([]Ref, error)

	// Fetch returns the full message for one ref.
	Fetch(ctx context.Context, ref Ref) (Message, error)
}

// FetchBatch retrieves message bodies concurrently, preserving ref order.
// A single failed fetch fails the batch; callers retry at batch granularity.
func FetchBatch(ctx context.Context, src Source, refs []Ref, concurrency int) ([]Message, error) {
	if concurrency <= 0 {
		concurrency = 5
	}

	msgs := make([]Message, len(refs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, ref := range refs {
		g.Go(func() error {
			m, err := src.Fetch(ctx, ref)
			if err != nil {
				return fmt.Errorf("fetching message %s: %w", ref.ID, err)
			}
			msgs[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return msgs, nil
}
