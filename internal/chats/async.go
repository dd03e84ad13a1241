package chats

import (
	"context"

	"github.com/google/uuid"
)

// LoadOutcome is delivered by LoadAsync.
type LoadOutcome struct {
	RequestID string
	Result    *LoadResult
	Err       error
}

// LoadAsync runs Load in the background. The channel receives exactly one
// outcome, or ctx.Err() when ctx ends first, and is then closed.
func (c *Controller) LoadAsync(ctx context.Context, req LoadRequest) <-chan LoadOutcome {
	out := make(chan LoadOutcome, 1)
	requestID := uuid.NewString()

	go func() {
		defer close(out)

		done := make(chan LoadOutcome, 1)
		go func() {
			res, err := c.Load(ctx, req)
			done <- LoadOutcome{RequestID: requestID, Result: res, Err: err}
		}()

		select {
		case o := <-done:
			out <- o
		case <-ctx.Done():
			out <- LoadOutcome{RequestID: requestID, Err: ctx.Err()}
		}
	}()

	return out
}
