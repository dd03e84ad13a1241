package chats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAsyncDeliversOneOutcome(t *testing.T) {
	h := newHarness(3)

	ch := h.ctrl.LoadAsync(context.Background(), LoadRequest{})
	o, ok := <-ch
	require.True(t, ok)
	require.NoError(t, o.Err)
	assert.NotEmpty(t, o.RequestID)
	assert.Len(t, o.Result.ToRender, 3)

	_, ok = <-ch
	assert.False(t, ok, "channel should be closed after the outcome")
}

func TestLoadAsyncCancellation(t *testing.T) {
	h := newHarness(3)
	hold := make(chan struct{})
	h.lister.hold = hold
	h.lister.entered = make(chan struct{})
	defer close(hold)

	ctx, cancel := context.WithCancel(context.Background())
	ch := h.ctrl.LoadAsync(ctx, LoadRequest{})
	<-h.lister.entered
	cancel()

	select {
	case o := <-ch:
		assert.ErrorIs(t, o.Err, context.Canceled)
		assert.Nil(t, o.Result)
	case <-time.After(5 * time.Second):
		t.Fatal("LoadAsync did not honor cancellation")
	}
}
