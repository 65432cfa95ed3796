package manager

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorSerializes(t *testing.T) {
	a := newActor(0)
	defer func() {
		a.Close()
		a.Wait()
	}()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Do(context.Background(), func(context.Context) error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestActorReentrant(t *testing.T) {
	a := newActor(1)
	defer a.Close()

	var inner bool
	err := a.Do(context.Background(), func(ctx context.Context) error {
		assert.True(t, a.inside(ctx))
		return a.Do(ctx, func(context.Context) error {
			inner = true
			return nil
		})
	})
	require.NoError(t, err)
	assert.True(t, inner)
	assert.False(t, a.inside(context.Background()))
}

func TestActorErrorsAndPanics(t *testing.T) {
	a := newActor(1)
	defer a.Close()

	boom := errors.New("boom")
	assert.ErrorIs(t, a.Do(context.Background(), func(context.Context) error { return boom }), boom)

	err := a.Do(context.Background(), func(context.Context) error { panic("bad") })
	assert.ErrorContains(t, err, "panicked")

	// the actor keeps running after a panic
	assert.NoError(t, a.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestActorClosed(t *testing.T) {
	a := newActor(1)
	a.Close()
	a.Wait()

	assert.True(t, a.IsClosed())
	err := a.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrManagerClosed)
}
