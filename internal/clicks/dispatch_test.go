package clicks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncDispatcher_RecordsEveryClick(t *testing.T) {
	var (
		mu  sync.Mutex
		got []ClickInput
	)
	rec := recorderFunc(func(_ context.Context, in ClickInput) (ClickResult, error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, in)
		return ClickResult{}, nil
	})
	d := NewAsyncDispatcher(rec, AsyncConfig{
		Workers:   3,
		QueueSize: 64,
		Logger:    discardLogger(),
		Now:       func() time.Time { return fixedNow },
	})

	link := uuid.New()
	for range 20 {
		require.NoError(t, d.Dispatch(context.Background(), ClickInput{LinkID: link, IPAddress: "203.0.113.1"}))
	}
	require.NoError(t, d.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 20)
	ids := make(map[uuid.UUID]bool)
	for _, in := range got {
		assert.NotEqual(t, uuid.Nil, in.ID)
		assert.Equal(t, fixedNow, in.ClickedAt)
		ids[in.ID] = true
	}
	assert.Len(t, ids, 20)
}

func TestAsyncDispatcher_KeepsCallerStamp(t *testing.T) {
	done := make(chan ClickInput, 1)
	d := NewAsyncDispatcher(recorderFunc(func(_ context.Context, in ClickInput) (ClickResult, error) {
		done <- in
		return ClickResult{}, nil
	}), AsyncConfig{Workers: 1, Logger: discardLogger()})
	defer d.Close(context.Background())

	id := uuid.New()
	at := fixedNow.Add(-time.Minute)
	require.NoError(t, d.Dispatch(context.Background(), ClickInput{ID: id, LinkID: uuid.New(), ClickedAt: at}))

	select {
	case in := <-done:
		assert.Equal(t, id, in.ID)
		assert.Equal(t, at, in.ClickedAt)
	case <-time.After(2 * time.Second):
		t.Fatal("click was not recorded")
	}
}

func TestAsyncDispatcher_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	d := NewAsyncDispatcher(recorderFunc(func(context.Context, ClickInput) (ClickResult, error) {
		started <- struct{}{}
		<-release
		return ClickResult{}, nil
	}), AsyncConfig{Workers: 1, QueueSize: 1, Logger: discardLogger()})

	ctx := context.Background()
	in := ClickInput{LinkID: uuid.New(), IPAddress: "203.0.113.1"}

	require.NoError(t, d.Dispatch(ctx, in))
	<-started // worker holds the first click
	require.NoError(t, d.Dispatch(ctx, in))
	assert.ErrorIs(t, d.Dispatch(ctx, in), ErrQueueFull)

	close(release)
	require.NoError(t, d.Close(ctx))
}

func TestAsyncDispatcher_Closed(t *testing.T) {
	d := NewAsyncDispatcher(recorderFunc(func(context.Context, ClickInput) (ClickResult, error) {
		return ClickResult{}, nil
	}), AsyncConfig{Logger: discardLogger()})

	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	err := d.Dispatch(context.Background(), ClickInput{LinkID: uuid.New()})
	assert.ErrorIs(t, err, ErrDispatcherClosed)
}

func TestAsyncDispatcher_CloseHonoursDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{}, 1)
	d := NewAsyncDispatcher(recorderFunc(func(context.Context, ClickInput) (ClickResult, error) {
		started <- struct{}{}
		<-release
		return ClickResult{}, nil
	}), AsyncConfig{Workers: 1, Logger: discardLogger()})

	require.NoError(t, d.Dispatch(context.Background(), ClickInput{LinkID: uuid.New()}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}

func TestAsyncDispatcher_RecorderErrorsAreSwallowed(t *testing.T) {
	calls := make(chan struct{}, 2)
	d := NewAsyncDispatcher(recorderFunc(func(context.Context, ClickInput) (ClickResult, error) {
		calls <- struct{}{}
		return ClickResult{}, errors.New("database unavailable")
	}), AsyncConfig{Workers: 1, Logger: discardLogger()})

	require.NoError(t, d.Dispatch(context.Background(), ClickInput{LinkID: uuid.New()}))
	require.NoError(t, d.Dispatch(context.Background(), ClickInput{LinkID: uuid.New()}))
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, calls, 2)
}
