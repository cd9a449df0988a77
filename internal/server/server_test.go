package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, logger)
}

func TestShutdown_ReverseOrder(t *testing.T) {
	s := newTestServer()

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		s.OnShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, s.Shutdown())
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestShutdown_ContinuesAfterError(t *testing.T) {
	s := newTestServer()

	boom := errors.New("boom")
	var ranFirst bool
	s.OnShutdown("first", func(context.Context) error {
		ranFirst = true
		return nil
	})
	s.OnShutdown("broken", func(context.Context) error { return boom })

	err := s.Shutdown()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, ranFirst)
}

func TestServe_StopsOnCancel(t *testing.T) {
	s := newTestServer()
	stopped := make(chan struct{})
	s.OnShutdown("probe", func(context.Context) error {
		close(stopped)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	<-stopped
}

func TestWaitContext(t *testing.T) {
	t.Run("wait finishes", func(t *testing.T) {
		err := WaitContext(context.Background(), func() {})
		assert.NoError(t, err)
	})

	t.Run("deadline first", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := WaitContext(ctx, func() { <-release })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
