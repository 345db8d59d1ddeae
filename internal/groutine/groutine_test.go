package groutine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGoCarriesName(t *testing.T) {
	got := make(chan string, 1)
	Go(context.Background(), "worker-1", func(ctx context.Context) {
		got <- Name(ctx)
	})

	select {
	case name := <-got:
		assert.Equal(t, "worker-1", name)
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestGoNilParent(t *testing.T) {
	done := make(chan struct{})
	Go(nil, "worker-2", func(ctx context.Context) {
		assert.Equal(t, "worker-2", Name(ctx))
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}
}

func TestNameUnlabeled(t *testing.T) {
	assert.Equal(t, "", Name(context.Background()))
	assert.Equal(t, "", Name(nil))
}
