package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AfterFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	ch := c.After(5 * time.Second)

	c.Advance(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}
	assert.Equal(t, 1, c.PendingCount())

	c.Advance(time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, epoch.Add(5*time.Second), got)
	default:
		t.Fatal("did not fire")
	}
	assert.Equal(t, 0, c.PendingCount())
}

func TestFake_AfterNonPositive(t *testing.T) {
	c := Fake(epoch)
	select {
	case got := <-c.After(0):
		assert.Equal(t, epoch, got)
	default:
		t.Fatal("zero duration should be ready")
	}
	assert.Equal(t, 0, c.PendingCount())
}

func TestFake_WaitForTimers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})

	go func() {
		<-c.After(time.Minute)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Minute)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sleeper never woke")
	}
	assert.Equal(t, epoch.Add(time.Minute), c.Now())
}

func TestSleep(t *testing.T) {
	t.Run("returns after advance", func(t *testing.T) {
		c := Fake(epoch)
		errc := make(chan error, 1)
		go func() { errc <- Sleep(context.Background(), c, time.Second) }()

		c.WaitForTimers(1)
		c.Advance(time.Second)
		require.NoError(t, <-errc)
	})

	t.Run("cancel interrupts", func(t *testing.T) {
		c := Fake(epoch)
		ctx, cancel := context.WithCancel(context.Background())
		errc := make(chan error, 1)
		go func() { errc <- Sleep(ctx, c, time.Hour) }()

		c.WaitForTimers(1)
		cancel()
		assert.ErrorIs(t, <-errc, context.Canceled)
	})

	t.Run("already canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, Sleep(ctx, Real(), time.Hour), context.Canceled)
	})
}
