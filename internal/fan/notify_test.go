package fan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotifierWait(t *testing.T) {
	n := newNotifier()
	since := n.Version(AttributeMode)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := n.Wait(ctx, AttributeMode, since)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	done := make(chan uint64)
	go func() {
		v, err := n.Wait(context.Background(), AttributeMode, since)
		assert.NoError(t, err)
		done <- v
	}()

	n.Notify(AttributeFrequency)
	n.Notify(AttributeMode)

	select {
	case v := <-done:
		assert.Equal(t, since+1, v)
	case <-time.After(time.Second):
		t.Fatal("reader not woken")
	}

	_, err = n.Wait(context.Background(), Attribute("speed"), 0)
	assert.Error(t, err)
}
