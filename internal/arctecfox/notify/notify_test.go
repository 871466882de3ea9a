package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNotifyQueuesInOrder(t *testing.T) {
	n := New()
	defer n.Close()

	first := n.Success("Saved")
	second := n.Error("Failed")
	third := n.Notify("Heads up", Warning, time.Minute)

	msgs := n.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, []Message{first, second, third}, msgs)
	assert.Equal(t, Success, msgs[0].Severity)
	assert.Equal(t, Error, msgs[1].Severity)
	assert.Equal(t, Warning, msgs[2].Severity)
}

func TestNotifyIDsAreUniqueWithFrozenClock(t *testing.T) {
	frozen := time.Unix(1700000000, 0)
	n := New(WithClock(func() time.Time { return frozen }))
	defer n.Close()

	a := n.Notify("a", Info, time.Minute)
	b := n.Notify("b", Info, time.Minute)
	c := n.Notify("c", Info, time.Minute)

	assert.Equal(t, frozen.UnixNano(), a.ID)
	assert.Equal(t, a.ID+1, b.ID)
	assert.Equal(t, b.ID+1, c.ID)
}

func TestNotifyExpires(t *testing.T) {
	n := New()
	defer n.Close()

	msg := n.Notify("short", Info, 20*time.Millisecond)
	n.Notify("long", Info, time.Minute)

	assert.Eventually(t, func() bool {
		for _, m := range n.Messages() {
			if m.ID == msg.ID {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, n.Messages(), 1)
}

func TestRemove(t *testing.T) {
	n := New()
	defer n.Close()

	a := n.Notify("a", Info, time.Minute)
	b := n.Notify("b", Info, time.Minute)

	n.Remove(a.ID)
	n.Remove(12345) // unknown ids are ignored

	assert.Equal(t, []Message{b}, n.Messages())
}

func TestCloseClearsQueue(t *testing.T) {
	n := New()
	n.Notify("a", Info, time.Minute)
	n.Close()

	assert.Empty(t, n.Messages())

	n.Notify("after close", Info, time.Minute)
	assert.Empty(t, n.Messages(), "a closed notifier must not queue")
}

func TestSinkAndLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var mu sync.Mutex
	var seen []string

	n := New(
		WithLogger(zap.New(core)),
		WithSink(func(m Message) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, m.Text)
		}),
	)
	defer n.Close()

	n.Success("Profile saved")
	n.Error("Sign-out failed")

	mu.Lock()
	assert.Equal(t, []string{"Profile saved", "Sign-out failed"}, seen)
	mu.Unlock()
	assert.Equal(t, 2, logs.FilterMessage("notification queued").Len())
}

func TestConcurrentNotify(t *testing.T) {
	n := New()
	defer n.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Notify("x", Info, time.Minute)
		}()
	}
	wg.Wait()

	msgs := n.Messages()
	require.Len(t, msgs, 50)
	ids := make(map[int64]bool, len(msgs))
	for _, m := range msgs {
		ids[m.ID] = true
	}
	assert.Len(t, ids, 50, "ids must be unique")
}
