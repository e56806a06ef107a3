package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	key   string
	value int
	at    time.Time
}

type recorder struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recorder) send(key string, value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{key: key, value: value, at: time.Now()})
}

func (r *recorder) snapshot() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.sent...)
}

func TestCoalescerMergesCloseSubmits(t *testing.T) {
	rec := &recorder{}
	c := NewCoalescer(50*time.Millisecond, time.Second, rec.send)

	for i := 1; i <= 5; i++ {
		c.Submit("a", i)
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].value)
}

func TestCoalescerMaxWaitForcesSend(t *testing.T) {
	rec := &recorder{}
	c := NewCoalescer(40*time.Millisecond, 120*time.Millisecond, rec.send)
	defer c.Stop()

	start := time.Now()
	for time.Since(start) < 400*time.Millisecond {
		c.Submit("a", int(time.Since(start)/time.Millisecond))
		time.Sleep(10 * time.Millisecond)
	}

	got := rec.snapshot()
	require.GreaterOrEqual(t, len(got), 2)
	assert.Less(t, got[0].at.Sub(start), 300*time.Millisecond)
}

func TestCoalescerKeysAreIndependent(t *testing.T) {
	rec := &recorder{}
	c := NewCoalescer(20*time.Millisecond, time.Second, rec.send)

	c.Submit("a", 1)
	c.Submit("b", 2)

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	values := map[string]int{}
	for _, s := range rec.snapshot() {
		values[s.key] = s.value
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, values)
}

func TestCoalescerFlushSendsImmediately(t *testing.T) {
	rec := &recorder{}
	c := NewCoalescer(time.Hour, time.Hour, rec.send)

	c.Submit("a", 1)
	c.Submit("a", 2)
	v, ok := c.Pending("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.True(t, c.Flush("a"))
	assert.False(t, c.Flush("a"))

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].value)

	_, ok = c.Pending("a")
	assert.False(t, ok)
}

func TestCoalescerCancelDropsValue(t *testing.T) {
	rec := &recorder{}
	c := NewCoalescer(10*time.Millisecond, 20*time.Millisecond, rec.send)

	c.Submit("a", 1)
	c.Cancel("a")
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, rec.snapshot())
}

func TestCoalescerFlushAllAndStop(t *testing.T) {
	rec := &recorder{}
	c := NewCoalescer(time.Hour, time.Hour, rec.send)

	c.Submit("a", 1)
	c.Submit("b", 2)
	c.FlushAll()
	assert.Len(t, rec.snapshot(), 2)

	c.Submit("c", 3)
	c.Stop()
	c.Submit("d", 4)
	assert.False(t, c.Flush("c"))
	assert.False(t, c.Flush("d"))
	assert.Len(t, rec.snapshot(), 2)
}
