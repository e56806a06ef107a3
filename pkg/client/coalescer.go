package client

import (
	"sync"
	"time"
)

// Coalescer debounces values per key. A submitted value is sent once no newer
// value arrived for wait, or once maxWait elapsed since the first unsent value
// for the key, whichever comes first. Only the latest value is sent.
type Coalescer[K comparable, V any] struct {
	wait    time.Duration
	maxWait time.Duration
	send    func(K, V)

	mu      sync.Mutex
	sendMu  sync.Mutex
	pending map[K]*pendingValue[V]
	stopped bool
}

type pendingValue[V any] struct {
	value V
	first time.Time
	gen   uint64
	timer *time.Timer
}

func NewCoalescer[K comparable, V any](wait, maxWait time.Duration, send func(K, V)) *Coalescer[K, V] {
	if maxWait < wait {
		maxWait = wait
	}
	return &Coalescer[K, V]{
		wait:    wait,
		maxWait: maxWait,
		send:    send,
		pending: make(map[K]*pendingValue[V]),
	}
}

// Submit replaces the pending value for key and reschedules its send.
func (c *Coalescer[K, V]) Submit(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}

	now := time.Now()
	p, ok := c.pending[key]
	if !ok {
		p = &pendingValue[V]{first: now}
		c.pending[key] = p
	} else {
		p.timer.Stop()
	}
	p.value = value
	p.gen++

	deadline := now.Add(c.wait)
	if ceiling := p.first.Add(c.maxWait); ceiling.Before(deadline) {
		deadline = ceiling
	}

	gen := p.gen
	p.timer = time.AfterFunc(time.Until(deadline), func() { c.fire(key, gen) })
}

func (c *Coalescer[K, V]) fire(key K, gen uint64) {
	c.mu.Lock()
	p, ok := c.pending[key]
	if !ok || p.gen != gen {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	c.deliver(key, p.value)
}

// deliver must be called with mu held; it releases mu. sendMu keeps sends in
// the order values left the pending map.
func (c *Coalescer[K, V]) deliver(key K, value V) {
	c.sendMu.Lock()
	c.mu.Unlock()
	defer c.sendMu.Unlock()
	c.send(key, value)
}

// Flush sends the pending value for key now. It reports whether anything was sent.
func (c *Coalescer[K, V]) Flush(key K) bool {
	c.mu.Lock()
	p, ok := c.pending[key]
	if !ok {
		c.mu.Unlock()
		return false
	}
	p.timer.Stop()
	delete(c.pending, key)
	c.deliver(key, p.value)
	return true
}

// Cancel drops the pending value for key without sending it.
func (c *Coalescer[K, V]) Cancel(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[key]; ok {
		p.timer.Stop()
		delete(c.pending, key)
	}
}

func (c *Coalescer[K, V]) Pending(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[key]
	if !ok {
		var zero V
		return zero, false
	}
	return p.value, true
}

func (c *Coalescer[K, V]) FlushAll() {
	c.mu.Lock()
	keys := make([]K, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	for _, k := range keys {
		c.Flush(k)
	}
}

// Stop drops everything pending and ignores later submits.
func (c *Coalescer[K, V]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for k, p := range c.pending {
		p.timer.Stop()
		delete(c.pending, k)
	}
}
