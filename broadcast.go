package qbloch

import (
	"sync"
	"time"
)

// FilterFunc decides whether a sample is delivered to a subscriber.
type FilterFunc func(Sample) bool

// Moving passes samples taken while a transition is in flight.
func Moving(s Sample) bool { return s.Progress < 1 || s.Arrived }

// Arrivals passes only the sample that completes a transition.
func Arrivals(s Sample) bool { return s.Arrived }

/*
Broadcast fans animation samples out to any number of renderers. Delivery
never blocks the animation clock: a subscriber whose buffer is full misses
the sample and the drop is counted.
*/
type Broadcast struct {
	mu sync.RWMutex

	subscribers map[string]chan Sample
	filters     map[string][]FilterFunc
	bufferSize  int
	metrics     *Metrics
	closed      bool
	lastSent    time.Time
}

// NewBroadcast creates a fan-out whose subscriber channels hold bufferSize
// samples. metrics may be nil.
func NewBroadcast(bufferSize int, metrics *Metrics) *Broadcast {
	if metrics == nil {
		metrics = NewMetrics()
	}

	return &Broadcast{
		subscribers: make(map[string]chan Sample),
		filters:     make(map[string][]FilterFunc),
		bufferSize:  bufferSize,
		metrics:     metrics,
	}
}

/*
Subscribe registers a receiver under id. A sample reaches it only when every
filter accepts it. Subscribing an existing id replaces, and closes, the
previous channel.
*/
func (b *Broadcast) Subscribe(id string, filters ...FilterFunc) <-chan Sample {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Sample, b.bufferSize)
	if b.closed {
		close(ch)
		return ch
	}

	if old, ok := b.subscribers[id]; ok {
		close(old)
	}

	b.subscribers[id] = ch
	b.filters[id] = filters
	return ch
}

// Unsubscribe closes and forgets the subscriber's channel.
func (b *Broadcast) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
		delete(b.filters, id)
	}
}

// Send offers the sample to every subscriber without waiting.
func (b *Broadcast) Send(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	sent, dropped := 0, 0
	for id, ch := range b.subscribers {
		if !accepts(b.filters[id], s) {
			continue
		}

		select {
		case ch <- s:
			sent++
		default:
			dropped++
		}
	}

	b.lastSent = time.Now()
	b.metrics.recordBroadcast(sent, dropped)
}

// Subscribers returns the number of registered receivers.
func (b *Broadcast) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// LastSent is when the most recent sample was offered.
func (b *Broadcast) LastSent() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSent
}

// Close closes every subscriber channel. Later sends are ignored.
func (b *Broadcast) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
		delete(b.filters, id)
	}
	b.closed = true
}

func accepts(filters []FilterFunc, s Sample) bool {
	for _, f := range filters {
		if !f(s) {
			return false
		}
	}
	return true
}
