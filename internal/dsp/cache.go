package dsp

import (
	"container/list"
	"sync"
)

// designKey identifies a band-pass design.
type designKey struct {
	order             int
	lowHz, highHz, fs float64
}

type cachedDesign struct {
	key designKey
	sos SOS
}

// DesignCache memoises band-pass designs keyed by order, corners and sample
// rate. Records from one instrument share a sample rate, so a batch usually
// needs only a handful of designs. Cached cascades are never mutated.
//
// It is safe for concurrent use; the least recently used design is evicted
// once maxEntries is exceeded.
type DesignCache struct {
	mu         sync.Mutex
	maxEntries int
	order      *list.List // front is most recently used
	designs    map[designKey]*list.Element
}

// NewDesignCache creates a cache holding at most maxEntries designs.
func NewDesignCache(maxEntries int) *DesignCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &DesignCache{
		maxEntries: maxEntries,
		order:      list.New(),
		designs:    make(map[designKey]*list.Element),
	}
}

// Bandpass returns the cached design or builds and stores it. Design errors
// are not cached.
func (c *DesignCache) Bandpass(order int, lowHz, highHz, sampleRate float64) (SOS, error) {
	key := designKey{order: order, lowHz: lowHz, highHz: highHz, fs: sampleRate}
	if sos, ok := c.lookup(key); ok {
		return sos, nil
	}
	// Designing is cheap and deterministic, so concurrent misses may both
	// build; the second store just refreshes the entry.
	sos, err := ButterworthBandpass(order, lowHz, highHz, sampleRate)
	if err != nil {
		return nil, err
	}
	c.store(key, sos)
	return sos, nil
}

// Len reports the number of cached designs.
func (c *DesignCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *DesignCache) lookup(key designKey) (SOS, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.designs[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cachedDesign).sos, true
}

func (c *DesignCache) store(key designKey, sos SOS) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.designs[key]; ok {
		el.Value.(*cachedDesign).sos = sos
		c.order.MoveToFront(el)
		return
	}
	c.designs[key] = c.order.PushFront(&cachedDesign{key: key, sos: sos})

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.designs, oldest.Value.(*cachedDesign).key)
	}
}
