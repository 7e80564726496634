package inventory

import "sync"

// keyMutex hands out one mutex per parent key so concurrent requests for the
// same item serialize across the whole resolve-mutate-persist sequence,
// while requests for different items proceed in parallel.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*sync.Mutex)}
}

func (m *keyMutex) get(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// lockAll locks every key and returns an unlock function. Callers must pass
// keys sorted and deduplicated; the fixed order prevents deadlock when two
// multi-line requests touch overlapping parents.
func (m *keyMutex) lockAll(keys []string) (unlock func()) {
	held := make([]*sync.Mutex, 0, len(keys))
	for _, key := range keys {
		l := m.get(key)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
