package coingecko

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// entry хранит момент вставки и результат, валидность проверяется при чтении
type entry struct {
	insertedAt time.Time
	value      interface{}
}

// ttlCache - мемоизация ответов API c единым фиксированным TTL.
// Просроченные записи не вытесняются, только перезаписываются или
// удаляются через Clear. Map закрыта мьютексом: конкурентный доступ
// к map в go приводит к панике.
type ttlCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time // подменяется в тестах
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func (c *ttlCache) get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		return nil, false
	}
	return e.value, true
}

func (c *ttlCache) set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{insertedAt: c.now(), value: value}
}

// Clear полностью очищает кэш
func (c *ttlCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// cacheKey строит ключ из имени метода и аргументов,
// аргументы сортируются по имени для детерминизма
func cacheKey(method string, args map[string]string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, method)

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, name+"="+args[name])
	}
	return strings.Join(parts, ":")
}
