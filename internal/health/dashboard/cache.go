package dashboard

import (
	"encoding/json"
	"fmt"

	"github.com/2beens/healthdash/internal/telemetry/metrics"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const megabyte = 1024 * 1024

// ResponseCache keeps marshalled responses keyed by endpoint, normalized query
// and snapshot version, so a reload makes all older entries unreachable.
type ResponseCache struct {
	cache          *freecache.Cache
	expireSeconds  int
	metricsManager *metrics.Manager
}

func NewResponseCache(sizeMB, expireSeconds int, metricsManager *metrics.Manager) *ResponseCache {
	return &ResponseCache{
		cache:          freecache.NewCache(sizeMB * megabyte),
		expireSeconds:  expireSeconds,
		metricsManager: metricsManager,
	}
}

// GetOrCompute returns the cached JSON for the key, or marshals the result of
// compute and stores it. Errors from compute are never cached.
func (c *ResponseCache) GetOrCompute(endpoint, queryKey string, version uint64, compute func() (any, error)) ([]byte, error) {
	cacheKey := []byte(fmt.Sprintf("%s::%d::%s", endpoint, version, queryKey))
	if cached, err := c.cache.Get(cacheKey); err == nil {
		log.Tracef("response cache hit: %s", cacheKey)
		c.count(endpoint, true)
		return cached, nil
	}
	c.count(endpoint, false)

	resp, err := compute()
	if err != nil {
		return nil, err
	}

	respJson, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal %s response: %w", endpoint, err)
	}

	if err := c.cache.Set(cacheKey, respJson, c.expireSeconds); err != nil {
		// too large for the cache, still a valid response
		log.Warnf("failed to cache %s response: %s", endpoint, err)
	}

	return respJson, nil
}

// Clear drops all entries, used after the snapshot is reloaded.
func (c *ResponseCache) Clear() {
	c.cache.Clear()
}

func (c *ResponseCache) EntryCount() int64 {
	return c.cache.EntryCount()
}

func (c *ResponseCache) count(endpoint string, hit bool) {
	if c.metricsManager == nil {
		return
	}
	if hit {
		c.metricsManager.CounterCacheHits.WithLabelValues(endpoint).Inc()
	} else {
		c.metricsManager.CounterCacheMisses.WithLabelValues(endpoint).Inc()
	}
}
