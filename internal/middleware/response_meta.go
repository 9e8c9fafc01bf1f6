package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"

	MetaCacheHit         = "cache_hit"
	MetaSolveStrategy    = "strategy"
	MetaFallback         = "fallback"
	MetaProcessingTimeMs = "processing_time_ms"
)

// WithResponseMeta attaches a per-request metadata map that handlers fill and
// pass into the response envelope. Processing time is stamped once the chain returns.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
		meta := ensureMeta(c)
		if _, exists := meta[MetaProcessingTimeMs]; !exists {
			meta[MetaProcessingTimeMs] = time.Since(start).Milliseconds()
		}
	}
}

// SetMeta stores a single metadata value for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil || key == "" {
		return
	}
	ensureMeta(c)[key] = value
}

// SetCacheHit records whether the payload was served from redis.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, MetaCacheHit, hit)
}

// ExtractMeta returns the metadata collected so far, or nil when none was recorded.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, _ := raw.(map[string]interface{})
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if raw, exists := c.Get(responseMetaKey); exists {
		if meta, ok := raw.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
