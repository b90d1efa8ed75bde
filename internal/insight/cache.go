package insight

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/oppscore/internal/record"
	"github.com/onnwee/oppscore/internal/scoring"
	"github.com/onnwee/oppscore/internal/tracing"
)

// CacheKeyPrefix namespaces cached insights in Redis.
const CacheKeyPrefix = "oppscore:insight:"

// Span events recorded on the caller's span for each cache lookup.
const (
	EventCacheHit  = "insight.cache_hit"
	EventCacheMiss = "insight.cache_miss"
)

// DefaultCacheTTL is used when CacheConfig.TTL is zero.
const DefaultCacheTTL = 15 * time.Minute

// cachedInsight is the CBOR payload stored per key.
type cachedInsight struct {
	Value     float64 `cbor:"v"`
	Rationale string  `cbor:"r,omitempty"`
}

// CacheConfig configures a CachedService.
type CacheConfig struct {
	TTL    time.Duration
	Logger *slog.Logger
}

// CachedService memoizes successful insight responses in Redis. Cache
// failures are logged and the request falls through to the wrapped
// service. Errors are never cached.
type CachedService struct {
	next   scoring.InsightService
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	dec    cbor.DecMode
}

// NewCachedService wraps next with a Redis cache. A nil client disables
// caching and returns next unchanged.
func NewCachedService(next scoring.InsightService, client *redis.Client, cfg CacheConfig) scoring.InsightService {
	if client == nil {
		return next
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	dec, err := cbor.DecOptions{MaxNestedLevels: 4}.DecMode()
	if err != nil {
		// Static options; only fails on programmer error.
		panic(fmt.Sprintf("insight cache: invalid cbor options: %v", err))
	}
	return &CachedService{
		next:   next,
		client: client,
		ttl:    cfg.TTL,
		logger: cfg.Logger,
		dec:    dec,
	}
}

// Request implements scoring.InsightService.
func (c *CachedService) Request(ctx context.Context, component scoring.Component, rec record.Record, reqContext map[string]string) (scoring.Insight, error) {
	key := CacheKey(component, rec, reqContext)

	componentAttr := attribute.String("scoring.component", string(component))
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var ci cachedInsight
		derr := c.dec.Unmarshal(raw, &ci)
		if derr == nil {
			tracing.AddEvent(ctx, EventCacheHit, componentAttr)
			return scoring.Insight{Value: ci.Value, Rationale: ci.Rationale}, nil
		}
		c.logger.Warn("discarding undecodable cached insight", "key", key, "error", derr)
		tracing.AddEvent(ctx, EventCacheMiss, componentAttr, attribute.String("cache.reason", "undecodable"))
	case errors.Is(err, redis.Nil):
		tracing.AddEvent(ctx, EventCacheMiss, componentAttr, attribute.String("cache.reason", "absent"))
	default:
		c.logger.Warn("insight cache read failed", "key", key, "error", err)
		tracing.AddEvent(ctx, EventCacheMiss, componentAttr, attribute.String("cache.reason", "unavailable"))
	}

	in, err := c.next.Request(ctx, component, rec, reqContext)
	if err != nil {
		return in, err
	}

	var buf bytes.Buffer
	if err := cbor.NewEncoder(&buf).Encode(cachedInsight{Value: in.Value, Rationale: in.Rationale}); err != nil {
		c.logger.Warn("failed to encode insight for cache", "key", key, "error", err)
		return in, nil
	}
	if err := c.client.Set(ctx, key, buf.Bytes(), c.ttl).Err(); err != nil {
		c.logger.Warn("insight cache write failed", "key", key, "error", err)
	}
	return in, nil
}

// CacheKey derives the cache key for a request. The text, attributes and
// request context are hashed so that an edited record misses the cache.
// Every string is length-prefixed and every collection count-prefixed, so
// separators inside keys or values cannot make two requests collide.
func CacheKey(component scoring.Component, rec record.Record, reqContext map[string]string) string {
	h := sha256.New()
	writeField(h, rec.Text)
	writeSorted(h, rec.Categorical)

	fmt.Fprintf(h, "%d;", len(rec.Keywords))
	for _, k := range rec.Keywords {
		writeField(h, k)
	}

	numKeys := make([]string, 0, len(rec.Numeric))
	for k := range rec.Numeric {
		numKeys = append(numKeys, k)
	}
	sort.Strings(numKeys)
	fmt.Fprintf(h, "%d;", len(numKeys))
	for _, k := range numKeys {
		writeField(h, k)
		writeField(h, strconv.FormatFloat(rec.Numeric[k], 'g', -1, 64))
	}

	writeSorted(h, reqContext)
	return CacheKeyPrefix + string(component) + ":" + rec.ID + ":" + hex.EncodeToString(h.Sum(nil))
}

func writeField(w io.Writer, s string) {
	fmt.Fprintf(w, "%d:%s", len(s), s)
}

func writeSorted(w io.Writer, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%d;", len(keys))
	for _, k := range keys {
		writeField(w, k)
		writeField(w, m[k])
	}
}
