package links

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
)

const (
	cacheKeyPrefix  = "link:code:"
	genKeyPrefix    = "link:gen:"
	missingMarker   = "null"
	missingTTL      = time.Minute
	DefaultCacheTTL = 10 * time.Minute
)

// fillScript stores ARGV[2] under KEYS[2] for ARGV[3] ms only while the
// generation in KEYS[1] still equals ARGV[1]. An absent generation is "".
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or ''
if gen ~= ARGV[1] then
    return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// evictScript bumps the generation in KEYS[1], keeps it for ARGV[1] ms and
// drops the cached entry in KEYS[2].
var evictScript = redis.NewScript(`
redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[1])
redis.call('DEL', KEYS[2])
return 1
`)

// CacheClient is the part of redis.Cmdable the cache uses.
type CacheClient interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
}

// CachedRepository puts a Redis cache-aside layer in front of GetByCode.
// Concurrent misses for one code share a single database read. Writes go
// to the wrapped repository and then evict every code of the affected
// link.
//
// Each code carries a generation counter that eviction bumps. A load only
// fills the cache if the generation it saw before reading the database is
// still current, so a read that raced a write never caches the old row.
// Redis failures degrade to the wrapped repository.
type CachedRepository struct {
	Repository
	client CacheClient
	ttl    time.Duration
	logger *slog.Logger
	loads  singleflight.Group
}

// NewCachedRepository wraps next. A zero ttl uses DefaultCacheTTL.
func NewCachedRepository(next Repository, client CacheClient, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRepository{
		Repository: next,
		client:     client,
		ttl:        ttl,
		logger:     logger,
	}
}

// Both keys of a code share a hash tag so the scripts stay single-slot.
func cacheKey(code string) string {
	return cacheKeyPrefix + "{" + code + "}"
}

func genKey(code string) string {
	return genKeyPrefix + "{" + code + "}"
}

func (c *CachedRepository) GetByCode(ctx context.Context, code string) (Link, error) {
	const op = "links.cache.GetByCode"
	key := cacheKey(code)

	data, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil && data == missingMarker:
		return Link{}, errx.E(op, errx.NotFound, errors.New("cached miss"))
	case err == nil:
		var link Link
		if jsonErr := json.Unmarshal([]byte(data), &link); jsonErr == nil {
			return link, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err.Error())
	}

	gen, fillable := c.generation(ctx, code)
	// Callers that arrive after an eviction see a new generation and so
	// never join a load that started before it.
	v, err, _ := c.loads.Do(code+"#"+gen, func() (any, error) {
		link, err := c.Repository.GetByCode(ctx, code)
		if err != nil {
			if fillable && errx.Is(err, errx.NotFound) {
				c.fill(ctx, code, gen, missingMarker, missingTTL)
			}
			return Link{}, err
		}
		if encoded, err := json.Marshal(link); err == nil && fillable {
			c.fill(ctx, code, gen, string(encoded), c.ttl)
		}
		return link, nil
	})
	if err != nil {
		return Link{}, err
	}
	return v.(Link), nil
}

// generation reads the current generation of code. ok is false when Redis
// could not answer; the caller must not fill the cache then.
func (c *CachedRepository) generation(ctx context.Context, code string) (gen string, ok bool) {
	gen, err := c.client.Get(ctx, genKey(code)).Result()
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, redis.Nil):
		return "", true
	default:
		c.logger.WarnContext(ctx, "cache generation read failed", "code", code, "error", err.Error())
		return "", false
	}
}

func (c *CachedRepository) Create(ctx context.Context, nl NewLink) (Link, bool, error) {
	link, created, err := c.Repository.Create(ctx, nl)
	if err != nil {
		return Link{}, false, err
	}
	if created {
		// a redirect may have cached a miss for the new codes
		c.evict(ctx, link)
	}
	return link, created, nil
}

func (c *CachedRepository) Update(ctx context.Context, id, ownerID uuid.UUID, patch LinkPatch) (Link, error) {
	link, err := c.Repository.Update(ctx, id, ownerID, patch)
	if err != nil {
		return Link{}, err
	}
	c.evict(ctx, link)
	return link, nil
}

func (c *CachedRepository) Delete(ctx context.Context, id, ownerID uuid.UUID, hard bool) (Link, error) {
	link, err := c.Repository.Delete(ctx, id, ownerID, hard)
	if err != nil {
		return Link{}, err
	}
	c.evict(ctx, link)
	return link, nil
}

func (c *CachedRepository) fill(ctx context.Context, code, gen, value string, ttl time.Duration) {
	keys := []string{genKey(code), cacheKey(code)}
	stored, err := fillScript.Run(ctx, c.client, keys, gen, value, ttl.Milliseconds()).Int()
	switch {
	case err != nil:
		c.logger.WarnContext(ctx, "cache write failed", "code", code, "error", err.Error())
	case stored == 0:
		c.logger.DebugContext(ctx, "skipped stale cache fill", "code", code)
	}
}

// evict invalidates every code of link. The generation outlives any entry
// a concurrent load could still try to write.
func (c *CachedRepository) evict(ctx context.Context, link Link) {
	for _, code := range link.Codes() {
		keys := []string{genKey(code), cacheKey(code)}
		if err := evictScript.Run(ctx, c.client, keys, (c.ttl + missingTTL).Milliseconds()).Err(); err != nil {
			c.logger.WarnContext(ctx, "cache eviction failed",
				"link_id", link.ID.String(),
				"code", code,
				"error", err.Error(),
			)
		}
	}
}
