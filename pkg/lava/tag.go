package lava

import (
	"context"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lavabridge/go-lava/pkg/pagination"
)

// Prometheus metrics for the tag cache.
var (
	tagCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lava_tag_cache_hits_total",
		Help: "Tag lookups answered from the cache",
	})

	tagCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lava_tag_cache_misses_total",
		Help: "Tag lookups that missed the cache",
	})

	tagRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lava_tag_refreshes_total",
		Help: "Full refreshes of the tag cache",
	})
)

// Tag is the metadata for a tag on the LAVA server. Tags apply to both
// devices and jobs.
type Tag struct {
	// ID is the unique id of the tag.
	ID uint32 `json:"id"`
	// Name is the name of the tag.
	Name string `json:"name"`
	// Description is an optional description for this tag.
	Description *string `json:"description"`
}

// RefreshTags refreshes the tag cache.
//
// Tags are cached to make lookup cheap: the number of jobs can be very
// large, and resolving tags individually per job would be extremely
// slow. The whole tag collection is re-read and every record inserted
// with overwrite semantics; entries absent from the new sweep are not
// evicted. Concurrent refreshes serialize against each other but do not
// block readers of already-cached entries.
//
// Tag and Tags refresh the cache automatically; Devices and Jobs do not
// refresh it except through the misses they encounter.
func (c *Client) RefreshTags(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.logger.Debug().Msg("Refreshing tag cache")
	tagRefreshesTotal.Inc()

	p := pagination.New[Tag](c.httpClient, c.endpoint("tags/"), c.logger)

	// Stage the sweep, then publish in one step so an abandoned or
	// failed refresh never leaves a partially mutated cache.
	fresh := make(map[uint32]Tag)
	for {
		t, ok, err := p.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		fresh[t.ID] = t
	}

	c.tagMu.Lock()
	for id, t := range fresh {
		c.tags[id] = t
	}
	c.tagMu.Unlock()

	return nil
}

// Tag retrieves the Tag for the given tag id. On a cache miss the whole
// tag table is refreshed once and the cache re-consulted; an id that is
// still absent reports ok == false, which callers treat as "drop the
// reference", not as an error.
func (c *Client) Tag(ctx context.Context, id uint32) (Tag, bool) {
	c.tagMu.RLock()
	t, ok := c.tags[id]
	c.tagMu.RUnlock()
	if ok {
		tagCacheHitsTotal.Inc()
		return t, true
	}

	tagCacheMissesTotal.Inc()
	if err := c.RefreshTags(ctx); err != nil {
		c.logger.Warn().Err(err).Uint32("tag_id", id).Msg("Tag refresh failed during lookup")
	}

	c.tagMu.RLock()
	t, ok = c.tags[id]
	c.tagMu.RUnlock()
	return t, ok
}

// Tags retrieves all the tags from the server, refreshing the cache as
// a side effect. The result is sorted by id.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	if err := c.RefreshTags(ctx); err != nil {
		return nil, err
	}

	c.tagMu.RLock()
	tags := make([]Tag, 0, len(c.tags))
	for _, t := range c.tags {
		tags = append(tags, t)
	}
	c.tagMu.RUnlock()

	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags, nil
}

// resolveTags maps tag ids to cached Tag values, preserving id-list
// order. Unresolvable ids are silently dropped.
func (c *Client) resolveTags(ctx context.Context, ids []uint32) []Tag {
	tags := make([]Tag, 0, len(ids))
	for _, id := range ids {
		if t, ok := c.Tag(ctx, id); ok {
			tags = append(tags, t)
		}
	}
	return tags
}
