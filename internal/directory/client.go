// Package directory is the read-only client for the external directory
// service that owns student, faculty, subject and branch records. The core
// never mutates that data; it only resolves display references on read paths.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"campus/internal/metrics"
)

// Entity kinds the directory resolves.
const (
	KindStudent = "students"
	KindFaculty = "faculty"
	KindSubject = "subjects"
	KindBranch  = "branches"
)

// Ref is the display reference for a directory entity.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// Client calls the directory service. A nil client, empty BaseURL, or the
// Skip flag disables lookups: callers get an empty map and skip enrichment.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool

	cache *redis.Client
	ttl   time.Duration
	mx    *metrics.Metrics
}

// New creates a client. cache may be nil to disable caching.
func New(baseURL string, skip bool, cache *redis.Client, ttl time.Duration, mx *metrics.Metrics) *Client {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		Skip:    skip,
		cache:   cache,
		ttl:     ttl,
		mx:      mx,
	}
}

// Enabled reports whether lookups will be attempted.
func (c *Client) Enabled() bool {
	return c != nil && !c.Skip && c.BaseURL != ""
}

// Lookup resolves display refs for the given ids of one kind. Unknown ids are
// simply absent from the result; a lookup failure degrades to the refs found
// so far rather than failing the read path it decorates.
func (c *Client) Lookup(ctx context.Context, kind string, ids []string) map[string]Ref {
	if !c.Enabled() || len(ids) == 0 {
		return nil
	}

	refs := make(map[string]Ref, len(ids))
	var missing []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if ref, ok := c.cached(ctx, kind, id); ok {
			c.mx.IncDirectoryCacheHit()
			refs[id] = ref
			continue
		}
		c.mx.IncDirectoryCacheMiss()
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return refs
	}

	fetched, err := c.fetch(ctx, kind, missing)
	if err != nil {
		return refs
	}
	for id, ref := range fetched {
		refs[id] = ref
		c.store(ctx, kind, ref)
	}
	return refs
}

func (c *Client) fetch(ctx context.Context, kind string, ids []string) (map[string]Ref, error) {
	u := fmt.Sprintf("%s/internal/%s?ids=%s", c.BaseURL, kind, url.QueryEscape(strings.Join(ids, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory lookup %s: status %d", kind, resp.StatusCode)
	}

	var body struct {
		Results []Ref `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	out := make(map[string]Ref, len(body.Results))
	for _, ref := range body.Results {
		out[ref.ID] = ref
	}
	return out, nil
}

func cacheKey(kind, id string) string {
	return "directory:" + kind + ":" + id
}

func (c *Client) cached(ctx context.Context, kind, id string) (Ref, bool) {
	if c.cache == nil {
		return Ref{}, false
	}
	raw, err := c.cache.Get(ctx, cacheKey(kind, id)).Result()
	if err != nil {
		return Ref{}, false
	}
	var ref Ref
	if err := json.Unmarshal([]byte(raw), &ref); err != nil {
		return Ref{}, false
	}
	return ref, true
}

func (c *Client) store(ctx context.Context, kind string, ref Ref) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(ref)
	if err != nil {
		return
	}
	c.cache.Set(ctx, cacheKey(kind, ref.ID), raw, c.ttl)
}
