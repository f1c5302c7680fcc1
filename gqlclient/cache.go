package gqlclient

import (
	"encoding/json"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/metrics"
)

const (
	defaultMaxEntities = 10000
	defaultMaxResults  = 1000

	refKey = "__ref"
)

// Eviction reasons reported to metrics
const (
	evictCapacity = "capacity"
	evictExplicit = "explicit"
	evictStale    = "stale"
)

// entity is one normalized object. Nested objects with an identity are
// stored as references.
type entity map[string]interface{}

// selection records the fields a result read from each nested object. A nil
// selection is a leaf: a scalar, or a JSON value stored whole.
type selection map[string]selection

// merge unions two selections; list items may select different shapes
// when some of them are null.
func (s selection) merge(other selection) selection {
	if s == nil {
		return other
	}
	for k, sub := range other {
		s[k] = s[k].merge(sub)
	}
	return s
}

type result struct {
	operation string
	variables map[string]interface{}
	tree      map[string]interface{}
	sel       selection
}

// Cache is a normalized in-memory store. Objects carrying __typename and id
// are kept once under "Type:id"; query results keep references into them
// along with the nested field selection they were written with. Both sides
// are LRU bounded. A result whose references were evicted, or whose entities
// no longer hold every selected field, reads as a miss.
type Cache struct {
	mu       sync.Mutex
	entities *lru.Cache[string, entity]
	results  *lru.Cache[string, *result]
	metrics  *metrics.Client
}

// NewCache creates a cache. Non-positive bounds use the defaults.
func NewCache(maxEntities, maxResults int, m *metrics.Client) (*Cache, error) {
	if maxEntities <= 0 {
		maxEntities = defaultMaxEntities
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	entities, err := lru.New[string, entity](maxEntities)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create entity cache")
	}
	results, err := lru.New[string, *result](maxResults)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create result cache")
	}
	return &Cache{entities: entities, results: results, metrics: m}, nil
}

// EntityKey is the normalized key of an object
func EntityKey(typename, id string) string {
	return typename + ":" + id
}

// ResultKey identifies a query result by operation name and canonical variables
func ResultKey(operation string, vars map[string]interface{}) (string, error) {
	if len(vars) == 0 {
		return operation, nil
	}
	// encoding/json writes map keys in sorted order
	b, err := json.Marshal(vars)
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode variables for %s", operation)
	}
	return operation + ":" + string(b), nil
}

// Read returns the denormalized data of a cached result
func (c *Cache) Read(operation string, vars map[string]interface{}) (map[string]interface{}, bool) {
	key, err := ResultKey(operation, vars)
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.results.Get(key)
	if !ok {
		return nil, false
	}
	data, ok := c.project(res.tree, res.sel)
	if !ok {
		c.results.Remove(key)
		c.evicted(evictStale)
		return nil, false
	}
	return data.(map[string]interface{}), true
}

// Write normalizes data into the entity store and records the result
func (c *Cache) Write(operation string, vars map[string]interface{}, data map[string]interface{}) error {
	key, err := ResultKey(operation, vars)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tree, sel := c.normalizeObject(data)
	res := &result{operation: operation, variables: vars, tree: tree.(map[string]interface{}), sel: sel}
	if c.results.Add(key, res) {
		c.evicted(evictCapacity)
	}
	return nil
}

// WriteEntities normalizes data without recording a result. Mutation payloads use this.
func (c *Cache) WriteEntities(data map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.normalizeObject(data)
}

// Entity returns a copy of a normalized object, references unresolved
func (c *Cache) Entity(typename, id string) (map[string]interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entities.Peek(EntityKey(typename, id))
	if !ok {
		return nil, false
	}
	out := make(map[string]interface{}, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out, true
}

// Evict removes one entity. Results that reference it become misses.
func (c *Cache) Evict(typename, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entities.Remove(EntityKey(typename, id)) {
		c.evicted(evictExplicit)
		return true
	}
	return false
}

// QueryRef names a dropped result so it can be fetched again
type QueryRef struct {
	Operation string
	Variables map[string]interface{}
}

// Invalidate drops every result of the named operations
func (c *Cache) Invalidate(operations ...string) []QueryRef {
	want := make(map[string]bool, len(operations))
	for _, op := range operations {
		want[op] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	var refs []QueryRef
	for _, key := range c.results.Keys() {
		res, ok := c.results.Peek(key)
		if !ok || !want[res.operation] {
			continue
		}
		c.results.Remove(key)
		refs = append(refs, QueryRef{Operation: res.operation, Variables: res.variables})
	}
	return refs
}

// Len returns the number of cached entities and results
func (c *Cache) Len() (entities, results int) {
	return c.entities.Len(), c.results.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities.Purge()
	c.results.Purge()
}

func (c *Cache) evicted(reason string) {
	if c.metrics != nil {
		c.metrics.Evictions.WithLabelValues(reason).Inc()
	}
}

// normalize replaces identifiable objects with references and returns the
// selection read from v. Maps without __typename are JSON scalars, kept whole.
func (c *Cache) normalize(v interface{}) (interface{}, selection) {
	switch val := v.(type) {
	case map[string]interface{}:
		if _, typed := val[typenameField].(string); !typed {
			return cloneJSON(val), nil
		}
		return c.normalizeObject(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		var sel selection
		for i, child := range val {
			var childSel selection
			out[i], childSel = c.normalize(child)
			sel = sel.merge(childSel)
		}
		return out, sel
	default:
		return v, nil
	}
}

// normalizeObject merges an identifiable object into the entity store and
// returns a reference to it; other objects stay inline.
func (c *Cache) normalizeObject(obj map[string]interface{}) (interface{}, selection) {
	fields := make(map[string]interface{}, len(obj))
	sel := make(selection, len(obj))
	for k, child := range obj {
		fields[k], sel[k] = c.normalize(child)
	}
	key, ok := identity(obj)
	if !ok {
		return fields, sel
	}
	merged, exists := c.entities.Peek(key)
	if !exists {
		merged = entity{}
	}
	for k, child := range fields {
		merged[k] = child
	}
	if c.entities.Add(key, merged) {
		c.evicted(evictCapacity)
	}
	return map[string]interface{}{refKey: key}, sel
}

// project resolves references and copies out exactly the fields in sel.
// ok is false when a reference is gone or a selected field, at any depth,
// is missing or has a different shape than when the result was written.
func (c *Cache) project(v interface{}, sel selection) (interface{}, bool) {
	switch val := v.(type) {
	case nil:
		return nil, true
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			resolved, ok := c.project(child, sel)
			if !ok {
				return nil, false
			}
			out[i] = resolved
		}
		return out, true
	case map[string]interface{}:
		_, isRef := val[refKey]
		_, typed := val[typenameField]
		if sel == nil {
			if isRef || typed {
				return nil, false
			}
			return cloneJSON(val), true
		}
		fields := val
		if isRef {
			e, ok := c.entities.Get(val[refKey].(string))
			if !ok {
				return nil, false
			}
			fields = e
		}
		out := make(map[string]interface{}, len(sel))
		for name, sub := range sel {
			field, present := fields[name]
			if !present {
				return nil, false
			}
			resolved, ok := c.project(field, sub)
			if !ok {
				return nil, false
			}
			out[name] = resolved
		}
		return out, true
	default:
		if sel != nil {
			return nil, false
		}
		return v, true
	}
}

func cloneJSON(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, child := range val {
			out[k] = cloneJSON(child)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, child := range val {
			out[i] = cloneJSON(child)
		}
		return out
	default:
		return v
	}
}

func identity(obj map[string]interface{}) (string, bool) {
	typename, _ := obj[typenameField].(string)
	if typename == "" {
		return "", false
	}
	switch id := obj["id"].(type) {
	case string:
		if id != "" {
			return EntityKey(typename, id), true
		}
	case json.Number:
		return EntityKey(typename, id.String()), true
	}
	return "", false
}
