package codecache

import (
	"errors"

	"github.com/chazu/garnet/scope"
	"github.com/chazu/garnet/vm"
)

// Cache adapts a Store to vm.BodyCache. Failures are logged and treated as
// misses so a broken cache never stops a program from running.
type Cache struct {
	store *Store
}

var _ vm.BodyCache = (*Cache)(nil)

// NewCache wraps store.
func NewCache(store *Store) *Cache {
	return &Cache{store: store}
}

// Store returns the underlying store.
func (c *Cache) Store() *Store { return c.store }

// Close closes the underlying store.
func (c *Cache) Close() error { return c.store.Close() }

// Load returns the cached body for key, rebuilt against scopes.
func (c *Cache) Load(key [32]byte, scopes []*scope.StaticScope) (*vm.CompiledBody, bool) {
	data, err := c.store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warningf("cache lookup %s: %s", KeyString(key)[:12], err)
		}
		return nil, false
	}
	body, err := Decode(data, scopes)
	if err != nil {
		log.Warningf("discarding cached body %s: %s", KeyString(key)[:12], err)
		if err := c.store.Delete(key); err != nil {
			log.Warningf("%s", err)
		}
		return nil, false
	}
	log.Debugf("loaded %s from cache", body.Name)
	return body, true
}

// Save stores body under key.
func (c *Cache) Save(key [32]byte, body *vm.CompiledBody, scopes []*scope.StaticScope) {
	data, err := Encode(body, scopes)
	if err != nil {
		log.Warningf("encoding %s: %s", body.Name, err)
		return
	}
	if err := c.store.Put(key, body.Name, data); err != nil {
		log.Warningf("%s", err)
	}
}
