package codecache

import (
	"errors"

	"github.com/chazu/garnet/config"
	"github.com/chazu/garnet/vm"
)

// ErrDisabled is returned by OpenFor when the configuration turns the cache
// off.
var ErrDisabled = errors.New("code cache is disabled")

// OpenFor opens the cache at cfg.CachePath when cache.enabled is set.
func OpenFor(cfg *config.Config) (*Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, ErrDisabled
	}
	store, err := Open(cfg.CachePath())
	if err != nil {
		return nil, err
	}
	return NewCache(store), nil
}

// NewRuntime builds a runtime from cfg with the body cache attached when it
// is enabled. The returned cache is nil otherwise; the caller closes it once
// the runtime is done.
func NewRuntime(cfg *config.Config) (*vm.Runtime, *Cache, error) {
	opts := cfg.Options()
	cache, err := OpenFor(cfg)
	switch {
	case errors.Is(err, ErrDisabled):
		log.Debugf("running without the code cache")
	case err != nil:
		return nil, nil, err
	default:
		opts.Cache = cache
	}
	return vm.NewRuntime(opts), cache, nil
}
