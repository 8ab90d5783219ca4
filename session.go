// Package nimbus holds the persistent state of the nimbus toolbox: a
// key-value cache under the user's home directory, secrets in an OS
// secret store, and persistent ID allocators.
//
// A Session owns all of it. Open one at program start, pass it to whatever
// needs state, and Close it on orderly shutdown to flush the cache and run
// shutdown listeners. If the process dies first, unsaved changes are lost.
package nimbus

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/kardianos/nimbus/ncache"
	"github.com/kardianos/nimbus/nid"
	"github.com/kardianos/nimbus/nlog"
	"github.com/kardianos/nimbus/nsecret"
	"github.com/kardianos/nimbus/nstore"
)

// ErrClosed is returned by Close after the first call.
var ErrClosed = errors.New("nimbus: session closed")

// Session is the explicit context for all persistent toolbox state.
type Session struct {
	home    string
	log     nlog.Logger
	cache   *ncache.Cache
	secrets *nsecret.Store
	ids     *nid.Manager

	mu        sync.Mutex
	lc        *lifecycle
	listeners []func() error
}

// Open loads the cache and opens the secret store described by cfg.
// A corrupted cache fails here.
func Open(cfg Config) (*Session, error) {
	cfg.setDefaults()
	log := cfg.Logger

	home, codec, backend, err := cfg.openCache()
	if err != nil {
		return nil, err
	}
	cache, err := ncache.New(ncache.Config{Backend: backend, Codec: codec, Logger: log})
	if err != nil {
		backend.Close()
		return nil, err
	}
	if err := cache.Load(); err != nil {
		cache.Close()
		return nil, err
	}

	store := cfg.SecretStore
	if store == nil {
		store, err = cfg.Backends.Open(cfg.SecretBackend, nstore.BackendConfig{
			Path:    cfg.SecretPath,
			Service: cfg.ServiceID,
		})
		if err != nil {
			cache.Close()
			return nil, err
		}
	}
	secrets, err := nsecret.New(nsecret.Config{Store: store, Prefix: cfg.SecretPrefix, Logger: log})
	if err != nil {
		cache.Close()
		return nil, err
	}

	ids, err := nid.NewManager(cache)
	if err != nil {
		cache.Close()
		return nil, err
	}

	s := &Session{
		home:    home,
		log:     log,
		cache:   cache,
		secrets: secrets,
		ids:     ids,
	}
	s.lc = newLifecycle(func(from, to phase, name string) {
		log.Debug("session "+name, nlog.Fields{"from": from.String(), "to": to.String()})
	})
	s.AddShutdownListener(ids.Save)

	log.Info("session opened", nlog.Fields{
		"cache":   cache.Path(),
		"secrets": store.Path(),
	})
	return s, nil
}

// openCache resolves the home directory and opens the cache backend without
// reading it. cfg must have its defaults set.
func (cfg *Config) openCache() (string, ncache.Codec, ncache.Backend, error) {
	home := cfg.Home
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return "", nil, nil, fmt.Errorf("home directory: %w", err)
		}
	}
	home = ncache.ExpandPath(home)

	codec, err := ncache.CodecByName(cfg.CacheCodec)
	if err != nil {
		return "", nil, nil, err
	}
	backend, err := ncache.OpenBackend(cfg.CacheBackend, home, codec)
	if err != nil {
		return "", nil, nil, err
	}
	return home, codec, backend, nil
}

// RemoveCache deletes the cache described by cfg without loading it, so a
// corrupted cache can be discarded. It returns the removed path. Removing a
// missing cache is not an error. Do not call it while a Session on the same
// cache is open.
func RemoveCache(cfg Config) (string, error) {
	cfg.setDefaults()
	_, _, backend, err := cfg.openCache()
	if err != nil {
		return "", err
	}
	path := backend.Path()
	err = backend.Remove()
	if cerr := backend.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("remove cache %s: %w", path, err)
	}
	cfg.Logger.Info("cache removed", nlog.Fields{"path": path})
	return path, nil
}

// Home returns the directory holding the cache.
func (s *Session) Home() string { return s.home }

// Cache returns the key-value cache.
func (s *Session) Cache() *ncache.Cache { return s.cache }

// Secrets returns the secret store.
func (s *Session) Secrets() *nsecret.Store { return s.secrets }

// IDs returns the ID allocator manager.
func (s *Session) IDs() *nid.Manager { return s.ids }

// GetData decodes the cached value for key into v. It reports false if absent.
func (s *Session) GetData(key string, v any) (bool, error) {
	return s.cache.Get(key, v)
}

// SetData stores v under key and persists the cache. A nil v removes the key.
func (s *Session) SetData(key string, v any) error {
	return s.cache.Set(key, v, true)
}

// AddShutdownListener registers fn to run once during Close, after the
// cache is flushed. Listeners run in registration order.
func (s *Session) AddShutdownListener(fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reset deletes the persisted cache and forgets every ID allocator.
// Secrets are not touched.
func (s *Session) Reset() error {
	s.ids.Reset()
	return s.cache.Delete()
}

// Close flushes the cache, runs the shutdown listeners and releases the
// cache backend. Only the first call does anything; later calls return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if err := s.lc.transitionTo(phaseClosing); err != nil {
		s.mu.Unlock()
		return ErrClosed
	}
	listeners := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	var errs []error
	if err := s.cache.Save(); err != nil {
		errs = append(errs, err)
	}
	for _, fn := range listeners {
		if err := fn(); err != nil {
			s.log.Error("shutdown listener failed", nlog.Fields{"error": err})
			errs = append(errs, err)
		}
	}
	if err := s.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}

	s.mu.Lock()
	s.lc.transitionTo(phaseClosed)
	s.mu.Unlock()

	return errors.Join(errs...)
}
