/*
Package service is the process-wide entry point a CLI or daemon binds
to: it owns the opened-store map, lazily constructing a
store.SecretsStore from persisted configuration the first time a store
is named, and registering every opened store with a shared autolock
loop and event hub.
*/
package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/trustless-go/trustless/pkg/autolock"
	"github.com/trustless-go/trustless/pkg/blockstore"
	"github.com/trustless-go/trustless/pkg/blockstore/boltstore"
	"github.com/trustless-go/trustless/pkg/blockstore/localdir"
	"github.com/trustless-go/trustless/pkg/blockstore/memstore"
	"github.com/trustless-go/trustless/pkg/blockstore/syncstore"
	"github.com/trustless-go/trustless/pkg/cipher"
	"github.com/trustless-go/trustless/pkg/config"
	"github.com/trustless-go/trustless/pkg/events"
	"github.com/trustless-go/trustless/pkg/log"
	"github.com/trustless-go/trustless/pkg/store"
	"github.com/trustless-go/trustless/pkg/syncer"
)

// eventHubCapacity bounds how many retained events pkg/events.Hub keeps
// for polling clients.
const eventHubCapacity = 256

// Service is the process-wide manager of opened stores. Every store it
// opens gets its own block store but shares its one event hub and
// Locker; Close stops the Locker.
type Service struct {
	cfg    config.Config
	hub    *events.Hub
	locker *autolock.Locker

	mu        sync.Mutex
	opened    map[string]*store.SecretsStore
	syncStops []context.CancelFunc

	logger zerolog.Logger
}

// New loads persisted configuration and starts the shared autolock
// loop.
func New() (*Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, newError(KindIO, err)
	}

	s := &Service{
		cfg:    cfg,
		hub:    events.NewHub(eventHubCapacity),
		locker: autolock.New(),
		opened: make(map[string]*store.SecretsStore),
		logger: log.WithComponent("service"),
	}
	s.locker.Start()
	return s, nil
}

// Close stops the autolock loop and every store's background
// synchronizer, then locks every store still open.
func (s *Service) Close() {
	s.locker.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stop := range s.syncStops {
		stop()
	}
	s.syncStops = nil
	for name, st := range s.opened {
		if err := st.Lock(); err != nil {
			log.WithStore(s.logger, name).Error().Err(err).Msg("failed to lock store on shutdown")
		}
	}
}

// Events returns the shared event hub every opened store publishes to.
func (s *Service) Events() *events.Hub {
	return s.hub
}

// Open returns the named store, opening its configured block store
// and wiring it into the autolock loop on first use.
func (s *Service) Open(name string) (*store.SecretsStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.opened[name]; ok {
		return st, nil
	}

	sc, ok := s.cfg.Stores[name]
	if !ok {
		return nil, newError(KindStoreNotFound, fmt.Errorf("service: no store named %q in config", name))
	}

	blocks, err := s.openConfiguredBlockStore(sc)
	if err != nil {
		return nil, newError(KindSecretsStore, err)
	}

	pipeline := cipher.DefaultPipeline()
	st := store.New(name, blocks, pipeline, cipher.Argon2ID{}, s.hub)

	s.opened[name] = st
	s.locker.Register(st)
	log.WithStore(s.logger, name).Info().Str("store_url", sc.StoreURL).Msg("store opened")
	return st, nil
}

// openConfiguredBlockStore builds sc's block store. When sc names a
// RemoteStoreURL, the local and remote stores are wrapped in a
// syncstore.Store (transparent read fallback to remote) and a
// syncer.Synchronizer is started on sc.SyncInterval to reconcile them;
// its background loop is tied to Close via s.syncStops. Without a
// RemoteStoreURL, the store is just the local block store.
func (s *Service) openConfiguredBlockStore(sc config.StoreConfig) (blockstore.Store, error) {
	local, err := openBlockStore(sc.StoreURL, sc.ClientID)
	if err != nil {
		return nil, err
	}
	if sc.RemoteStoreURL == "" {
		return local, nil
	}

	remote, err := openBlockStore(sc.RemoteStoreURL, sc.ClientID)
	if err != nil {
		return nil, err
	}

	synchronizer := syncer.New(local, remote, sc.SyncInterval())
	ctx, cancel := context.WithCancel(context.Background())
	s.syncStops = append(s.syncStops, cancel)
	go synchronizer.Run(ctx)

	return syncstore.New(local, remote), nil
}

// DefaultStoreName returns the configured default store, or an empty
// string if none is set.
func (s *Service) DefaultStoreName() string {
	return s.cfg.DefaultStore
}

// StoreConfig returns the persisted configuration for name.
func (s *Service) StoreConfig(name string) (config.StoreConfig, bool) {
	sc, ok := s.cfg.Stores[name]
	return sc, ok
}

// openBlockStore builds a blockstore.Store from a persisted store URL,
// used for both a store's primary location (store_url) and, when
// present, its synchronization peer (remote_store_url). Supported
// schemes are memory://, local://<path>, and bolt://<path>. A
// remote:// scheme requires a transport-specific Client and so cannot
// be constructed from a bare URL; either side of a sync pair can still
// be a local:// path mounted from removable or cloud storage.
func openBlockStore(storeURL, nodeID string) (blockstore.Store, error) {
	u, err := url.Parse(storeURL)
	if err != nil {
		return nil, fmt.Errorf("service: parse store_url %q: %w", storeURL, err)
	}

	path := u.Path
	if path == "" {
		path = u.Opaque
	}

	switch u.Scheme {
	case "memory":
		return memstore.New(nodeID), nil
	case "local":
		return localdir.New(path, nodeID)
	case "bolt":
		return boltstore.New(path, nodeID)
	default:
		return nil, fmt.Errorf("service: unsupported store_url scheme %q", u.Scheme)
	}
}
