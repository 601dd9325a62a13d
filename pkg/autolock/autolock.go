/*
Package autolock walks every currently registered SecretsStore once a
second, locking any whose autolock deadline has passed.
*/
package autolock

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trustless-go/trustless/pkg/log"
	"github.com/trustless-go/trustless/pkg/store"
)

// Locker periodically checks every registered store's Status and locks
// it once its AutolockAt deadline passes.
type Locker struct {
	logger zerolog.Logger

	mu     sync.Mutex
	stores map[string]*store.SecretsStore

	stopCh chan struct{}
}

// New creates a Locker with no stores registered yet.
func New() *Locker {
	return &Locker{
		logger: log.WithComponent("autolock"),
		stores: make(map[string]*store.SecretsStore),
		stopCh: make(chan struct{}),
	}
}

// Register adds s to the set of stores this Locker watches. Safe to
// call while Start has already run.
func (l *Locker) Register(s *store.SecretsStore) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stores[s.Name] = s
}

// Unregister stops watching s.
func (l *Locker) Unregister(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.stores, name)
}

// Start begins the autolock loop on its own goroutine.
func (l *Locker) Start() {
	go l.run()
}

// Stop ends the autolock loop.
func (l *Locker) Stop() {
	close(l.stopCh)
}

func (l *Locker) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	l.logger.Info().Msg("autolocker started")

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCh:
			l.logger.Info().Msg("autolocker stopped")
			return
		}
	}
}

func (l *Locker) sweep() {
	l.mu.Lock()
	names := make([]string, 0, len(l.stores))
	for name := range l.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	stores := make([]*store.SecretsStore, len(names))
	for i, name := range names {
		stores[i] = l.stores[name]
	}
	l.mu.Unlock()

	now := time.Now()
	for i, name := range names {
		s := stores[i]
		status := s.Status()
		if status.Locked || status.AutolockAt == nil {
			continue
		}
		if status.AutolockAt.Before(now) {
			if err := s.Lock(); err != nil {
				log.WithStore(l.logger, name).Error().Err(err).Msg("autolocker was unable to lock store")
				continue
			}
			log.WithStore(l.logger, name).Info().Msg("store autolocked")
		}
	}
}
