package board

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Registry holds one board per user, created on first access.
type Registry struct {
	mu       sync.Mutex
	boards   map[string]*Board
	ids      IDGenerator
	seed     *Seed
	notifier Notifier
	logger   *log.Logger
}

// NewRegistry creates a registry. seed and notifier may be nil.
func NewRegistry(ids IDGenerator, seed *Seed, notifier Notifier, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Registry{
		boards:   make(map[string]*Board),
		ids:      ids,
		seed:     seed,
		notifier: notifier,
		logger:   logger,
	}
}

// Get returns the user's board, creating it from the seed if needed.
func (r *Registry) Get(userID string) *Board {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.boards[userID]; ok {
		return b
	}
	store := NewStore(r.ids)
	if err := r.seed.apply(store); err != nil {
		r.logger.WithError(err).WithField("board", userID).Warn("seed board failed, starting empty")
		store = NewStore(r.ids)
	}
	b := New(userID, store, r.notifier, r.logger)
	r.boards[userID] = b
	r.logger.WithField("board", userID).Debug("board created")
	return b
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}
