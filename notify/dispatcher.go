package notify

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// Publisher delivers a change to subscribers.
type Publisher interface {
	Publish(ctx context.Context, change domain.Change) error
}

// DispatcherConfig tunes the publish workers. Buffer is the number of boards
// with pending changes above which a backlog warning is logged.
type DispatcherConfig struct {
	Workers int
	Buffer  int
	Timeout time.Duration
}

// Dispatcher moves publishing off the command path. Changes are sharded by
// board and each shard has one worker, so a board's changes are published in
// commit order. A board has at most one pending change: a newer change
// replaces the queued one, since every change carries the full snapshot.
// Notify never blocks on the publisher.
type Dispatcher struct {
	publisher Publisher
	cfg       DispatcherConfig
	logger    *log.Logger

	shards []*shard
	wg     sync.WaitGroup
}

type shard struct {
	mu      sync.Mutex
	order   []string
	pending map[string]domain.Change
	wake    chan struct{}
	closed  bool
}

func NewDispatcher(publisher Publisher, cfg DispatcherConfig, logger *log.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	d := &Dispatcher{
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		shards:    make([]*shard, cfg.Workers),
	}
	for i := range d.shards {
		d.shards[i] = &shard{pending: make(map[string]domain.Change), wake: make(chan struct{}, 1)}
		d.wg.Add(1)
		go d.worker(i, d.shards[i])
	}
	logger.Infof("change dispatcher started, workers: %d, buffer: %d, timeout: %v",
		cfg.Workers, cfg.Buffer, cfg.Timeout)
	return d
}

// Notify queues a change for publishing. Changes arriving after Close are dropped.
func (d *Dispatcher) Notify(change domain.Change) {
	s := d.shards[shardFor(change.BoardID, len(d.shards))]
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		d.logger.WithFields(log.Fields{"board": change.BoardID, "version": change.Version}).Warn("dispatcher closed; change dropped")
		return
	}
	if prev, ok := s.pending[change.BoardID]; ok {
		if change.Version > prev.Version {
			s.pending[change.BoardID] = change
		}
		s.mu.Unlock()
		return
	}
	s.pending[change.BoardID] = change
	s.order = append(s.order, change.BoardID)
	backlog := len(s.order)
	s.mu.Unlock()
	s.signal()

	if limit := d.cfg.Buffer / len(d.shards); d.cfg.Buffer > 0 && backlog == limit+1 {
		d.logger.WithField("pending_boards", backlog).Warn("publish backlog growing")
	}
}

// Close stops accepting changes and waits for pending ones to be published.
func (d *Dispatcher) Close() {
	for _, s := range d.shards {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.signal()
	}
	d.wg.Wait()
}

func (s *shard) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// next blocks until a change is pending and removes it. It reports false once
// the shard is closed and drained.
func (s *shard) next() (domain.Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) == 0 {
		if s.closed {
			return domain.Change{}, false
		}
		s.mu.Unlock()
		<-s.wake
		s.mu.Lock()
	}
	id := s.order[0]
	s.order = s.order[1:]
	c := s.pending[id]
	delete(s.pending, id)
	return c, true
}

func (s *shard) backlog() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (d *Dispatcher) worker(id int, s *shard) {
	defer d.wg.Done()
	for {
		c, ok := s.next()
		if !ok {
			return
		}
		d.publish(id, c)
	}
}

func (d *Dispatcher) publish(worker int, c domain.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, c); err != nil {
		d.logger.WithFields(log.Fields{
			"board":   c.BoardID,
			"version": c.Version,
			"worker":  worker,
		}).WithError(err).Error("publish change failed")
	}
}

func shardFor(boardID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(boardID))
	return int(h.Sum32() % uint32(n))
}
