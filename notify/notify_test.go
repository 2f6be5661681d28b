package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"kanban-api/board"
	"kanban-api/domain"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

type broadcastRecorder struct {
	mu   sync.Mutex
	msgs map[string][][]byte
}

func (r *broadcastRecorder) record(boardID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.msgs == nil {
		r.msgs = make(map[string][][]byte)
	}
	r.msgs[boardID] = append(r.msgs[boardID], data)
}

func (r *broadcastRecorder) get(boardID string) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.msgs[boardID]...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	rc := newRedis(t)
	logger, _ := test.NewNullLogger()
	rec := &broadcastRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Subscribe(ctx, logger, rc, "updates", rec.record)
		close(done)
	}()
	// wait for subscription to start
	waitFor(t, time.Second, func() bool {
		n, _ := rc.PubSubNumSub(context.Background(), "updates").Result()
		return n["updates"] > 0
	})

	pub := NewRedisPublisher(rc, "updates")
	change := domain.Change{
		BoardID: "user-1",
		Version: 3,
		Reason:  domain.DragOver,
		Snapshot: domain.Snapshot{
			Version: 3,
			Columns: []domain.Column{{ID: "c1", Title: "Todo"}},
			Tasks:   []domain.Task{{ID: "t1", ColumnID: "c1", Content: "x"}},
		},
	}
	if err := pub.Publish(context.Background(), change); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(rec.get("user-1")) == 1 })

	var got domain.Change
	if err := sonic.Unmarshal(rec.get("user-1")[0], &got); err != nil {
		t.Fatalf("decode change: %v", err)
	}
	if got.Version != 3 || got.Reason != domain.DragOver || got.Snapshot.Tasks[0].ColumnID != "c1" {
		t.Fatalf("unexpected change: %#v", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not exit")
	}
}

func TestSubscribeSkipsMalformedPayloads(t *testing.T) {
	rc := newRedis(t)
	logger, hook := test.NewNullLogger()
	rec := &broadcastRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Subscribe(ctx, logger, rc, "updates", rec.record)
	waitFor(t, time.Second, func() bool {
		n, _ := rc.PubSubNumSub(context.Background(), "updates").Result()
		return n["updates"] > 0
	})

	_ = rc.Publish(context.Background(), "updates", "not json").Err()
	_ = rc.Publish(context.Background(), "updates", `{"boardId":"b1"}`).Err()
	waitFor(t, time.Second, func() bool { return len(rec.get("b1")) == 1 })
	if hook.LastEntry() == nil {
		t.Fatalf("expected malformed payload to be logged")
	}
}

type fakePublisher struct {
	mu      sync.Mutex
	changes []domain.Change
	err     error
	block   chan struct{}
}

func (f *fakePublisher) Publish(ctx context.Context, c domain.Change) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, c)
	return f.err
}

func (f *fakePublisher) Changes() []domain.Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Change(nil), f.changes...)
}

func assertBoardOrder(t *testing.T, changes []domain.Change) map[string]uint64 {
	t.Helper()
	last := map[string]uint64{}
	for _, c := range changes {
		if c.Version <= last[c.BoardID] {
			t.Fatalf("board %s published version %d after %d", c.BoardID, c.Version, last[c.BoardID])
		}
		last[c.BoardID] = c.Version
	}
	return last
}

func TestDispatcherPublishesInBoardOrder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := &fakePublisher{}
	d := NewDispatcher(pub, DispatcherConfig{Workers: 4, Buffer: 64, Timeout: time.Second}, logger)

	for v := uint64(1); v <= 20; v++ {
		d.Notify(domain.Change{BoardID: "a", Version: v})
		d.Notify(domain.Change{BoardID: "b", Version: v})
	}
	d.Close()

	last := assertBoardOrder(t, pub.Changes())
	if last["a"] != 20 || last["b"] != 20 {
		t.Fatalf("latest changes not published: %#v", last)
	}
}

func TestDispatcherKeepsBoardOrderWhenPublisherStalls(t *testing.T) {
	logger, hook := test.NewNullLogger()
	pub := &fakePublisher{block: make(chan struct{})}
	d := NewDispatcher(pub, DispatcherConfig{Workers: 1, Buffer: 1, Timeout: time.Second}, logger)

	// The worker takes v1 and blocks in Publish; later changes wait behind it.
	d.Notify(domain.Change{BoardID: "a", Version: 1})
	waitFor(t, time.Second, func() bool { return d.shards[0].backlog() == 0 })
	for v := uint64(2); v <= 5; v++ {
		d.Notify(domain.Change{BoardID: "a", Version: v})
		d.Notify(domain.Change{BoardID: "b", Version: v})
	}
	if got := d.shards[0].backlog(); got != 2 {
		t.Fatalf("expected one pending change per board, got %d", got)
	}

	close(pub.block)
	d.Close()

	changes := pub.Changes()
	last := assertBoardOrder(t, changes)
	if last["a"] != 5 || last["b"] != 5 {
		t.Fatalf("latest changes not published: %#v", last)
	}
	if len(changes) != 3 {
		t.Fatalf("expected v1 and one coalesced change per board, got %d", len(changes))
	}
	found := false
	for _, e := range hook.AllEntries() {
		if e.Message == "publish backlog growing" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected backlog warning")
	}
}

func TestBoardCommandsNotBlockedByStalledPublisher(t *testing.T) {
	logger, _ := test.NewNullLogger()
	pub := &fakePublisher{block: make(chan struct{})}
	d := NewDispatcher(pub, DispatcherConfig{Workers: 1, Buffer: 1, Timeout: time.Second}, logger)
	b := board.New("a", nil, d, logger)

	todo, _ := b.CreateColumn("Todo")
	done, _ := b.CreateColumn("Done")
	task, _, err := b.CreateTask(todo.ID, "")
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := b.DragStart(domain.KindTask, task.ID); err != nil {
		t.Fatalf("drag start: %v", err)
	}

	finished := make(chan error, 1)
	go func() {
		targets := []domain.ID{done.ID, todo.ID}
		for i := 0; i < 100; i++ {
			if _, err := b.DragOver(task.ID, targets[i%2], domain.KindColumn); err != nil {
				finished <- err
				return
			}
		}
		finished <- nil
	}()
	select {
	case err := <-finished:
		if err != nil {
			t.Fatalf("drag over: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("hover ticks blocked behind the publisher")
	}

	close(pub.block)
	d.Close()
	last := assertBoardOrder(t, pub.Changes())
	if want := b.Snapshot().Version; last["a"] != want {
		t.Fatalf("expected final version %d published, got %d", want, last["a"])
	}
}

func TestDispatcherLogsPublishErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	pub := &fakePublisher{err: errors.New("redis down")}
	d := NewDispatcher(pub, DispatcherConfig{Workers: 1, Buffer: 1, Timeout: time.Second}, logger)
	d.Notify(domain.Change{BoardID: "a", Version: 1})
	d.Close()

	entry := hook.LastEntry()
	if entry == nil || entry.Message != "publish change failed" || entry.Data["board"] != "a" {
		t.Fatalf("expected publish failure log, got %#v", entry)
	}
}

func TestDispatcherDropsChangesAfterClose(t *testing.T) {
	logger, hook := test.NewNullLogger()
	pub := &fakePublisher{}
	d := NewDispatcher(pub, DispatcherConfig{Workers: 2, Buffer: 2, Timeout: time.Second}, logger)
	d.Close()
	d.Close()
	d.Notify(domain.Change{BoardID: "a", Version: 1})
	if len(pub.Changes()) != 0 {
		t.Fatalf("expected no publish after close")
	}
	if entry := hook.LastEntry(); entry == nil || entry.Message != "dispatcher closed; change dropped" {
		t.Fatalf("expected dropped change to be logged, got %#v", entry)
	}
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub(1)
	ch1, unregister1 := h.Register("b1")
	ch2, unregister2 := h.Register("b1")
	_, unregister3 := h.Register("b2")
	defer unregister2()
	defer unregister3()

	if n := h.Broadcast("b1", []byte("one")); n != 2 {
		t.Fatalf("expected 2 receivers, got %d", n)
	}
	// ch1 is full; the second message is dropped for it.
	<-ch2
	if n := h.Broadcast("b1", []byte("two")); n != 1 {
		t.Fatalf("expected 1 receiver with free buffer, got %d", n)
	}
	if got := string(<-ch1); got != "one" {
		t.Fatalf("unexpected payload %q", got)
	}

	unregister1()
	unregister1()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected channel closed after unregister")
	}
	if h.Clients("b1") != 1 || h.Clients("b2") != 1 {
		t.Fatalf("unexpected client counts: %d %d", h.Clients("b1"), h.Clients("b2"))
	}
	if n := h.Broadcast("none", []byte("x")); n != 0 {
		t.Fatalf("expected no receivers")
	}
}
