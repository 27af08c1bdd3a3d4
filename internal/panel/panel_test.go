package panel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirbrooks/vaulttasks/internal/task"
)

type counterFunc func(ctx context.Context) (task.Counts, error)

func (f counterFunc) Counts(ctx context.Context) (task.Counts, error) { return f(ctx) }

func TestSetTab(t *testing.T) {
	p := New(counterFunc(func(context.Context) (task.Counts, error) { return task.Counts{}, nil }), Options{})
	if p.ActiveTab() != task.TabAll {
		t.Fatalf("expected all tab by default, got %q", p.ActiveTab())
	}
	if !p.SetTab(task.TabOverdue) || p.ActiveTab() != task.TabOverdue {
		t.Fatalf("expected overdue tab")
	}
	if p.SetTab("someday") || p.ActiveTab() != task.TabOverdue {
		t.Fatalf("expected unknown tab to be ignored")
	}
}

func TestTriggerDebouncesBursts(t *testing.T) {
	var calls atomic.Int32
	published := make(chan task.Counts, 4)
	p := New(counterFunc(func(context.Context) (task.Counts, error) {
		n := calls.Add(1)
		return task.Counts{All: int(n)}, nil
	}), Options{
		Debounce: 30 * time.Millisecond,
		OnCounts: func(c task.Counts) { published <- c },
	})
	defer p.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		p.Trigger(ctx)
	}
	select {
	case c := <-published:
		if c.All != 1 {
			t.Fatalf("expected first recount, got %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for recount")
	}
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("expected a single recount for the burst, got %d", n)
	}
	if p.Counts().All != 1 {
		t.Fatalf("expected published counts to be stored, got %+v", p.Counts())
	}
}

func TestStaleRecountIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	var mu sync.Mutex
	var seen []task.Counts
	done := make(chan struct{}, 2)

	p := New(counterFunc(func(context.Context) (task.Counts, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-release
			return task.Counts{All: 1}, nil
		}
		return task.Counts{All: 2}, nil
	}), Options{
		Debounce: time.Millisecond,
		OnCounts: func(c task.Counts) {
			mu.Lock()
			seen = append(seen, c)
			mu.Unlock()
			done <- struct{}{}
		},
	})

	ctx := context.Background()
	p.Trigger(ctx)
	<-started

	p.Trigger(ctx)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for newer recount")
	}
	close(release)
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0].All != 2 {
		t.Fatalf("expected only the newer result, got %+v", seen)
	}
	if p.Counts().All != 2 {
		t.Fatalf("expected newer counts kept, got %+v", p.Counts())
	}
}

func TestRefreshReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	var reported error
	p := New(counterFunc(func(context.Context) (task.Counts, error) {
		return task.Counts{}, boom
	}), Options{OnError: func(err error) { reported = err }})

	if _, err := p.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !errors.Is(reported, boom) {
		t.Fatalf("expected error callback, got %v", reported)
	}
}

func TestCloseCancelsPendingTrigger(t *testing.T) {
	var calls atomic.Int32
	p := New(counterFunc(func(context.Context) (task.Counts, error) {
		calls.Add(1)
		return task.Counts{}, nil
	}), Options{Debounce: 20 * time.Millisecond})
	p.Trigger(context.Background())
	p.Close()
	time.Sleep(50 * time.Millisecond)
	p.Trigger(context.Background())
	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Fatalf("expected no recounts after close, got %d", n)
	}
}

func TestSetTabStoresCanonicalName(t *testing.T) {
	p := New(counterFunc(func(context.Context) (task.Counts, error) { return task.Counts{}, nil }), Options{})
	if !p.SetTab("TODAY") {
		t.Fatalf("expected upper-case tab to be accepted")
	}
	if p.ActiveTab() != task.TabToday {
		t.Fatalf("expected %q, got %q", task.TabToday, p.ActiveTab())
	}
	if got := (task.Counts{Today: 3}).Get(p.ActiveTab()); got != 3 {
		t.Fatalf("expected active tab to index counts, got %d", got)
	}
}

func TestRefreshAfterCloseDoesNotPublish(t *testing.T) {
	var calls atomic.Int32
	var published atomic.Int32
	p := New(counterFunc(func(context.Context) (task.Counts, error) {
		calls.Add(1)
		return task.Counts{All: 1}, nil
	}), Options{OnCounts: func(task.Counts) { published.Add(1) }})
	p.Close()

	if _, err := p.Refresh(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if calls.Load() != 0 || published.Load() != 0 {
		t.Fatalf("expected no recount after close, got %d calls and %d publishes", calls.Load(), published.Load())
	}
}
