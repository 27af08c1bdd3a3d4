// Package panel holds the view state of a task listing: the active tab and
// the latest tab counts. Counts are recomputed on demand, with bursts of
// change notifications collapsed into one recount.
package panel

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"github.com/amirbrooks/vaulttasks/internal/task"
)

const DefaultDebounce = 100 * time.Millisecond

var ErrClosed = errors.New("panel closed")

// Counter computes tab counts for the whole vault.
type Counter interface {
	Counts(ctx context.Context) (task.Counts, error)
}

type Options struct {
	Logger   *log.Logger
	Debounce time.Duration
	// OnCounts receives every published result.
	OnCounts func(task.Counts)
	// OnError receives recount failures of the newest generation.
	OnError func(error)
}

type Panel struct {
	counter  Counter
	logger   *log.Logger
	debounce time.Duration
	onCounts func(task.Counts)
	onError  func(error)

	mu      sync.Mutex
	active  task.Tab
	counts  task.Counts
	timer   *time.Timer
	latest  ulid.ULID
	closed  bool
	pending sync.WaitGroup
}

func New(counter Counter, opts Options) *Panel {
	p := &Panel{
		counter:  counter,
		logger:   opts.Logger,
		debounce: opts.Debounce,
		onCounts: opts.OnCounts,
		onError:  opts.OnError,
		active:   task.TabAll,
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard)
	}
	if p.debounce <= 0 {
		p.debounce = DefaultDebounce
	}
	return p
}

func (p *Panel) ActiveTab() task.Tab {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// SetTab switches the active tab. Unknown tabs are ignored.
func (p *Panel) SetTab(tab task.Tab) bool {
	if tab == "" {
		return false
	}
	parsed, err := task.ParseTab(string(tab))
	if err != nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = parsed
	return true
}

// Counts returns the last published counts.
func (p *Panel) Counts() task.Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts
}

// Trigger schedules a recount after the debounce window. A newer trigger
// replaces a pending one, and a recount that finishes after a newer one was
// started is discarded.
func (p *Panel) Trigger(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	gen := ulid.Make()
	p.latest = gen
	p.timer = time.AfterFunc(p.debounce, func() {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.pending.Add(1)
		p.mu.Unlock()
		defer p.pending.Done()
		_, _ = p.recount(ctx, gen)
	})
}

// Refresh recounts immediately and publishes the result unless a newer
// recount has started meanwhile. After Close it returns ErrClosed.
func (p *Panel) Refresh(ctx context.Context) (task.Counts, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return task.Counts{}, ErrClosed
	}
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	gen := ulid.Make()
	p.latest = gen
	p.pending.Add(1)
	p.mu.Unlock()
	defer p.pending.Done()
	return p.recount(ctx, gen)
}

// Close cancels any pending recount and waits for running ones.
func (p *Panel) Close() {
	p.mu.Lock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	p.pending.Wait()
}

func (p *Panel) recount(ctx context.Context, gen ulid.ULID) (task.Counts, error) {
	counts, err := p.counter.Counts(ctx)

	p.mu.Lock()
	if gen != p.latest || p.closed {
		p.mu.Unlock()
		p.logger.Debug("discarding stale recount", "generation", gen.String())
		return counts, err
	}
	if err != nil {
		p.mu.Unlock()
		p.logger.Error("recount failed", "generation", gen.String(), "error", err)
		if p.onError != nil {
			p.onError(err)
		}
		return counts, err
	}
	p.counts = counts
	onCounts := p.onCounts
	p.mu.Unlock()

	p.logger.Debug("published counts", "generation", gen.String(), "all", counts.All)
	if onCounts != nil {
		onCounts(counts)
	}
	return counts, nil
}
