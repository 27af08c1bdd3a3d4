package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/amirbrooks/vaulttasks/internal/panel"
	"github.com/amirbrooks/vaulttasks/internal/store"
	"github.com/amirbrooks/vaulttasks/internal/task"
	"github.com/amirbrooks/vaulttasks/internal/watch"
)

var errSessionLocked = errors.New("another watch session is running for this vault")

// acquireSessionLock takes <root>/.vaulttasks/watch.lock without blocking.
func acquireSessionLock(root string) (*flock.Flock, error) {
	dir := filepath.Join(root, ".vaulttasks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(dir, "watch.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, errSessionLocked
	}
	return lock, nil
}

func (a *app) newWatchCmd() *cobra.Command {
	var tabName string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print tab counts whenever project notes change",
		Long: `Watch the vault and print tab counts after every change to a note.
Bursts of changes are collapsed into one recount (see recount_debounce).

Examples:
  vaulttasks watch --tab today
  vaulttasks watch --ndjson --stdout-ndjson`,
		Args: argsUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab, err := task.ParseTab(tabName)
			if err != nil {
				return &usageError{err: err}
			}
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			lock, err := acquireSessionLock(a.cfg.Root)
			if err != nil {
				return err
			}
			defer lock.Unlock()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var mu sync.Mutex
			var p *panel.Panel
			p = panel.New(e, panel.Options{
				Logger:   a.logger,
				Debounce: a.cfg.Debounce(),
				OnCounts: func(c task.Counts) {
					mu.Lock()
					defer mu.Unlock()
					a.printCounts(c, p.ActiveTab(), e.Today())
				},
				OnError: func(err error) {
					a.logger.Error("recount failed", "error", err)
				},
			})
			defer p.Close()
			p.SetTab(tab)

			w, err := watch.New(a.cfg.Root, a.logger)
			if err != nil {
				return err
			}
			defer w.Close()

			if _, err := p.Refresh(ctx); err != nil {
				return err
			}
			a.logger.Info("watching vault", "root", a.cfg.Root, "debounce", a.cfg.Debounce())
			return w.Run(ctx, func(string) { p.Trigger(ctx) })
		},
	}
	cmd.Flags().StringVar(&tabName, "tab", "", "Highlighted tab")
	return cmd
}

func (a *app) printCounts(c task.Counts, active task.Tab, today string) {
	if a.gf.NDJSON && a.gf.StdoutNDJSON {
		b, err := json.Marshal(map[string]any{"today": today, "active": active, "counts": c.Map()})
		if err != nil {
			a.logger.Error("encode counts", "error", err)
			return
		}
		fmt.Fprintln(a.out, string(b))
		return
	}
	fmt.Fprintln(a.out, store.RenderCounts(c, active))
}
