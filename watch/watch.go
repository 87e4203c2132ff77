// Package watch notifies a verifier loop whenever a director manifest
// file changes on disk, grounded on rjeczalik/notify for the
// filesystem event source and golang.org/x/sync/errgroup for
// coordinating the watch goroutine with its caller's lifetime, the way
// the teacher coordinates worker goroutines elsewhere in the tree.
package watch

import (
	"context"
	"fmt"

	"github.com/rjeczalik/notify"
	"golang.org/x/sync/errgroup"
)

// Watcher receives write, create and rename events for the manifest
// path on one rjeczalik/notify channel; each event is delivered
// separately, with no coalescing.
type Watcher struct {
	events chan notify.EventInfo
	path   string
}

func New(path string) (*Watcher, error) {
	events := make(chan notify.EventInfo, 16)
	if err := notify.Watch(path, events, notify.Write, notify.Create, notify.Rename); err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	return &Watcher{events: events, path: path}, nil
}

func (w *Watcher) Close() {
	notify.Stop(w.events)
	close(w.events)
}

// Run invokes onChange once per filesystem event until ctx is
// cancelled, returning the first error onChange produces (or ctx's
// error on cancellation).
func (w *Watcher) Run(ctx context.Context, onChange func(path string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-w.events:
				if !ok {
					return nil
				}
				if err := onChange(ev.Path()); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}
