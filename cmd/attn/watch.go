package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fyrsmithlabs/attnd/internal/folder"
	"github.com/fyrsmithlabs/attnd/internal/tree"
)

// watchDebounce coalesces bursts of filesystem events into one redraw.
const watchDebounce = 200 * time.Millisecond

// watchTree prints the tree of root and reprints it whenever a watched
// directory changes, until ctx is done.
func watchTree(ctx context.Context, svc *folder.Service, root folder.Root, out, errOut io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to initialize filesystem watcher: %w", err)
	}
	defer watcher.Close()

	redraw := func() error {
		res, err := svc.Tree(ctx, root)
		if err != nil {
			return err
		}
		// Add is a no-op for directories already watched.
		res.Tree.Walk(func(n *tree.Node) bool {
			if n.IsDir() {
				if err := watcher.Add(n.Path); err != nil {
					fmt.Fprintf(errOut, "warning: cannot watch %s: %v\n", n.Path, err)
				}
			}
			return true
		})
		fmt.Fprintf(out, "%s\n", time.Now().Format(time.TimeOnly))
		fmt.Fprint(out, renderTree(res.Tree))
		return nil
	}

	if err := redraw(); err != nil {
		return err
	}

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "warning: watch: %v\n", err)
		case <-timer.C:
			if err := redraw(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
