package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/rendergraph"
)

// settle coalesces the bursts of events editors produce on save.
const settle = 100 * time.Millisecond

// watchFile bakes cfg.path once and again after every change until ctx is
// done. Bake errors are reported and watching continues. Edits that keep
// the graph's declarations reuse the cached plan.
func watchFile(ctx context.Context, w io.Writer, cfg config) error {
	if cfg.cache == nil {
		cfg.cache = rendergraph.NewPlanCache(16)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// editors often replace the file, so watch its directory
	if err := watcher.Add(filepath.Dir(cfg.path)); err != nil {
		return err
	}
	target := filepath.Clean(cfg.path)

	rebake := func() {
		if err := bake(w, cfg); err != nil {
			fmt.Fprintf(w, "rgbake: %v\n", err)
		}
	}
	rebake()

	timer := time.NewTimer(settle)
	timer.Stop()
	log := rendergraph.Logger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				log.Debug("rgbake: change", "file", event.Name, "op", event.Op.String())
				timer.Reset(settle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("rgbake: watcher error", "err", err)
		case <-timer.C:
			fmt.Fprintln(w)
			rebake()
		}
	}
}
