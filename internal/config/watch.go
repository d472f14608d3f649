package config

import (
	"context"
	"log"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// WatchSites watches the sites directory and logs when conf files change.
// Routes are immutable for the process lifetime, so changes never apply
// live; the log line tells the operator a restart is needed. Blocks until
// ctx is canceled.
func WatchSites(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".conf") {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				log.Printf("site config changed on disk (%s); restart gw to apply", event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("site config watcher error: %v", err)
		}
	}
}
