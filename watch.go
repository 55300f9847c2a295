package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/discover"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lang"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/workspace"
)

const defaultDebounce = 200 * time.Millisecond

func newWatchCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	q := &queryOptions{}
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Re-run a bean query whenever sources change",
		Long: `Load the workspace, print the result of a bean query, then watch the
workspace for Java and XML changes and print the result again after each batch
of changes. Only the models reading a changed file, or depending on a changed
class signature, are recomputed; each module's root set is re-resolved.

Examples:
  infra-model watch --name dataSource
  infra-model watch --type com.example.Repository --inheritors`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.name == "" && q.typ == "" {
				return errors.New("watch requires --name or --type")
			}
			if err := q.validate(); err != nil {
				return err
			}
			e, err := openEngine(cmd.Context(), opts, rootArg(args), stderr, q.profiles)
			if err != nil {
				return err
			}
			return e.watch(cmd.Context(), q, debounce, stdout)
		},
	}
	addQueryFlags(cmd, q)
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "wait this long for changes to settle")
	return cmd
}

// watch prints the query result, then again after every batch of changes
// until ctx is cancelled.
func (e *engine) watch(ctx context.Context, q *queryOptions, debounce time.Duration, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addDirs(watcher, e.root); err != nil {
		return fmt.Errorf("watching %s: %w", e.root, err)
	}

	if err := e.queryBeans(ctx, q, w); err != nil {
		return err
	}

	pending := make(map[string]fsnotify.Op)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !discover.SkipDir(info.Name()) {
					_ = addDirs(watcher, ev.Name)
				}
			}
			if !watched(ev.Name) {
				continue
			}
			pending[ev.Name] |= ev.Op
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watch error", "err", err)
		case <-timerC:
			timer, timerC = nil, nil
			changed := 0
			for path, op := range pending {
				if e.apply(path, op) {
					changed++
				}
			}
			clear(pending)
			if changed == 0 {
				continue
			}
			e.logger.Info("workspace changed", "files", changed)
			if err := e.queryBeans(ctx, q, w); err != nil {
				return err
			}
		}
	}
}

// apply folds one settled file change into the workspace and reports
// whether anything changed.
func (e *engine) apply(abs string, op fsnotify.Op) bool {
	rel, ok := workspace.Rel(e.root, abs)
	if !ok {
		return false
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) || errors.Is(err, fs.ErrNotExist) {
			e.ws.Remove(rel)
			return true
		}
		e.logger.Warn("failed to read file", "file", rel, "err", err)
		return false
	}
	if !e.includeTests && discover.IsTestFile(rel) {
		return false
	}

	module, ok := e.ws.ModuleFor(rel)
	if !ok {
		return false
	}
	if strings.HasSuffix(rel, ".java") {
		err = e.ws.AddJava(module, rel, data)
	} else {
		err = e.ws.AddXML(module, rel, data)
	}
	if err != nil {
		e.logger.Warn("keeping previous version", "file", rel, "err", err)
		return false
	}
	return true
}

func watched(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch lang.ForExtension(filepath.Ext(name)) {
	case lang.Java, lang.XML:
		return true
	}
	return false
}

func addDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
