package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/config"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/discover"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lang"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/parse"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

// DefaultMaxFileSize skips files larger than this many bytes.
const DefaultMaxFileSize = 1_000_000

// LoadOptions tune Load.
type LoadOptions struct {
	MaxFileSize int64
	// SkipTests leaves out test sources and test resources.
	SkipTests bool
}

type parsed struct {
	entry   discover.FileEntry
	module  string
	xml     *source.Element
	classes []*source.Class
	ok      bool
}

// Load discovers and parses every Java and XML file under root and registers
// the modules and file sets described by cfg. Files that cannot be read or
// parsed are logged and skipped.
func Load(ctx context.Context, root string, cfg *config.Config, opts LoadOptions, logger *slog.Logger) (*Workspace, error) {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	w := New()
	w.auto = cfg.AutoConfiguration
	for _, m := range cfg.Modules {
		w.AddModule(m.Name, m.Root, m.DependsOn...)
	}

	files, err := discover.Files(root, nil)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}

	var kept []discover.FileEntry
	for _, f := range files {
		if opts.SkipTests && f.Test {
			continue
		}
		if fi, err := os.Stat(filepath.Join(root, f.Path)); err == nil && fi.Size() > opts.MaxFileSize {
			logger.Warn("skipping large file", "file", f.Path, "size", fi.Size())
			continue
		}
		kept = append(kept, f)
	}

	results, err := parseConcurrent(ctx, root, kept, w, logger)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if !r.ok {
			continue
		}
		if r.xml != nil {
			w.PutXML(r.module, r.entry.Path, r.xml)
		} else {
			w.PutClasses(r.module, r.entry.Path, r.classes)
		}
	}

	for _, m := range cfg.Modules {
		if len(m.FileSets) == 0 {
			continue
		}
		sets := make([]source.FileSet, 0, len(m.FileSets))
		for _, fs := range m.FileSets {
			sets = append(sets, source.FileSet{
				ID:             fs.ID,
				Name:           fs.Name,
				Files:          fs.Files,
				Dependencies:   fs.Dependencies,
				ActiveProfiles: fs.ActiveProfiles,
				Removed:        fs.Removed,
			})
		}
		if err := w.SetFileSets(m.Name, sets); err != nil {
			return nil, err
		}
	}

	logger.Debug("workspace loaded", "root", root, "files", len(kept), "classes", len(w.classes))
	return w, nil
}

// parseConcurrent parses files on a bounded pool of workers, each with its
// own tree-sitter parser. Results keep the discovery order.
func parseConcurrent(ctx context.Context, root string, files []discover.FileEntry, w *Workspace, logger *slog.Logger) ([]parsed, error) {
	results := make([]parsed, len(files))
	if len(files) == 0 {
		return results, nil
	}

	javaLang := lang.Languages[lang.Java]
	query, err := javaLang.GetTagQuery()
	if err != nil {
		return nil, fmt.Errorf("compiling java query: %w", err)
	}

	numWorkers := min(runtime.GOMAXPROCS(0), len(files))
	work := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for i := range files {
			select {
			case work <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for range numWorkers {
		g.Go(func() error {
			var parser *sitter.Parser
			for idx := range work {
				if err := ctx.Err(); err != nil {
					return err
				}
				f := files[idx]
				module, ok := w.ModuleFor(f.Path)
				if !ok {
					logger.Debug("file outside every module", "file", f.Path)
					continue
				}
				data, err := os.ReadFile(filepath.Join(root, f.Path))
				if err != nil {
					logger.Warn("failed to read file", "file", f.Path, "err", err)
					continue
				}
				r := parsed{entry: f, module: module}
				switch f.Language {
				case lang.XML:
					el, err := parse.XML(data)
					if err != nil {
						logger.Warn("failed to parse xml", "file", f.Path, "err", err)
						continue
					}
					r.xml, r.ok = el, true
				case lang.Java:
					if parser == nil {
						parser = javaLang.NewParser()
					}
					r.classes = parse.Classes(parser, query, data, filepath.ToSlash(f.Path))
					r.ok = true
				}
				results[idx] = r
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parsing files: %w", err)
	}
	return results, nil
}

// Rel converts an absolute path under root to a workspace path.
func Rel(root, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
