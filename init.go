package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/config"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/discover"
)

const configHeader = `# infra-model workspace configuration.
#
# modules: each module owns the files under its root. dependsOn puts the
# classpath of other modules in scope (imports, component scans, fallback
# application contexts).
# fileSets: explicit application contexts. Without any, every configuration
# class and beans XML file that nothing else imports becomes a root
# (autoConfiguration).
`

func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		dryRun bool
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init [workspace]",
		Short: "Write a starter " + config.FileName,
		Long: `Write a starter ` + config.FileName + ` describing the modules found in a workspace.
A directory containing src/main/java or src/main/resources becomes a module;
when none is found, one module named main covers the whole workspace.

An existing file is left alone unless --force is given. With --dry-run the
file is printed instead of written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootArg(args), dryRun, force, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without writing it")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing "+config.FileName)
	return cmd
}

func runInit(root string, dryRun, force bool, stdout, stderr io.Writer) error {
	modules, err := detectModules(root)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}
	content, err := starterConfig(modules)
	if err != nil {
		return err
	}

	if dryRun {
		_, _ = stdout.Write(content)
		return nil
	}

	path := filepath.Join(root, config.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to replace it)", path)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote %s with %d module(s)\n", path, len(modules))
	return nil
}

// starterConfig renders the default configuration for modules, preceded by
// a comment header. It is a pure function for easy testing.
func starterConfig(modules []config.ModuleConfig) ([]byte, error) {
	cfg := config.Default()
	if len(modules) > 0 {
		cfg.Modules = modules
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	b.WriteString(configHeader)
	b.Write(data)
	return b.Bytes(), nil
}

// detectModules finds directories holding Maven or Gradle style source
// roots. Module names are the directory base names, made unique with the
// parent path when needed. A module nested in another depends on nothing;
// dependencies are left for the user to fill in.
func detectModules(root string) ([]config.ModuleConfig, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if d.Name() == "src" {
			if hasSourceRoot(path) {
				rel, err := filepath.Rel(root, filepath.Dir(path))
				if err != nil {
					return err
				}
				dirs = append(dirs, filepath.ToSlash(rel))
			}
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, nil
	}
	sort.Strings(dirs)

	used := make(map[string]int)
	for _, d := range dirs {
		used[moduleName(d)]++
	}
	modules := make([]config.ModuleConfig, 0, len(dirs))
	for _, d := range dirs {
		name := moduleName(d)
		if used[name] > 1 {
			name = strings.ReplaceAll(d, "/", "-")
		}
		r := d
		if r == "." {
			r = ""
		}
		modules = append(modules, config.ModuleConfig{Name: name, Root: r})
	}
	return modules, nil
}

func hasSourceRoot(src string) bool {
	for _, sub := range []string{"main/java", "main/resources"} {
		if fi, err := os.Stat(filepath.Join(src, filepath.FromSlash(sub))); err == nil && fi.IsDir() {
			return true
		}
	}
	return false
}

func moduleName(dir string) string {
	if dir == "." {
		return "main"
	}
	return filepath.Base(dir)
}
