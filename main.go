// infra-model resolves the bean model of an Infra or Spring workspace and
// answers bean queries over it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/config"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/graph"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/logging"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lookup"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/model"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/ranking"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/resolve"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/toon"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/workspace"
)

var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath  string
	verbose     int
	quiet       bool
	maxFileSize int64
	withTests   bool
}

// queryOptions select the beans a query reports.
type queryOptions struct {
	module      string
	name        string
	typ         string
	grep        string
	inheritors  bool
	effective   bool
	exists      bool
	descendants bool
	profiles    []string
	format      string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "infra-model",
		Short:         "Resolve the bean model of an Infra workspace",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("infra-model {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default <root>/"+config.FileName+")")
	pf.CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "silence logging")
	pf.Int64Var(&opts.maxFileSize, "max-file-size", workspace.DefaultMaxFileSize, "skip files larger than this many bytes")
	pf.BoolVar(&opts.withTests, "tests", false, "include test sources and resources")

	root.AddCommand(
		newBeansCmd(opts, stdout, stderr),
		newModelsCmd(opts, stdout, stderr),
		newWatchCmd(opts, stdout, stderr),
		newInitCmd(stdout, stderr),
	)
	return root
}

func addQueryFlags(cmd *cobra.Command, q *queryOptions) {
	f := cmd.Flags()
	f.StringVarP(&q.module, "module", "m", "", "module to query (default: first configured module)")
	f.StringVarP(&q.name, "name", "n", "", "find beans by name or alias")
	f.StringVarP(&q.typ, "type", "t", "", "find beans by qualified class name")
	f.BoolVar(&q.inheritors, "inheritors", false, "with --type, also match beans of subclasses")
	f.BoolVar(&q.effective, "effective", false, "with --type, match factory products and inherited parent types")
	f.StringSliceVarP(&q.profiles, "profiles", "p", nil, "active profiles (overrides the config)")
	f.StringVarP(&q.format, "format", "f", "toon", "output format: toon or yaml")
}

func newBeansCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	q := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "beans [root]",
		Short: "List or find beans visible in a module",
		Long: `List the beans of a module's application context, or find them by name or type.

Examples:
  infra-model beans
  infra-model beans --name dataSource
  infra-model beans --type com.example.Repository --inheritors
  infra-model beans --type com.example.Widget --effective --exists
  infra-model beans --name baseService --descendants
  infra-model beans -p dev,local --format yaml /path/to/workspace`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := q.validate(); err != nil {
				return err
			}
			e, err := openEngine(cmd.Context(), opts, rootArg(args), stderr, q.profiles)
			if err != nil {
				return err
			}
			return e.queryBeans(cmd.Context(), q, stdout)
		},
	}
	addQueryFlags(cmd, q)
	cmd.Flags().StringVarP(&q.grep, "grep", "g", "", "keep beans with a name containing this substring")
	cmd.Flags().BoolVar(&q.exists, "exists", false, "with --type, only report whether a bean exists")
	cmd.Flags().BoolVar(&q.descendants, "descendants", false, "with --name, list the beans inheriting from the found bean")
	return cmd
}

func (q *queryOptions) validate() error {
	if q.name != "" && q.typ != "" {
		return errors.New("--name and --type are mutually exclusive")
	}
	if q.exists && q.typ == "" {
		return errors.New("--exists requires --type")
	}
	if q.descendants && q.name == "" {
		return errors.New("--descendants requires --name")
	}
	switch q.format {
	case "toon", "yaml":
	default:
		return fmt.Errorf("unsupported format %q", q.format)
	}
	return nil
}

// modelsOptions select the part of the model graph `models` reports.
type modelsOptions struct {
	module     string
	filter     string
	declaredIn string
	top        int
	format     string
}

func newModelsCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	mo := &modelsOptions{}
	cmd := &cobra.Command{
		Use:   "models [root]",
		Short: "Show the model graph of a module ranked by PageRank",
		Long: `Show every model reachable from a module's roots (XML files, configuration
classes, component scans, file sets) with the dependency edges between them.
Models are ranked by PageRank: a model many others import ranks first.

Examples:
  infra-model models
  infra-model models --module web --top 20
  infra-model models --filter DataConfig
  infra-model models --module web --declared-in core`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mo.format != "toon" && mo.format != "yaml" {
				return fmt.Errorf("unsupported format %q", mo.format)
			}
			e, err := openEngine(cmd.Context(), opts, rootArg(args), stderr, nil)
			if err != nil {
				return err
			}
			return e.queryModels(cmd.Context(), mo, stdout)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&mo.module, "module", "m", "", "module to show (default: first configured module)")
	f.StringVar(&mo.filter, "filter", "", "keep models whose name contains this substring, with their neighbours")
	f.StringVar(&mo.declaredIn, "declared-in", "", "keep models whose source file belongs to this module, with their neighbours")
	f.IntVar(&mo.top, "top", 0, "keep only the N highest ranked models")
	f.StringVarP(&mo.format, "format", "f", "toon", "output format: toon or yaml")
	return cmd
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// engine is a loaded workspace with its model graph.
type engine struct {
	root     string
	cfg      *config.Config
	logger   *slog.Logger
	ws       *workspace.Workspace
	mc       *model.Context
	mgr      *resolve.Manager
	profiles bean.ProfileSet

	includeTests bool
}

func openEngine(ctx context.Context, opts *globalOptions, root string, stderr io.Writer, profiles []string) (*engine, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	cfg, err := config.Load(root, opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	level := logging.LevelFromVerbosity(logging.LevelFromString(cfg.LogLevel), opts.verbose, opts.quiet)
	logger := logging.NewLogger(stderr, level)

	ws, err := workspace.Load(ctx, root, cfg, workspace.LoadOptions{
		MaxFileSize: opts.maxFileSize,
		SkipTests:   !opts.withTests,
	}, logger)
	if err != nil {
		return nil, err
	}

	if len(profiles) == 0 {
		profiles = cfg.ActiveProfiles
	}
	active := bean.NewProfileSet(profiles...)
	mc := model.NewContext(ws, logger, cfg.CacheSize)
	return &engine{
		root:     root,
		cfg:      cfg,
		logger:   logger,
		ws:       ws,
		mc:       mc,
		mgr:      resolve.NewManager(mc, active),
		profiles: active,

		includeTests: opts.withTests,
	}, nil
}

func (e *engine) module(name string) (string, error) {
	if name == "" {
		return e.cfg.Modules[0].Name, nil
	}
	if _, ok := e.ws.Module(name); !ok {
		return "", fmt.Errorf("%s: %w", name, workspace.ErrModuleNotFound)
	}
	return name, nil
}

// findBeans runs the bean query q against the combined model of module.
func (e *engine) findBeans(ctx context.Context, module string, q *queryOptions) ([]*bean.Pointer, *model.CombinedModel, error) {
	combined, err := e.mgr.Combined(ctx, module)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving models of %s: %w", module, err)
	}

	var found []*bean.Pointer
	switch {
	case q.name != "":
		found = model.FindBeansByName(ctx, e.mc, combined, q.name)
	case q.typ != "":
		found = model.FindBeansByType(ctx, e.mc, combined, lookup.TypeQuery{
			Type:           q.typ,
			WithInheritors: q.inheritors,
			Effective:      q.effective,
		})
	default:
		found = model.AllBeans(ctx, e.mc, combined)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return ranking.FilterBeans(found, q.grep), combined, nil
}

func (e *engine) queryBeans(ctx context.Context, q *queryOptions, w io.Writer) error {
	module, err := e.module(q.module)
	if err != nil {
		return err
	}

	if q.exists {
		combined, err := e.mgr.Combined(ctx, module)
		if err != nil {
			return fmt.Errorf("resolving models of %s: %w", module, err)
		}
		ok := model.BeanExists(ctx, e.mc, combined, q.typ)
		_, err = fmt.Fprintf(w, "exists: %t\n", ok)
		return err
	}

	found, combined, err := e.findBeans(ctx, module, q)
	if err != nil {
		return err
	}
	if q.descendants {
		var children []*bean.Pointer
		for _, p := range found {
			children = append(children, model.DescendantBeans(ctx, e.mc, combined, p)...)
		}
		found = bean.Dedup(children)
	}

	r := toon.NewBeanReport(module, q.describe(), e.profiles.Names(), found)
	if q.format == "yaml" {
		return writeYAML(w, r)
	}
	_, err = fmt.Fprintln(w, toon.EncodeBeans(r))
	return err
}

func (q *queryOptions) describe() string {
	var parts []string
	if q.name != "" {
		parts = append(parts, "name="+q.name)
	}
	if q.typ != "" {
		parts = append(parts, "type="+q.typ)
		if q.inheritors {
			parts = append(parts, "inheritors")
		}
		if q.effective {
			parts = append(parts, "effective")
		}
	}
	if q.descendants {
		parts = append(parts, "descendants")
	}
	if q.grep != "" {
		parts = append(parts, "grep="+q.grep)
	}
	return strings.Join(parts, " ")
}

func (e *engine) queryModels(ctx context.Context, mo *modelsOptions, w io.Writer) error {
	module, err := e.module(mo.module)
	if err != nil {
		return err
	}
	roots, err := e.mgr.AllModels(ctx, module)
	if err != nil {
		return fmt.Errorf("resolving models of %s: %w", module, err)
	}

	g, err := graph.Build(ctx, e.mc, roots)
	if err != nil {
		return err
	}
	graph.Rank(g)
	if mo.declaredIn != "" {
		if _, ok := e.ws.Module(mo.declaredIn); !ok {
			return fmt.Errorf("%s: %w", mo.declaredIn, workspace.ErrModuleNotFound)
		}
		g = ranking.FilterByModule(g, mo.declaredIn)
	}
	if mo.filter != "" {
		g = ranking.FilterByName(g, mo.filter)
	}
	g = ranking.SelectModels(g, mo.top)

	r := toon.NewModelReport(module, g)
	if mo.format == "yaml" {
		return writeYAML(w, r)
	}
	_, err = fmt.Fprintln(w, toon.EncodeModels(r))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
