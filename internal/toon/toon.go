// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// bean and model query results.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/graph"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// BeanRow is the flat form of one bean.
type BeanRow struct {
	Name     string   `yaml:"name"`
	Aliases  []string `yaml:"aliases,omitempty"`
	Type     string   `yaml:"type,omitempty"`
	Kind     string   `yaml:"kind"`
	Profiles string   `yaml:"profiles,omitempty"`
	File     string   `yaml:"file,omitempty"`
	Line     int      `yaml:"line,omitempty"`
}

// BeanReport is the result of a bean query.
type BeanReport struct {
	Module   string    `yaml:"module"`
	Query    string    `yaml:"query,omitempty"`
	Profiles []string  `yaml:"profiles,omitempty"`
	Beans    []BeanRow `yaml:"beans"`
}

// ModelRow is the flat form of one ranked model.
type ModelRow struct {
	Name   string  `yaml:"name"`
	Kind   string  `yaml:"kind"`
	Module string  `yaml:"module"`
	Beans  int     `yaml:"beans"`
	Rank   float64 `yaml:"rank"`
}

// EdgeRow is the flat form of one model dependency.
type EdgeRow struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Type   string `yaml:"type"`
	Label  string `yaml:"label,omitempty"`
}

// ModelReport is the ranked model graph of a module.
type ModelReport struct {
	Module string     `yaml:"module"`
	Models []ModelRow `yaml:"models"`
	Edges  []EdgeRow  `yaml:"edges"`
}

// NewBeanReport flattens ps. Beans reached through an alias keep the alias
// as their name.
func NewBeanReport(module, query string, profiles []string, ps []*bean.Pointer) *BeanReport {
	r := &BeanReport{Module: module, Query: query, Profiles: profiles, Beans: []BeanRow{}}
	for _, p := range ps {
		d := p.Descriptor()
		var aliases []string
		for _, n := range p.Names() {
			if n != p.Name() {
				aliases = append(aliases, n)
			}
		}
		r.Beans = append(r.Beans, BeanRow{
			Name:     p.Name(),
			Aliases:  aliases,
			Type:     strings.Join(d.Types(), " "),
			Kind:     string(d.Kind),
			Profiles: strings.Join(d.Profiles, " "),
			File:     d.Source.File,
			Line:     d.Source.Line,
		})
	}
	return r
}

// NewModelReport flattens a ranked graph.
func NewModelReport(module string, g *graph.Graph) *ModelReport {
	r := &ModelReport{Module: module, Models: []ModelRow{}, Edges: []EdgeRow{}}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		r.Models = append(r.Models, ModelRow{
			Name:   n.Name,
			Kind:   string(n.Kind),
			Module: n.Module,
			Beans:  n.Beans,
			Rank:   n.Rank,
		})
	}
	for _, e := range g.Edges {
		r.Edges = append(r.Edges, EdgeRow{
			Source: e.Source,
			Target: e.Target,
			Type:   string(e.Type),
			Label:  e.Label,
		})
	}
	return r
}

// EncodeBeans converts a BeanReport into TOON format.
func EncodeBeans(r *BeanReport) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("module: %s", encodeValue(r.Module)))
	if r.Query != "" {
		parts = append(parts, fmt.Sprintf("query: %s", encodeValue(r.Query)))
	}
	parts = append(parts, fmt.Sprintf("profiles: %s", encodeValue(strings.Join(r.Profiles, " "))))

	var rows [][]string
	for i := range r.Beans {
		b := &r.Beans[i]
		rows = append(rows, []string{
			b.Name,
			strings.Join(b.Aliases, " "),
			b.Type,
			b.Kind,
			b.Profiles,
			b.File,
			fmt.Sprintf("%d", b.Line),
		})
	}
	parts = append(parts, formatTabular("beans",
		[]string{"name", "aliases", "type", "kind", "profiles", "file", "line"}, rows))

	return strings.Join(parts, "\n")
}

// EncodeModels converts a ModelReport into TOON format.
func EncodeModels(r *ModelReport) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("module: %s", encodeValue(r.Module)))

	var modelRows [][]string
	for i := range r.Models {
		m := &r.Models[i]
		modelRows = append(modelRows, []string{
			m.Name,
			m.Kind,
			m.Module,
			fmt.Sprintf("%d", m.Beans),
			fmt.Sprintf("%.4f", m.Rank),
		})
	}
	parts = append(parts, formatTabular("models", []string{"name", "kind", "module", "beans", "rank"}, modelRows))

	var edgeRows [][]string
	for i := range r.Edges {
		e := &r.Edges[i]
		edgeRows = append(edgeRows, []string{e.Source, e.Target, e.Type, e.Label})
	}
	parts = append(parts, formatTabular("edges", []string{"source", "target", "type", "label"}, edgeRows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	switch {
	case value == "":
		return `""`
	case value != strings.TrimSpace(value), strings.ContainsAny(value, "\n\r\t"):
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	switch {
	case looksNumeric.MatchString(value):
		return value
	case needsQuoting.MatchString(value), strings.HasPrefix(value, "-"):
		return quote(value)
	}

	return value
}

func quote(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(value) + `"`
}
