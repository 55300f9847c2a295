// Package parse reads configuration sources: Java type declarations with
// tree-sitter and XML bean files with encoding/xml.
package parse

import (
	"context"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lang"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

var declarationTypes = map[string]struct{}{
	"class_declaration":           {},
	"interface_declaration":       {},
	"annotation_type_declaration": {},
	"enum_declaration":            {},
	"record_declaration":          {},
}

type nodeKey [2]uint32

func keyOf(n *sitter.Node) nodeKey {
	return nodeKey{n.StartByte(), n.EndByte()}
}

// Classes parses a Java source file and returns its top-level type
// declarations; nested declarations hang off their enclosing class.
// The parser must be created for Java. filePath is recorded in Class.File.
func Classes(parser *sitter.Parser, query *sitter.Query, src []byte, filePath string) []*source.Class {
	if len(src) == 0 {
		return nil
	}

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	pkg, imports := header(root, src)

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)

	byNode := make(map[nodeKey]*source.Class)
	var top []*source.Class

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, src)

		var nameNode, defNode *sitter.Node
		var kind string
		for _, c := range match.Captures {
			cname := query.CaptureNameForId(c.Index)
			if cname == "name" {
				nameNode = c.Node
			} else if strings.HasPrefix(cname, "definition.") {
				kind = strings.TrimPrefix(cname, "definition.")
				defNode = c.Node
			}
		}
		if nameNode == nil || defNode == nil {
			continue
		}
		if _, dup := byNode[keyOf(defNode)]; dup {
			continue
		}

		cls := buildClass(defNode, kind, src)
		cls.Name = lang.NodeText(nameNode, src)
		cls.Line = int(nameNode.StartPoint().Row) + 1
		cls.File = filePath
		cls.Package = pkg
		cls.Imports = imports

		if outer := enclosingClass(defNode, byNode); outer != nil {
			cls.FQN = outer.FQN + "." + cls.Name
			cls.Outer = outer.FQN
			if kind != "class" {
				// Nested interfaces, enums and annotations are implicitly static.
				cls.Static = true
			}
			outer.Nested = append(outer.Nested, cls)
		} else {
			cls.FQN = qualify(pkg, cls.Name)
			top = append(top, cls)
		}
		byNode[keyOf(defNode)] = cls
	}

	return top
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

func header(root *sitter.Node, src []byte) (string, []string) {
	var pkg string
	var imports []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				n := child.NamedChild(j)
				if n.Type() == "scoped_identifier" || n.Type() == "identifier" {
					pkg = lang.NodeText(n, src)
				}
			}
		case "import_declaration":
			text := lang.CollapseWhitespace(lang.NodeText(child, src))
			text = strings.TrimSuffix(strings.TrimPrefix(text, "import "), ";")
			text = strings.TrimPrefix(text, "static ")
			imports = append(imports, strings.ReplaceAll(strings.TrimSpace(text), " ", ""))
		}
	}
	return pkg, imports
}

func enclosingClass(n *sitter.Node, byNode map[nodeKey]*source.Class) *source.Class {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if _, ok := declarationTypes[p.Type()]; ok {
			return byNode[keyOf(p)]
		}
	}
	return nil
}

func buildClass(node *sitter.Node, kind string, src []byte) *source.Class {
	cls := &source.Class{}
	switch kind {
	case "interface":
		cls.Interface = true
	case "annotation":
		cls.Interface = true
		cls.Annotation = true
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "modifiers":
			anns, mods := modifiers(child, src)
			cls.Annotations = anns
			_, cls.Abstract = mods["abstract"]
			_, cls.Private = mods["private"]
			_, cls.Static = mods["static"]
		case "superclass":
			if t := firstNamed(child); t != nil {
				cls.Superclass, cls.SuperArgs = typeName(t, src)
			}
		case "super_interfaces", "extends_interfaces":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				list := child.NamedChild(j)
				if list.Type() != "type_list" {
					continue
				}
				for k := 0; k < int(list.NamedChildCount()); k++ {
					name, args := typeName(list.NamedChild(k), src)
					cls.Interfaces = append(cls.Interfaces, name)
					cls.InterfaceArgs = append(cls.InterfaceArgs, args)
				}
			}
		}
	}
	if cls.Interface {
		cls.Abstract = true
	}

	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			child := body.NamedChild(i)
			if child.Type() == "method_declaration" {
				cls.Methods = append(cls.Methods, method(child, src))
			}
		}
	}
	return cls
}

func method(node *sitter.Node, src []byte) source.Method {
	m := source.Method{Line: int(node.StartPoint().Row) + 1}
	if name := node.ChildByFieldName("name"); name != nil {
		m.Name = lang.NodeText(name, src)
		m.Line = int(name.StartPoint().Row) + 1
	}
	if t := node.ChildByFieldName("type"); t != nil {
		m.ReturnType, m.ReturnArgs = typeName(t, src)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "modifiers" {
			continue
		}
		anns, mods := modifiers(child, src)
		m.Annotations = anns
		_, m.Static = mods["static"]
		_, m.Private = mods["private"]
	}
	return m
}

func modifiers(node *sitter.Node, src []byte) ([]source.Annotation, map[string]struct{}) {
	var anns []source.Annotation
	mods := make(map[string]struct{})
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "annotation", "marker_annotation":
			anns = append(anns, annotation(child, src))
		default:
			mods[child.Type()] = struct{}{}
		}
	}
	return anns, mods
}

func annotation(node *sitter.Node, src []byte) source.Annotation {
	a := source.Annotation{
		Attrs: make(map[string]source.Value),
		Line:  int(node.StartPoint().Row) + 1,
	}
	if name := node.ChildByFieldName("name"); name != nil {
		a.Name = lang.NodeText(name, src)
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return a
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "element_value_pair" {
			key := arg.ChildByFieldName("key")
			val := arg.ChildByFieldName("value")
			if key == nil || val == nil {
				continue
			}
			a.Attrs[lang.NodeText(key, src)] = elementValue(val, src)
			continue
		}
		if arg.Type() == "comment" || arg.Type() == "line_comment" || arg.Type() == "block_comment" {
			continue
		}
		a.Attrs["value"] = elementValue(arg, src)
	}
	return a
}

func elementValue(node *sitter.Node, src []byte) source.Value {
	v := source.Value{Raw: lang.NodeText(node, src)}
	switch node.Type() {
	case "string_literal":
		v.Strings = []string{unquote(v.Raw)}
	case "class_literal":
		if t := firstNamed(node); t != nil {
			name, _ := typeName(t, src)
			v.Classes = []string{name}
		}
	case "true":
		v.Bools = []bool{true}
	case "false":
		v.Bools = []bool{false}
	case "annotation", "marker_annotation":
		v.Nested = []source.Annotation{annotation(node, src)}
	case "element_value_array_initializer":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			inner := elementValue(node.NamedChild(i), src)
			v.Strings = append(v.Strings, inner.Strings...)
			v.Classes = append(v.Classes, inner.Classes...)
			v.Bools = append(v.Bools, inner.Bools...)
			v.Nested = append(v.Nested, inner.Nested...)
		}
	case "binary_expression":
		// "a" + "b" constant concatenation.
		var sb strings.Builder
		ok := true
		for i := 0; i < int(node.NamedChildCount()); i++ {
			part := elementValue(node.NamedChild(i), src)
			if len(part.Strings) != 1 {
				ok = false
				break
			}
			sb.WriteString(part.Strings[0])
		}
		if ok {
			v.Strings = []string{sb.String()}
		}
	case "parenthesized_expression":
		if inner := firstNamed(node); inner != nil {
			r := elementValue(inner, src)
			r.Raw = v.Raw
			return r
		}
	}
	return v
}

// typeName returns the erased type name as written and its type arguments.
func typeName(node *sitter.Node, src []byte) (string, []string) {
	switch node.Type() {
	case "generic_type":
		var base string
		var args []string
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "type_arguments":
				for j := 0; j < int(child.NamedChildCount()); j++ {
					arg, _ := typeName(child.NamedChild(j), src)
					args = append(args, arg)
				}
			default:
				if base == "" {
					base = lang.NodeText(child, src)
				}
			}
		}
		return base, args
	case "annotated_type":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() != "annotation" && child.Type() != "marker_annotation" {
				return typeName(child, src)
			}
		}
	}
	return lang.CollapseWhitespace(lang.NodeText(node, src)), nil
}

func firstNamed(node *sitter.Node) *sitter.Node {
	if node.NamedChildCount() == 0 {
		return nil
	}
	return node.NamedChild(0)
}

func unquote(lit string) string {
	if strings.HasPrefix(lit, `"""`) {
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(lit, `"""`), `"""`))
	}
	if s, err := strconv.Unquote(lit); err == nil {
		return s
	}
	return strings.Trim(lit, `"`)
}
