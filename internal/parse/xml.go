// XML bean configuration files are read into source.Element trees.
package parse

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

// XML decodes data into an element tree. Namespace prefixes are preserved
// as written; line numbers are 1-based.
func XML(data []byte) (*source.Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	prefixes := map[string]string{}
	var stack []*source.Element
	var root *source.Element

	for {
		offset := dec.InputOffset()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &source.Element{
				Prefix: prefixFor(t.Name.Space, prefixes),
				Name:   t.Name.Local,
				Line:   lineAt(data, offset),
			}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					prefixes[a.Value] = a.Name.Local
					continue
				}
				if a.Name.Space == "" && a.Name.Local == "xmlns" {
					continue
				}
				name := a.Name.Local
				if a.Name.Space != "" && a.Name.Space != "xmlns" {
					name = a.Name.Space + ":" + name
				}
				el.Attrs = append(el.Attrs, source.Attr{Name: name, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("line %d: multiple root elements", el.Line)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				if text := strings.TrimSpace(string(t)); text != "" {
					top := stack[len(stack)-1]
					top.Text += text
				}
			}
		}
	}

	if root == nil {
		return nil, errors.New("no root element")
	}
	return root, nil
}

// RawToken leaves namespaces unresolved, so Name.Space already holds the
// prefix as written. Prefixes bound through xmlns declarations are kept too.
func prefixFor(space string, prefixes map[string]string) string {
	if space == "" {
		return ""
	}
	if p, ok := prefixes[space]; ok {
		return p
	}
	return space
}

func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	// The offset points before any leading whitespace of the token.
	chunk := data[:offset]
	line := bytes.Count(chunk, []byte{'\n'}) + 1
	rest := data[offset:]
	for _, b := range rest {
		if b == '<' {
			break
		}
		if b == '\n' {
			line++
		}
	}
	return line
}
