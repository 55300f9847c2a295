package lang

import "github.com/smacker/go-tree-sitter/java"

const (
	Java = "java"
	XML  = "xml"
)

func init() {
	Languages[Java] = &Language{
		Name:       Java,
		Extensions: []string{".java"},
		lang:       java.GetLanguage(),
	}
	Languages[XML] = &Language{
		Name:       XML,
		Extensions: []string{".xml"},
	}
}
