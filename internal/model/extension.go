package model

import (
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

// Extension contributes beans and dependency edges the built-in parsers do
// not know about, such as custom XML namespaces. Returned descriptors must be
// fresh on every call; the model freezes them.
type Extension interface {
	Name() string
	// XMLBeans is called for every element of a beans file that no built-in
	// parser handles.
	XMLBeans(file *source.XMLFile, el *source.Element) []*bean.Descriptor
	// ClassBeans is called once per class model.
	ClassBeans(cls *source.Class) []*bean.Descriptor
	// Dependencies returns additional edges of a local model.
	Dependencies(mc *Context, m Local) []Dependency
}
