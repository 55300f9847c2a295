package lookup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/tracker"
)

type fakeSource struct {
	beans   []*bean.Pointer
	aliases []bean.AliasDecl
	tr      *tracker.Tracker
	calls   int
}

func (s *fakeSource) LocalBeans() []*bean.Pointer {
	s.calls++
	return s.beans
}

func (s *fakeSource) NameMapper() *bean.NameMapper {
	return bean.NewNameMapper(s.beans, s.aliases)
}

func (s *fakeSource) Trackers() []*tracker.Tracker { return []*tracker.Tracker{s.tr} }

func (s *fakeSource) ResolveParent(name string) (*bean.Pointer, bool) {
	return s.NameMapper().Resolve(name)
}

type fakeTypes struct {
	classes    map[string]*source.Class
	factories  map[string]string
	inheritors map[string][]*source.Class
}

func (f *fakeTypes) Class(fqn string) (*source.Class, bool) {
	c, ok := f.classes[fqn]
	return c, ok
}
func (f *fakeTypes) IsAssignable(sub, super string) bool { return sub == super }
func (f *fakeTypes) Inheritors(module, fqn string) []*source.Class {
	return f.inheritors[fqn]
}
func (f *fakeTypes) FactoryObjectType(fqn string) (string, bool) {
	t, ok := f.factories[fqn]
	return t, ok
}
func (f *fakeTypes) ResolveTypeName(from *source.Class, name string) string { return name }

func mk(d bean.Descriptor) *bean.Pointer {
	return bean.New(&d, nil)
}

func newFixture() (*fakeSource, *fakeTypes) {
	types := &fakeTypes{
		classes: map[string]*source.Class{
			"x.Widget":  {FQN: "x.Widget", Abstract: true},
			"x.Gadget":  {FQN: "x.Gadget"},
			"x.Special": {FQN: "x.Special"},
		},
		factories: map[string]string{"x.WidgetFactoryBean": "x.Widget"},
		inheritors: map[string][]*source.Class{
			"x.Widget": {
				{FQN: "x.Gadget"},
				{FQN: "x.Hidden", Private: true},
				{FQN: "x.Special"},
			},
		},
	}
	src := &fakeSource{
		tr: tracker.New("src"),
		beans: []*bean.Pointer{
			mk(bean.Descriptor{Name: "foo", Aliases: []string{"fooAlias"}, DeclaredType: "x.Widget"}),
			mk(bean.Descriptor{Name: "gadget", DeclaredType: "x.Gadget"}),
			mk(bean.Descriptor{Name: "factory", DeclaredType: "x.WidgetFactoryBean", EffectiveTypes: []string{"x.Widget"}}),
			mk(bean.Descriptor{Name: "child", ParentName: "foo"}),
			mk(bean.Descriptor{Name: "template", DeclaredType: "x.Widget", Abstract: true}),
			mk(bean.Descriptor{Name: "devOnly", DeclaredType: "x.Special", Profiles: bean.Profiles{"dev"}}),
			mk(bean.Descriptor{Name: "loop", ParentName: "loop"}),
		},
		aliases: []bean.AliasDecl{{Alias: "a1", Target: "fooAlias"}},
	}
	return src, types
}

func names(ps []*bean.Pointer) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}

func TestProcessorFindByName(t *testing.T) {
	t.Parallel()

	src, types := newFixture()
	p := NewProcessor(src, types, nil, 0)
	none := bean.NewProfileSet()

	assert.Equal(t, []string{"foo"}, names(p.FindByName("foo", none)))
	assert.Equal(t, []string{"fooAlias"}, names(p.FindByName("fooAlias", none)))
	assert.Equal(t, []string{"a1"}, names(p.FindByName("a1", none)))
	assert.Empty(t, p.FindByName("missing", none))
	assert.Empty(t, p.FindByName("", none))

	first, ok := p.FindFirstByName("a1", none)
	require.True(t, ok)
	assert.Equal(t, "foo", first.Base().Name())
	_, ok = p.FindFirstByName("devOnly", bean.NewProfileSet("prod"))
	assert.False(t, ok)
}

func TestProcessorFindByType(t *testing.T) {
	t.Parallel()

	src, types := newFixture()
	p := NewProcessor(src, types, NewInheritorCache(types, "main", tracker.New("classes")), 0)
	none := bean.NewProfileSet()

	assert.Equal(t, []string{"foo"}, names(p.FindByType(TypeQuery{Type: "x.Widget"}, none)))
	assert.Equal(t, []string{"foo", "template"},
		names(p.FindByType(TypeQuery{Type: "x.Widget", IncludeAbstract: true}, none)))
	assert.Equal(t, []string{"foo", "factory", "child"},
		names(p.FindByType(TypeQuery{Type: "x.Widget", Effective: true}, none)))
	assert.Equal(t, []string{"foo", "gadget", "devOnly"},
		names(p.FindByType(TypeQuery{Type: "x.Widget", WithInheritors: true}, none)))
	assert.Equal(t, []string{"foo", "gadget"},
		names(p.FindByType(TypeQuery{Type: "x.Widget", WithInheritors: true}, bean.NewProfileSet("prod"))))
	assert.Empty(t, p.FindByType(TypeQuery{Type: "x.Unknown", Effective: true}, none))

	first, ok := p.FindFirstByType(TypeQuery{Type: "x.Gadget"}, none)
	require.True(t, ok)
	assert.Equal(t, "gadget", first.Name())
}

func TestProcessorCacheInvalidatesOnTracker(t *testing.T) {
	t.Parallel()

	src, types := newFixture()
	p := NewProcessor(src, types, nil, 0)
	none := bean.NewProfileSet()

	require.Len(t, p.FindByName("newBean", none), 0)
	p.FindByName("newBean", none)
	assert.Equal(t, 1, src.calls)

	src.beans = append(src.beans, mk(bean.Descriptor{Name: "newBean", DeclaredType: "x.Gadget"}))
	src.tr.Inc()

	assert.Len(t, p.FindByName("newBean", none), 1)
	assert.Equal(t, 2, src.calls)
}

func TestProcessorSelfParentTerminates(t *testing.T) {
	t.Parallel()

	src, types := newFixture()
	p := NewProcessor(src, types, nil, 0)
	loop := src.beans[len(src.beans)-1]
	assert.Empty(t, p.EffectiveTypes(loop))
}

func TestLRUEvictsOldest(t *testing.T) {
	t.Parallel()

	c := NewLRU[int, string](3, nil)
	for i := range 3 {
		c.Put(i, fmt.Sprint(i))
	}
	_, _ = c.Get(0)
	c.Put(3, "3")

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(0)
	assert.True(t, ok)
}

func TestLRUPurgesInvalidKeysFirst(t *testing.T) {
	t.Parallel()

	invalid := map[int]bool{1: true, 2: true}
	c := NewLRU[int, int](3, func(k int) bool { return !invalid[k] })
	c.Put(0, 0)
	c.Put(1, 1)
	c.Put(2, 2)
	c.Put(3, 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(0)
	assert.True(t, ok, "valid oldest entry survives when invalid ones can be purged")
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestLRUGetOrCompute(t *testing.T) {
	t.Parallel()

	c := NewLRU[string, int](0, nil)
	calls := 0
	f := func() int { calls++; return 5 }
	assert.Equal(t, 5, c.GetOrCompute("k", f))
	assert.Equal(t, 5, c.GetOrCompute("k", f))
	assert.Equal(t, 1, calls)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
