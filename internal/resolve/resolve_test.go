package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/logging"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/model"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/workspace"
)

func newManager(w *workspace.Workspace) *Manager {
	return NewManager(model.NewContext(w, logging.NewDiscardLogger(), 0), bean.ProfileSet{})
}

func strs(ms []model.Model) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.String())
	}
	return out
}

func TestAutoConfigurationRoots(t *testing.T) {
	t.Parallel()
	w := workspace.New()
	w.AddModule("main", "")
	add := func(path, src string) {
		require.NoError(t, w.AddJava("main", "src/main/java/"+path, []byte(src)))
	}
	add("com/example/App.java", `package com.example;
@InfraApplication
public class App {}`)
	add("com/example/cfg/DbConfig.java", `package com.example.cfg;
@Configuration
public class DbConfig {}`)
	add("org/other/Standalone.java", `package org.other;
@Configuration
@ImportResource("classpath:imported.xml")
public class Standalone {}`)
	xml := func(name, body string) {
		require.NoError(t, w.AddXML("main", "src/main/resources/"+name, []byte(body)))
	}
	xml("a.xml", `<beans><import resource="b.xml"/></beans>`)
	xml("b.xml", `<beans><bean id="b" class="x.B"/></beans>`)
	xml("c.xml", `<beans><import resource="d.xml"/></beans>`)
	xml("d.xml", `<beans><import resource="c.xml"/></beans>`)
	xml("imported.xml", `<beans/>`)
	xml("pom.xml", `<project/>`)

	m := newManager(w)
	roots, err := m.Roots(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"class:com.example.App",
		"class:org.other.Standalone",
		"xml:src/main/resources/a.xml",
		"xml:src/main/resources/c.xml",
	}, strs(roots))

	w.SetAutoConfiguration(false)
	roots, err = m.Roots(context.Background(), "main")
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func fileSetWorkspace(t *testing.T) *workspace.Workspace {
	w := workspace.New()
	w.AddModule("core", "core")
	w.AddModule("web", "web", "core")
	w.AddModule("lib", "lib")
	w.AddModule("app", "app", "lib")
	require.NoError(t, w.AddXML("core", "core/src/main/resources/core.xml", []byte(`<beans><bean id="core" class="x.Core"/></beans>`)))
	require.NoError(t, w.AddXML("core", "core/src/main/resources/extra.xml", []byte(`<beans><bean id="extra" class="x.Extra"/></beans>`)))
	require.NoError(t, w.AddXML("app", "app/src/main/resources/app.xml", []byte(`<beans><bean id="app" class="x.App"/></beans>`)))
	require.NoError(t, w.SetFileSets("core", []source.FileSet{
		{ID: "base", Files: []string{"core/src/main/resources/core.xml"}, Dependencies: []string{"extra"}},
		{ID: "extra", Files: []string{"core/src/main/resources/extra.xml"}, Dependencies: []string{"base"}},
		{ID: "old", Files: []string{"core/src/main/resources/core.xml"}, Removed: true},
	}))
	require.NoError(t, w.SetFileSets("app", []source.FileSet{
		{ID: "main", Files: []string{"classpath:app.xml"}},
	}))
	w.SetAutoConfiguration(false)
	return w
}

func TestFileSetRoots(t *testing.T) {
	t.Parallel()
	m := newManager(fileSetWorkspace(t))
	ctx := context.Background()

	roots, err := m.Roots(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, []string{"fileset:core/base", "fileset:core/extra"}, strs(roots))

	closure, err := m.FileSetClosure(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, strs(roots), strs(closure))

	again, err := m.Roots(ctx, "core")
	require.NoError(t, err)
	assert.Same(t, roots[0], again[0])
}

func TestAllModelsFallback(t *testing.T) {
	t.Parallel()
	m := newManager(fileSetWorkspace(t))
	ctx := context.Background()

	fromDeps, err := m.AllModels(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"fileset:core/base", "fileset:core/extra"}, strs(fromDeps))

	fromDependents, err := m.AllModels(ctx, "lib")
	require.NoError(t, err)
	assert.Equal(t, []string{"fileset:app/main"}, strs(fromDependents))

	none, err := m.AllModels(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCombinedModel(t *testing.T) {
	t.Parallel()
	w := fileSetWorkspace(t)
	m := newManager(w)
	ctx := context.Background()

	combined, err := m.Combined(ctx, "core")
	require.NoError(t, err)
	_, ok := combined.ActiveProfiles()
	assert.False(t, ok)

	mc := m.Context()
	for _, name := range []string{"core", "extra"} {
		_, ok := model.FindBeanByName(ctx, mc, combined, name)
		assert.True(t, ok, name)
	}
	assert.Len(t, model.AllBeans(ctx, mc, combined), 2)

	same, err := m.Combined(ctx, "core")
	require.NoError(t, err)
	assert.Same(t, combined, same)

	require.NoError(t, w.SetFileSets("core", []source.FileSet{
		{ID: "base", Files: []string{"core/src/main/resources/core.xml"}},
	}))
	changed, err := m.Combined(ctx, "core")
	require.NoError(t, err)
	assert.NotSame(t, combined, changed)
	assert.Len(t, model.AllBeans(ctx, mc, changed), 1)
}

func TestDisposedAndCancelled(t *testing.T) {
	t.Parallel()
	w := fileSetWorkspace(t)
	m := newManager(w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Roots(ctx, "core")
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, w.DisposeModule("core"))
	roots, err := m.Roots(context.Background(), "core")
	require.NoError(t, err)
	assert.Empty(t, roots)

	combined, err := m.Combined(context.Background(), "core")
	require.NoError(t, err)
	assert.Empty(t, combined.Members())
}
