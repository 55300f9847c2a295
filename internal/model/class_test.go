package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/bean"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lookup"
)

func configFixture(t *testing.T) *fixture {
	f := newFixture(t)
	f.java("app/Widget.java", widgetJava)
	f.java("app/Other.java", `package app;
@Configuration
public class Other {
    @Bean Widget otherWidget() { return null; }
}`)
	f.java("app/AppConfig.java", `package app;

import cn.taketoday.beans.factory.FactoryBean;

@Configuration
@Import(Other.class)
@ImportResource("classpath:legacy.xml")
public class AppConfig {

    @Bean(name = {"dataSource", "ds"})
    public Widget dataSource() { return null; }

    @Bean
    @Profile("prod")
    public Widget prodWidget() { return null; }

    @Bean
    @Primary
    static FactoryBean<Widget> widgetFactory() { return null; }

    private void helper() {}

    @Configuration
    static class Inner {
        @Bean Widget innerWidget() { return null; }
    }
}`)
	f.xml("legacy.xml", `<beans><bean id="legacyWidget" class="app.Widget"/></beans>`)
	return f
}

func TestClassModelBeans(t *testing.T) {
	t.Parallel()
	f := configFixture(t)

	m, ok := f.mc.ClassModel("app.AppConfig", "main", bean.ProfileSet{})
	require.True(t, ok)
	assert.Equal(t, []string{"appConfig", "dataSource", "prodWidget", "widgetFactory"}, names(m.LocalBeans()))

	ds, ok := m.Names().Resolve("ds")
	require.True(t, ok)
	assert.Equal(t, "dataSource", ds.Base().Name())
	d := ds.Descriptor()
	assert.Equal(t, bean.FactoryMethod, d.Kind)
	assert.Equal(t, "appConfig", d.FactoryBean)
	assert.Equal(t, "app.Widget", d.DeclaredType)

	wf, ok := m.Names().Resolve("widgetFactory")
	require.True(t, ok)
	assert.True(t, wf.Descriptor().Primary)
	assert.Equal(t, []string{"app.Widget"}, wf.Descriptor().EffectiveTypes)

	dev, ok := f.mc.ClassModel("app.AppConfig", "main", bean.NewProfileSet("dev"))
	require.True(t, ok)
	assert.Equal(t, []string{"appConfig", "dataSource", "widgetFactory"}, names(dev.LocalBeans()))
}

func TestClassModelDependencies(t *testing.T) {
	t.Parallel()
	f := configFixture(t)
	m, ok := f.mc.ClassModel("app.AppConfig", "main", bean.ProfileSet{})
	require.True(t, ok)

	var got []string
	for _, dep := range m.Dependencies() {
		target, ok := f.mc.Get(dep.Model)
		require.True(t, ok)
		got = append(got, string(dep.Edge.Type)+" "+target.String())
	}
	assert.Equal(t, []string{
		"import class:app.Other",
		"import xml:" + resources + "legacy.xml",
		"import class:app.AppConfig.Inner",
	}, got)

	ctx := context.Background()
	for _, name := range []string{"otherWidget", "legacyWidget", "innerWidget", "ds"} {
		_, ok := FindBeanByName(ctx, f.mc, m, name)
		assert.True(t, ok, name)
	}
	assert.True(t, BeanExists(ctx, f.mc, m, "app.Widget"))
	assert.False(t, BeanExists(ctx, f.mc, m, "app.Missing"))
	assert.Len(t, FindBeansByType(ctx, f.mc, m, lookup.TypeQuery{Type: "app.Widget", Effective: true}), 6)
}

func TestClassProfileGate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.java("app/DevConfig.java", `package app;
@Configuration
@Profile("dev")
public class DevConfig {
    @Bean Object devThing() { return null; }
}`)

	prod, ok := f.mc.ClassModel("app.DevConfig", "main", bean.NewProfileSet("prod"))
	require.True(t, ok)
	assert.Empty(t, prod.LocalBeans())
	assert.Empty(t, prod.Dependencies())

	dev, ok := f.mc.ClassModel("app.DevConfig", "main", bean.NewProfileSet("dev"))
	require.True(t, ok)
	require.Len(t, dev.LocalBeans(), 2)
	assert.Equal(t, bean.Profiles{"dev"}, dev.LocalBeans()[1].Descriptor().Profiles)
}

func TestClassAndMethodProfiles(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.java("app/MultiConfig.java", `package app;
@Configuration
@Profile({"dev", "qa"})
public class MultiConfig {
    @Bean @Profile("fast") Object fastThing() { return null; }
    @Bean Object plainThing() { return null; }
}`)

	qaFast, ok := f.mc.ClassModel("app.MultiConfig", "main", bean.NewProfileSet("qa", "fast"))
	require.True(t, ok)
	assert.Equal(t, []string{"multiConfig", "fastThing", "plainThing"}, names(qaFast.LocalBeans()))

	dev, ok := f.mc.ClassModel("app.MultiConfig", "main", bean.NewProfileSet("dev"))
	require.True(t, ok)
	assert.Equal(t, []string{"multiConfig", "plainThing"}, names(dev.LocalBeans()))

	all, ok := f.mc.ClassModel("app.MultiConfig", "main", bean.ProfileSet{})
	require.True(t, ok)
	require.Len(t, all.LocalBeans(), 3)
	fast := all.LocalBeans()[1].Descriptor().Profiles
	assert.True(t, fast.Matches(bean.NewProfileSet("dev", "fast")))
	assert.False(t, fast.Matches(bean.NewProfileSet("fast")))
	assert.False(t, fast.Matches(bean.NewProfileSet("qa")))
}

func TestInheritedConfiguration(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.java("app/BaseConfig.java", `package app;
public abstract class BaseConfig {
    @Bean Object shared() { return null; }
}`)
	f.java("app/ChildConfig.java", `package app;
@Configuration
public class ChildConfig extends BaseConfig {}`)

	m, ok := f.mc.ClassModel("app.ChildConfig", "main", bean.ProfileSet{})
	require.True(t, ok)
	deps := m.Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, Inheritance, deps[0].Edge.Type)

	_, ok = FindBeanByName(context.Background(), f.mc, m, "shared")
	assert.True(t, ok)
}

func TestApplicationScansItsPackage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.java("com/example/App.java", `package com.example;
@InfraApplication
public class App {}`)
	f.java("com/example/svc/UserService.java", `package com.example.svc;
@Service
public class UserService {}`)
	f.java("com/example/cfg/DbConfig.java", `package com.example.cfg;
@Configuration
public class DbConfig {
    @Bean Object dataSource() { return null; }
}`)

	m, ok := f.mc.ClassModel("com.example.App", "main", bean.ProfileSet{})
	require.True(t, ok)

	deps := m.Dependencies()
	require.Len(t, deps, 2)
	for _, dep := range deps {
		assert.Equal(t, ComponentScan, dep.Edge.Type)
		assert.Equal(t, "com.example", dep.Edge.Label)
		assert.Equal(t, "@InfraApplication", dep.Edge.Source.Element)
	}
	scan, ok := f.mc.Get(deps[0].Model)
	require.True(t, ok)
	assert.Equal(t, ScanKind, scan.Kind())
	cfg, ok := f.mc.Get(deps[1].Model)
	require.True(t, ok)
	assert.Equal(t, "class:com.example.cfg.DbConfig", cfg.String())

	ctx := context.Background()
	for _, name := range []string{"app", "userService", "dbConfig", "dataSource"} {
		_, ok := FindBeanByName(ctx, f.mc, m, name)
		assert.True(t, ok, name)
	}
}
