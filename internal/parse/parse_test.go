package parse

import (
	"testing"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/lang"
	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/source"
)

func setup(t *testing.T) func(src string) []*source.Class {
	t.Helper()
	l := lang.Languages[lang.Java]
	if l == nil {
		t.Fatal("java language not registered")
	}
	q, err := l.GetTagQuery()
	if err != nil {
		t.Fatalf("GetTagQuery: %v", err)
	}
	return func(src string) []*source.Class {
		return Classes(l.NewParser(), q, []byte(src), "Test.java")
	}
}

func TestJavaComponentClass(t *testing.T) {
	t.Parallel()
	parse := setup(t)

	classes := parse(`package com.example.service;

import cn.taketoday.stereotype.Service;
import java.util.*;

@Service("users")
@Profile({"dev", "qa"})
public class UserService extends BaseService<User> implements Named, Repo<User, Long> {
    public void run() {}
}
`)
	if len(classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(classes))
	}
	c := classes[0]
	if c.FQN != "com.example.service.UserService" {
		t.Errorf("FQN = %q", c.FQN)
	}
	if c.Package != "com.example.service" {
		t.Errorf("package = %q", c.Package)
	}
	if c.Line != 8 {
		t.Errorf("line = %d, want 8", c.Line)
	}
	if len(c.Imports) != 2 || c.Imports[0] != "cn.taketoday.stereotype.Service" || c.Imports[1] != "java.util.*" {
		t.Errorf("imports = %v", c.Imports)
	}
	if c.Superclass != "BaseService" || len(c.SuperArgs) != 1 || c.SuperArgs[0] != "User" {
		t.Errorf("superclass = %q %v", c.Superclass, c.SuperArgs)
	}
	if len(c.Interfaces) != 2 || c.Interfaces[1] != "Repo" || len(c.InterfaceArgs[1]) != 2 {
		t.Errorf("interfaces = %v %v", c.Interfaces, c.InterfaceArgs)
	}

	svc, ok := c.FindAnnotation("Service")
	if !ok {
		t.Fatal("missing @Service")
	}
	if v := svc.Attrs["value"]; len(v.Strings) != 1 || v.Strings[0] != "users" {
		t.Errorf("@Service value = %+v", v)
	}
	prof, ok := c.FindAnnotation("Profile")
	if !ok {
		t.Fatal("missing @Profile")
	}
	if v := prof.Attrs["value"]; len(v.Strings) != 2 || v.Strings[1] != "qa" {
		t.Errorf("@Profile value = %+v", v)
	}
	if c.Abstract || c.Interface {
		t.Error("class should be concrete")
	}
}

func TestJavaConfigurationWithBeans(t *testing.T) {
	t.Parallel()
	parse := setup(t)

	classes := parse(`package app;

@Configuration
@Import({DataConfig.class, app.web.WebConfig.class})
@ImportResource(locations = "classpath:legacy.xml")
@ComponentScan(basePackages = {"app.service"}, useDefaultFilters = false,
    includeFilters = @Filter(type = FilterType.ANNOTATION, classes = Repository.class))
public class AppConfig {

    @Bean(name = {"dataSource", "ds"})
    @Profile("prod")
    public DataSource dataSource() { return null; }

    @Bean
    static FactoryBean<Widget> widget() { return null; }

    private void helper() {}

    @Configuration
    static class Inner {
        @Bean Gadget gadget() { return null; }
    }
}
`)
	if len(classes) != 1 {
		t.Fatalf("expected 1 top-level class, got %d", len(classes))
	}
	c := classes[0]

	imp, _ := c.FindAnnotation("Import")
	if v := imp.Attrs["value"]; len(v.Classes) != 2 || v.Classes[1] != "app.web.WebConfig" {
		t.Errorf("@Import = %+v", v)
	}
	res, _ := c.FindAnnotation("ImportResource")
	if v := res.Attrs["locations"]; len(v.Strings) != 1 || v.Strings[0] != "classpath:legacy.xml" {
		t.Errorf("@ImportResource = %+v", v)
	}
	scan, _ := c.FindAnnotation("ComponentScan")
	if v := scan.Attrs["useDefaultFilters"]; len(v.Bools) != 1 || v.Bools[0] {
		t.Errorf("useDefaultFilters = %+v", v)
	}
	inc := scan.Attrs["includeFilters"]
	if len(inc.Nested) != 1 || inc.Nested[0].SimpleName() != "Filter" {
		t.Fatalf("includeFilters = %+v", inc)
	}
	if cls := inc.Nested[0].Attrs["classes"]; len(cls.Classes) != 1 || cls.Classes[0] != "Repository" {
		t.Errorf("filter classes = %+v", cls)
	}

	if len(c.Methods) != 3 {
		t.Fatalf("expected 3 methods, got %d", len(c.Methods))
	}
	ds := c.Methods[0]
	if ds.Name != "dataSource" || ds.ReturnType != "DataSource" {
		t.Errorf("method 0 = %+v", ds)
	}
	b, _ := source.FindAnnotation(ds.Annotations, "Bean")
	if v := b.Attrs["name"]; len(v.Strings) != 2 || v.Strings[1] != "ds" {
		t.Errorf("@Bean name = %+v", v)
	}
	w := c.Methods[1]
	if !w.Static || w.ReturnType != "FactoryBean" || len(w.ReturnArgs) != 1 || w.ReturnArgs[0] != "Widget" {
		t.Errorf("method 1 = %+v", w)
	}
	if !c.Methods[2].Private {
		t.Error("helper should be private")
	}

	if len(c.Nested) != 1 {
		t.Fatalf("expected 1 nested class, got %d", len(c.Nested))
	}
	inner := c.Nested[0]
	if inner.FQN != "app.AppConfig.Inner" || inner.Outer != "app.AppConfig" || !inner.Static {
		t.Errorf("inner = %q outer=%q static=%v", inner.FQN, inner.Outer, inner.Static)
	}
	if len(inner.Methods) != 1 || inner.Methods[0].ReturnType != "Gadget" {
		t.Errorf("inner methods = %+v", inner.Methods)
	}
}

func TestJavaInterfaceAndAnnotationTypes(t *testing.T) {
	t.Parallel()
	parse := setup(t)

	classes := parse(`package a;
@Component
public @interface MyService {}
interface Repo extends Base<String> {}
abstract class Template {}
`)
	if len(classes) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(classes))
	}
	if !classes[0].Annotation || !classes[0].Interface {
		t.Errorf("MyService should be an annotation type: %+v", classes[0])
	}
	if _, ok := classes[0].FindAnnotation("Component"); !ok {
		t.Error("meta annotation not recorded")
	}
	if !classes[1].Interface || len(classes[1].Interfaces) != 1 || classes[1].Interfaces[0] != "Base" {
		t.Errorf("Repo = %+v", classes[1])
	}
	if !classes[2].Abstract || classes[2].Candidate() {
		t.Error("Template should be abstract and not a candidate")
	}
}

func TestJavaEmptySource(t *testing.T) {
	t.Parallel()
	parse := setup(t)

	if got := parse(""); got != nil {
		t.Errorf("expected nil for empty source, got %v", got)
	}
}
