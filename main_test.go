package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"

	"github.com/TAKETODAY/today-assistant-plugin-sub001/internal/workspace"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const sampleBeans = `<?xml version="1.0" encoding="UTF-8"?>
<beans xmlns="http://www.springframework.org/schema/beans">
  <bean id="base" class="com.example.Widget" abstract="true"/>
  <bean id="fancy" class="com.example.FancyWidget" parent="base"/>
  <alias name="fancy" alias="shiny"/>
  <beans profile="dev">
    <bean id="devOnly" class="com.example.Widget"/>
  </beans>
</beans>
`

func createSampleWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "src/main/java/com/example/AppConfig.java", `package com.example;

@Configuration
@ImportResource("classpath:beans.xml")
public class AppConfig {
    @Bean
    public Widget widget() { return new Widget(); }
}
`)
	writeTestFile(t, dir, "src/main/java/com/example/Widget.java", `package com.example;
public class Widget {}
`)
	writeTestFile(t, dir, "src/main/java/com/example/FancyWidget.java", `package com.example;
public class FancyWidget extends Widget {}
`)
	writeTestFile(t, dir, "src/main/resources/beans.xml", sampleBeans)
	return dir
}

func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run %v: %v\nstderr: %s", args, err, stderr.String())
	}
	return stdout.String()
}

func TestRunBeansAll(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	out := runOK(t, "beans", dir)
	if !strings.HasPrefix(out, "module: main\n") {
		t.Errorf("missing module header:\n%s", out)
	}
	for _, want := range []string{"widget,", "fancy,", "devOnly,", "src/main/resources/beans.xml"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRunBeansByAlias(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	out := runOK(t, "beans", "--name", "shiny", dir)
	if !strings.Contains(out, "beans[1]") {
		t.Fatalf("expected 1 bean, got:\n%s", out)
	}
	if !strings.Contains(out, "  shiny,") || !strings.Contains(out, "com.example.FancyWidget") {
		t.Errorf("alias should present the fancy bean:\n%s", out)
	}
	if !strings.Contains(out, "query: name=shiny") {
		t.Errorf("missing query header:\n%s", out)
	}
}

func TestRunBeansByTypeWithInheritors(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	out := runOK(t, "beans", "--type", "com.example.FancyWidget", dir)
	if !strings.Contains(out, "beans[1]") {
		t.Errorf("expected only fancy, got:\n%s", out)
	}

	out = runOK(t, "beans", "-p", "prod", "--type", "com.example.Widget", "--inheritors", dir)
	if !strings.Contains(out, "beans[2]") {
		t.Errorf("expected widget and fancy, got:\n%s", out)
	}
	if strings.Contains(out, "  base,") {
		t.Errorf("abstract bean must not match:\n%s", out)
	}
}

func TestRunBeansExists(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	if out := runOK(t, "beans", "--type", "com.example.Widget", "--exists", dir); out != "exists: true\n" {
		t.Errorf("got %q", out)
	}
	if out := runOK(t, "beans", "--type", "com.example.Missing", "--exists", dir); out != "exists: false\n" {
		t.Errorf("got %q", out)
	}
}

func TestRunBeansDescendants(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	out := runOK(t, "beans", "--name", "base", "--descendants", dir)
	if !strings.Contains(out, "beans[1]") || !strings.Contains(out, "  fancy,") {
		t.Errorf("expected fancy as the only descendant:\n%s", out)
	}
}

func TestRunBeansProfiles(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	if out := runOK(t, "beans", "-p", "prod", dir); strings.Contains(out, "devOnly") {
		t.Errorf("devOnly must be hidden for prod:\n%s", out)
	}
	out := runOK(t, "beans", "--profiles", "dev", dir)
	if !strings.Contains(out, "devOnly") {
		t.Errorf("devOnly must be visible for dev:\n%s", out)
	}
	if !strings.Contains(out, "profiles: dev") {
		t.Errorf("missing profiles header:\n%s", out)
	}
}

func TestRunBeansGrepAndYAML(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	out := runOK(t, "beans", "--grep", "FAN", "--format", "yaml", dir)
	if !strings.Contains(out, "module: main") {
		t.Errorf("missing module key:\n%s", out)
	}
	if !strings.Contains(out, "- name: fancy") {
		t.Errorf("missing fancy entry:\n%s", out)
	}
	if strings.Contains(out, "name: widget") {
		t.Errorf("grep should drop widget:\n%s", out)
	}
}

func TestRunModels(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	out := runOK(t, "models", dir)
	if !strings.Contains(out, "models[2]{name,kind,module,beans,rank}:") {
		t.Errorf("expected 2 models, got:\n%s", out)
	}
	if !strings.Contains(out, `"class:com.example.AppConfig"`) || !strings.Contains(out, `"xml:src/main/resources/beans.xml"`) {
		t.Errorf("missing models:\n%s", out)
	}
	if !strings.Contains(out, "edges[1]{source,target,type,label}:") {
		t.Errorf("expected 1 edge, got:\n%s", out)
	}

	out = runOK(t, "models", "--top", "1", dir)
	if !strings.Contains(out, "models[1]") || !strings.Contains(out, "edges[0]") {
		t.Errorf("--top 1:\n%s", out)
	}
}

func TestRunModelsDeclaredIn(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "infra.yaml", `modules:
  - name: core
    root: core
  - name: web
    root: web
    dependsOn: [core]
`)
	writeTestFile(t, dir, "core/src/main/resources/core.xml", `<beans><import resource="classpath:extra.xml"/></beans>`)
	writeTestFile(t, dir, "core/src/main/resources/extra.xml", `<beans><bean id="extra" class="x.Extra"/></beans>`)
	writeTestFile(t, dir, "web/src/main/resources/web.xml", `<beans><import resource="classpath:core.xml"/></beans>`)

	out := runOK(t, "models", "--module", "web", dir)
	if !strings.Contains(out, "models[3]") || !strings.Contains(out, "edges[2]") {
		t.Fatalf("full graph:\n%s", out)
	}

	out = runOK(t, "models", "--module", "web", "--declared-in", "web", dir)
	if !strings.Contains(out, "models[2]") || !strings.Contains(out, "edges[1]") {
		t.Errorf("declared in web:\n%s", out)
	}
	if strings.Contains(out, "extra.xml\"") {
		t.Errorf("extra.xml is neither declared in web nor a neighbour:\n%s", out)
	}

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"models", "--declared-in", "api", dir}, &stdout, &stderr)
	if !errors.Is(err, workspace.ErrModuleNotFound) {
		t.Errorf("err = %v, want ErrModuleNotFound", err)
	}
}

func TestRunWithConfig(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)
	writeTestFile(t, dir, "infra.yaml", `autoConfiguration: false
activeProfiles: [dev]
modules:
  - name: app
    fileSets:
      - id: ctx
        files: [classpath:beans.xml]
`)

	out := runOK(t, "beans", dir)
	if !strings.HasPrefix(out, "module: app\n") {
		t.Errorf("module from config:\n%s", out)
	}
	if strings.Contains(out, "  widget,") {
		t.Errorf("the configuration class is not part of the file set:\n%s", out)
	}
	if !strings.Contains(out, "profiles: dev") {
		t.Errorf("profiles from config:\n%s", out)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	out := runOK(t, "--version")
	if !strings.Contains(out, "infra-model dev") {
		t.Errorf("version output: %q", out)
	}
}

func TestRunErrors(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing root", []string{"beans", filepath.Join(dir, "nope")}, "root path"},
		{"root is a file", []string{"beans", filepath.Join(dir, "src/main/resources/beans.xml")}, "not a directory"},
		{"name and type", []string{"beans", "--name", "a", "--type", "b", dir}, "mutually exclusive"},
		{"exists without type", []string{"beans", "--exists", dir}, "--exists requires --type"},
		{"bad format", []string{"beans", "--format", "json", dir}, "unsupported format"},
		{"bad models format", []string{"models", "--format", "xml", dir}, "unsupported format"},
		{"watch without query", []string{"watch", dir}, "requires --name or --type"},
		{"missing config", []string{"beans", "--config", filepath.Join(dir, "none.yaml"), dir}, "config file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), tt.args, &stdout, &stderr)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRunUnknownModule(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"beans", "--module", "web", dir}, &stdout, &stderr)
	if !errors.Is(err, workspace.ErrModuleNotFound) {
		t.Errorf("err = %v, want ErrModuleNotFound", err)
	}
}

func TestApplyChanges(t *testing.T) {
	t.Parallel()
	dir := createSampleWorkspace(t)

	var stderr bytes.Buffer
	e, err := openEngine(context.Background(), &globalOptions{quiet: true}, dir, &stderr, nil)
	if err != nil {
		t.Fatal(err)
	}
	query := &queryOptions{name: "gadget", format: "toon"}
	beans := func() string {
		var out bytes.Buffer
		if err := e.queryBeans(context.Background(), query, &out); err != nil {
			t.Fatal(err)
		}
		return out.String()
	}

	if out := beans(); !strings.Contains(out, "beans[0]") {
		t.Fatalf("gadget should not exist yet:\n%s", out)
	}

	xml := filepath.Join(dir, "src/main/resources/beans.xml")
	end := strings.LastIndex(sampleBeans, "</beans>")
	writeTestFile(t, dir, "src/main/resources/beans.xml",
		sampleBeans[:end]+`  <bean id="gadget" class="com.example.Widget"/>
</beans>
`)
	if !e.apply(xml, fsnotify.Write) {
		t.Fatal("write should be applied")
	}
	if out := beans(); !strings.Contains(out, "beans[1]") {
		t.Errorf("gadget should be visible after the change:\n%s", out)
	}

	writeTestFile(t, dir, "src/main/resources/beans.xml", "<beans><bean id=")
	if e.apply(xml, fsnotify.Write) {
		t.Error("malformed xml must keep the previous version")
	}

	if err := os.Remove(xml); err != nil {
		t.Fatal(err)
	}
	if !e.apply(xml, fsnotify.Remove) {
		t.Fatal("remove should be applied")
	}
	if out := beans(); !strings.Contains(out, "beans[0]") {
		t.Errorf("gadget should be gone with its file:\n%s", out)
	}

	if e.apply(filepath.Join(filepath.Dir(dir), "elsewhere.xml"), fsnotify.Write) {
		t.Error("files outside the workspace are ignored")
	}
}

func TestWatched(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"src/main/java/A.java":      true,
		"src/main/resources/a.xml":  true,
		"src/main/resources/.a.xml": false,
		"README.md":                 false,
		"src/main/java/A.java~":     false,
	}
	for path, want := range tests {
		if got := watched(path); got != want {
			t.Errorf("watched(%q) = %v, want %v", path, got, want)
		}
	}
}
