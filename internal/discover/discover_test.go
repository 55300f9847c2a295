package discover

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverJavaAndXMLFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "src/main/java/app/App.java", "class App {}")
	writeFile(t, dir, "src/main/resources/beans.xml", "<beans/>")
	// Unsupported file should be ignored
	writeFile(t, dir, "readme.txt", "hello")
	// Hidden file should be ignored
	writeFile(t, dir, ".hidden.xml", "<beans/>")

	entries, err := Files(dir, nil)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(entries), paths)
	}

	// Should be sorted
	if entries[0].Path != filepath.Join("src", "main", "java", "app", "App.java") {
		t.Errorf("entry 0: got %q", entries[0].Path)
	}
	if entries[0].Language != "java" {
		t.Errorf("entry 0: language = %q, want java", entries[0].Language)
	}
	if entries[1].Language != "xml" {
		t.Errorf("entry 1: language = %q, want xml", entries[1].Language)
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "App.java", "class App {}")
	writeFile(t, dir, "target/classes/Gen.java", "class Gen {}")
	writeFile(t, dir, "build/tmp/beans.xml", "<beans/>")
	writeFile(t, dir, ".idea/workspace.xml", "<project/>")

	entries, err := Files(dir, nil)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Path != "App.java" {
		t.Errorf("expected App.java, got %q", entries[0].Path)
	}
}

func TestDiscoverLanguageFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "A.java", "class A {}")
	writeFile(t, dir, "beans.xml", "<beans/>")

	entries, err := Files(dir, []string{"xml"})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "beans.xml" {
		t.Fatalf("expected only beans.xml for xml filter, got %v", entries)
	}

	entries, err = Files(dir, []string{"kotlin"})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected 0 entries for kotlin filter, got %d", len(entries))
	}
}

func TestDiscoverGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "generated/\n*.bak.xml\n")
	writeFile(t, dir, "A.java", "class A {}")
	writeFile(t, dir, "generated/B.java", "class B {}")
	writeFile(t, dir, "old.bak.xml", "<beans/>")

	entries, err := Files(dir, nil)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "A.java" {
		t.Fatalf("expected only A.java, got %v", entries)
	}
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Real.java", "class Real {}")

	// Create symlink
	err := os.Symlink(filepath.Join(dir, "Real.java"), filepath.Join(dir, "Link.java"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	entries, err := Files(dir, nil)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry (no symlink), got %d", len(entries))
	}
	if entries[0].Path != "Real.java" {
		t.Errorf("expected Real.java, got %q", entries[0].Path)
	}
}

func TestIsTestFile(t *testing.T) {
	t.Parallel()
	cases := []struct {
		path string
		want bool
	}{
		{"src/test/java/app/FooTest.java", true},
		{"src/test/resources/test-beans.xml", true},
		{"module/src/it/java/app/Smoke.java", true},
		{"src/main/java/app/FooTest.java", true},
		{"src/main/java/app/FooTests.java", true},
		{"src/main/java/app/ClientIT.java", true},
		{"src/main/java/app/Foo.java", false},
		{"src/main/java/app/Testing.java", false},
		{"src/main/resources/beans.xml", false},
		{"test.xml", false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			got := IsTestFile(tc.path)
			if got != tc.want {
				t.Errorf("IsTestFile(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func writeFile(t *testing.T, root, rel, content string) {
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
