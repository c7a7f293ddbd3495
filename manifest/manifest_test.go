package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/avm/machine"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "echo"
entrypoint = "start"

[source]
files = ["main.avm"]
dirs = ["lib"]

[output]
path = "out"
library = "out/objects.db"

[machine]
registers = ["ACC", "TMP"]

[machine.ports]
"@log" = "logs/echo.log"

[log]
verbosity = 2
file = "avmc.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "echo" {
		t.Errorf("project name = %q, want echo", m.Project.Name)
	}
	if m.Project.Entrypoint != "start" {
		t.Errorf("entrypoint = %q, want start", m.Project.Entrypoint)
	}
	if len(m.Source.Files) != 1 || len(m.Source.Dirs) != 1 {
		t.Errorf("source = %+v", m.Source)
	}
	if m.OutputDir() != filepath.Join(m.Dir, "out") {
		t.Errorf("output dir = %q", m.OutputDir())
	}
	if m.LibraryPath() != filepath.Join(m.Dir, "out", "objects.db") {
		t.Errorf("library path = %q", m.LibraryPath())
	}
	if len(m.Machine.Registers) != 2 || m.Machine.Ports["@log"] != "logs/echo.log" {
		t.Errorf("machine = %+v", m.Machine)
	}
	if m.Log.Verbosity != 2 {
		t.Errorf("log verbosity = %d, want 2", m.Log.Verbosity)
	}
	if p := m.LogPath(); p == nil || *p != filepath.Join(m.Dir, "avmc.log") {
		t.Errorf("log path = %v", p)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != "src" {
		t.Errorf("default source dirs = %v, want [src]", m.Source.Dirs)
	}
	if m.Output.Path != "build" {
		t.Errorf("default output path = %q, want build", m.Output.Path)
	}
	if m.LibraryPath() != "" {
		t.Errorf("library path = %q, want empty", m.LibraryPath())
	}
	if m.LogPath() != nil {
		t.Errorf("log path = %v, want nil", *m.LogPath())
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "[project\nname = 1"},
		{"missing name", "[source]\ndirs = [\"src\"]\n"},
		{"bad name", "[project]\nname = \"has space\"\n"},
		{"lowercase register", "[project]\nname = \"x\"\n[machine]\nregisters = [\"acc\"]\n"},
		{"port without sigil", "[project]\nname = \"x\"\n[machine.ports]\nlog = \"x.log\"\n"},
		{"verbosity range", "[project]\nname = \"x\"\n[log]\nverbosity = 9\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)
			if _, err := Load(dir); err == nil {
				t.Errorf("Load accepted %q", tt.content)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, "[project]\nname = \"found-project\"\n")

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no avm.toml exists")
	}
}

func TestSourceDirPaths(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "shared")
	m := &Manifest{Dir: "/proj", Source: Source{Dirs: []string{"src", abs, "vendor/../lib"}}}

	got := strings.Join(m.SourceDirPaths(), ",")
	want := strings.Join([]string{filepath.Join("/proj", "src"), abs, filepath.Join("/proj", "lib")}, ",")
	if got != want {
		t.Errorf("SourceDirPaths = %s, want %s", got, want)
	}

	m.Source.Dirs = nil
	if n := len(m.SourceDirPaths()); n != 0 {
		t.Errorf("no dirs yielded %d paths", n)
	}
}

func TestSourceFiles(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"main.avm", "src/b.avm", "src/a.avm", "src/nested/c.avm", "src/notes.txt"} {
		p := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("NOP\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	m := &Manifest{
		Dir:    dir,
		Source: Source{Files: []string{"main.avm", "src/b.avm"}, Dirs: []string{"src"}},
	}
	files, err := m.SourceFiles()
	if err != nil {
		t.Fatalf("SourceFiles: %v", err)
	}

	var rel []string
	for _, f := range files {
		r, _ := filepath.Rel(dir, f)
		rel = append(rel, filepath.ToSlash(r))
	}
	got := strings.Join(rel, ",")
	want := "main.avm,src/b.avm,src/a.avm,src/nested/c.avm"
	if got != want {
		t.Errorf("SourceFiles = %s, want %s", got, want)
	}

	m.Source.Files = []string{"missing.avm"}
	if _, err := m.SourceFiles(); err == nil {
		t.Error("expected error for missing source file")
	}

	m.Source.Files = nil
	m.Source.Dirs = []string{"src", "gone"}
	_, err = m.SourceFiles()
	if err == nil || !strings.Contains(err.Error(), "source dir gone") {
		t.Errorf("error = %v, want the missing dir named", err)
	}
}

func TestMachineOptions(t *testing.T) {
	m := &Manifest{
		Dir: "/proj",
		Machine: MachineConfig{
			Registers: []string{"ACC"},
			Ports:     map[string]string{"@log": "log.txt"},
		},
	}

	vm, err := machine.New(m.MachineOptions()...)
	if err != nil {
		t.Fatalf("machine.New: %v", err)
	}
	if _, reg, ok := vm.Register("ACC"); !ok || !reg.Writable() {
		t.Errorf("ACC register = %v, %v", reg, ok)
	}
	_, port, ok := vm.Port("@log")
	if !ok {
		t.Fatal("@log port missing")
	}
	if port.Path != "/proj/log.txt" {
		t.Errorf("@log path = %q, want /proj/log.txt", port.Path)
	}
}
