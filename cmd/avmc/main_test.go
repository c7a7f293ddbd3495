package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/avm/compiler"
	"github.com/chazu/avm/machine"
	"github.com/chazu/avm/manifest"
	"github.com/chazu/avm/object"
)

const sample = `; echo one byte
DEF STRING greeting
STOR greeting, "hi\n"
LABEL start
OUT @stdout, greeting
GOTO start
`

func TestAssembleAndEmit(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "echo.avm")
	if err := os.WriteFile(src, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := machine.New()
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	c := compiler.New(m)

	seg, err := assemble(c, src)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if seg.Name != "echo" {
		t.Errorf("segment name = %q, want echo", seg.Name)
	}

	outDir := filepath.Join(dir, "build")
	if err := emit(seg, "start", options{outDir: outDir}, m, nil); err != nil {
		t.Fatalf("emit: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "echo"+ObjectExt))
	if err != nil {
		t.Fatal(err)
	}
	obj, err := object.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if obj.Entry != "start" || len(obj.Code) != seg.Code().Len() {
		t.Errorf("object = entry %q, %d words", obj.Entry, len(obj.Code))
	}
}

func TestAssembleError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.avm")
	if err := os.WriteFile(src, []byte("FROB x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, _ := machine.New()
	defer m.Close()
	if _, err := assemble(compiler.New(m), src); err == nil {
		t.Error("expected error for unknown instruction")
	}
}

func TestApplyManifest(t *testing.T) {
	var opts options
	applyManifest(&opts, nil)
	if opts.outDir != "." {
		t.Errorf("outDir without manifest = %q, want .", opts.outDir)
	}

	proj := &manifest.Manifest{
		Dir:     "/proj",
		Project: manifest.Project{Name: "p", Entrypoint: "main"},
		Output:  manifest.Output{Path: "out", Library: "lib.db"},
		Log:     manifest.LogConfig{Verbosity: 3},
	}
	opts = options{entry: "other"}
	applyManifest(&opts, proj)
	if opts.entry != "other" {
		t.Errorf("entry = %q, command line should win", opts.entry)
	}
	if opts.outDir != "/proj/out" || opts.library != "/proj/lib.db" || opts.verbosity != 3 {
		t.Errorf("opts = %+v", opts)
	}
}

func newTestSession(t *testing.T) (*session, *bytes.Buffer) {
	t.Helper()
	m, err := machine.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Close)
	c := compiler.New(m)
	seg, err := c.BeginFile("repl")
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	return &session{c: c, seg: seg, out: &out}, &out
}

func TestSessionCommandsDoNotCountAsLines(t *testing.T) {
	s, out := newTestSession(t)
	for _, text := range []string{".help", ".ops", "   ", ".dis"} {
		if _, err := s.handle(text); err != nil {
			t.Fatalf("%q: %v", text, err)
		}
	}
	if _, err := s.handle("GOTO nowhere"); err != nil {
		t.Fatal(err)
	}

	u, ok := s.seg.Unresolved().Get(0)
	if !ok || u.Name != "nowhere" || u.Line != 1 {
		t.Errorf("unresolved record = %+v, want nowhere at line 1", u)
	}

	_, err := s.handle("FROB x")
	if err == nil || !strings.Contains(err.Error(), replFile+":2") {
		t.Errorf("error = %v, want location %s:2", err, replFile)
	}
	if !strings.Contains(out.String(), "0000  ") {
		t.Errorf("emitted words not printed:\n%s", out.String())
	}
}

func TestSessionQuit(t *testing.T) {
	s, _ := newTestSession(t)
	for _, text := range []string{".quit", ".exit"} {
		quit, err := s.handle(text)
		if err != nil || !quit {
			t.Errorf("%s = %v, %v", text, quit, err)
		}
	}
	if _, err := s.handle(".frob"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestOpsListing(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(opsListing(compiler.DefaultRegistry())), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != "directives:   DEF WIDTH" {
		t.Errorf("directives = %q", lines[0])
	}
	if !strings.Contains(lines[1], " JMP ") || strings.Contains(lines[1], "DEF") {
		t.Errorf("instructions = %q", lines[1])
	}
}
