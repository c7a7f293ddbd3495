// avmc assembles AVM source files into object files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/avm/compiler"
	"github.com/chazu/avm/entity"
	"github.com/chazu/avm/machine"
	"github.com/chazu/avm/manifest"
	"github.com/chazu/avm/object"
	"github.com/chazu/avm/parser"
	"github.com/chazu/avm/store"
	"github.com/tebeka/atexit"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// ObjectExt is the extension of written object files.
const ObjectExt = ".avmo"

type options struct {
	outDir      string
	entry       string
	verbosity   int
	logFile     string
	library     string
	dump        bool
	disasm      bool
	interactive bool
}

func main() {
	var opts options
	flag.StringVar(&opts.outDir, "o", "", "Output directory for object files (default: manifest output.path or .)")
	flag.StringVar(&opts.entry, "e", "", "Entry point label")
	flag.IntVar(&opts.verbosity, "v", 0, "Log verbosity (0-5)")
	flag.StringVar(&opts.logFile, "log", "", "Write log to file instead of stderr")
	flag.StringVar(&opts.library, "library", "", "Also store objects in this SQLite library")
	flag.BoolVar(&opts.dump, "dump", false, "Print machine and segment tables after compiling")
	flag.BoolVar(&opts.disasm, "S", false, "Print a disassembly of each segment")
	flag.BoolVar(&opts.interactive, "i", false, "Assemble instructions interactively")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: avmc [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Assembles .avm files into .avmo objects. With no files, the\n")
		fmt.Fprintf(os.Stderr, "sources listed in the nearest avm.toml are assembled.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  avmc main.avm              # Write main.avmo\n")
		fmt.Fprintf(os.Stderr, "  avmc -e start -dump *.avm  # Set entry point, show tables\n")
		fmt.Fprintf(os.Stderr, "  avmc -i                    # Interactive assembler\n")
	}
	flag.Parse()

	if err := run(opts, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func run(opts options, files []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	proj, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return err
	}
	applyManifest(&opts, proj)

	var logPath *string
	if opts.logFile != "" {
		logPath = &opts.logFile
	}
	commonlog.Configure(opts.verbosity, logPath)

	var machineOpts []machine.Option
	if proj != nil {
		machineOpts = proj.MachineOptions()
	}
	m, err := machine.New(machineOpts...)
	if err != nil {
		return err
	}
	atexit.Register(m.Close)

	c := compiler.New(m)
	if opts.interactive {
		return interactive(c, opts)
	}

	if len(files) == 0 && proj != nil {
		files, err = proj.SourceFiles()
		if err != nil {
			return err
		}
	}
	if len(files) == 0 {
		flag.Usage()
		return fmt.Errorf("no source files")
	}

	var lib *store.Library
	if opts.library != "" {
		lib, err = store.Open(opts.library)
		if err != nil {
			return err
		}
		atexit.Register(func() { lib.Close() })
	}

	entryFound := opts.entry == ""
	for _, path := range files {
		seg, err := assemble(c, path)
		if err != nil {
			return err
		}

		entry := ""
		if opts.entry != "" {
			if _, ok := seg.Lookup(entity.ClassLabel, opts.entry); ok {
				entry = opts.entry
				entryFound = true
			}
		}
		if err := emit(seg, entry, opts, m, lib); err != nil {
			return err
		}
	}
	if !entryFound {
		return fmt.Errorf("entry point %q not defined in any source file", opts.entry)
	}
	return nil
}

// applyManifest fills options the command line left unset from the project.
func applyManifest(opts *options, proj *manifest.Manifest) {
	if proj == nil {
		if opts.outDir == "" {
			opts.outDir = "."
		}
		return
	}
	if opts.outDir == "" {
		opts.outDir = proj.OutputDir()
	}
	if opts.entry == "" {
		opts.entry = proj.Project.Entrypoint
	}
	if opts.library == "" {
		opts.library = proj.LibraryPath()
	}
	if opts.verbosity == 0 {
		opts.verbosity = proj.Log.Verbosity
	}
	if opts.logFile == "" {
		if p := proj.LogPath(); p != nil {
			opts.logFile = *p
		}
	}
}

func assemble(c *compiler.Compiler, path string) (*machine.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if _, err := c.BeginFile(name); err != nil {
		return nil, err
	}
	if _, err := parser.Compile(f, path, c.Machine(), c); err != nil {
		return nil, err
	}
	return c.Finish(), nil
}

func emit(seg *machine.Segment, entry string, opts options, m *machine.Machine, lib *store.Library) error {
	obj, err := object.FromSegment(seg, entry)
	if err != nil {
		return err
	}
	data, err := object.Marshal(obj)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return err
	}
	out := filepath.Join(opts.outDir, seg.Name+ObjectExt)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("%s: %d words, %d unresolved -> %s\n", seg.Name, len(obj.Code), len(obj.Unresolved), out)

	if lib != nil {
		if _, err := lib.Put(context.Background(), obj); err != nil {
			return err
		}
	}
	if opts.dump {
		if err := machine.Dump(os.Stdout, m, seg); err != nil {
			return err
		}
	}
	if opts.disasm {
		if err := machine.Disassemble(os.Stdout, seg); err != nil {
			return err
		}
	}
	return nil
}
