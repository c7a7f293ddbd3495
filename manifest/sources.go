package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// SourceExt is the extension of assembly source files.
const SourceExt = ".avm"

// SourceFiles returns the absolute paths of every source file the project
// assembles: the explicitly listed files first, in manifest order, then
// the *.avm files found under each source directory in lexical order.
// A file reachable both ways is compiled once.
func (m *Manifest) SourceFiles() ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, f := range m.Source.Files {
		p := m.abs(f)
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("source file %s: %w", f, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("source file %s is a directory", f)
		}
		add(p)
	}

	for i, root := range m.SourceDirPaths() {
		var found []string
		err := filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !e.IsDir() && filepath.Ext(path) == SourceExt {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning source dir %s: %w", m.Source.Dirs[i], err)
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return out, nil
}

// SourceDirPaths resolves the source directories against the manifest's
// directory. Absolute entries pass through unchanged.
func (m *Manifest) SourceDirPaths() []string {
	paths := make([]string, len(m.Source.Dirs))
	for i, d := range m.Source.Dirs {
		paths[i] = m.abs(d)
	}
	return paths
}
