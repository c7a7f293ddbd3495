// Package manifest handles avm.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/avm/machine"
)

// FileName is the name of the project manifest.
const FileName = "avm.toml"

// Manifest represents an avm.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project" json:"project"`
	Source  Source        `toml:"source" json:"source"`
	Output  Output        `toml:"output" json:"output"`
	Machine MachineConfig `toml:"machine" json:"machine"`
	Log     LogConfig     `toml:"log" json:"log"`

	// Dir is the directory containing the avm.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name       string `toml:"name" json:"name,omitempty"`
	Entrypoint string `toml:"entrypoint" json:"entrypoint,omitempty"`
}

// Source configures which files are assembled, in order.
type Source struct {
	Files []string `toml:"files" json:"files,omitempty"`
	Dirs  []string `toml:"dirs" json:"dirs,omitempty"`
}

// Output configures where compiled objects go.
type Output struct {
	Path    string `toml:"path" json:"path,omitempty"`
	Library string `toml:"library" json:"library,omitempty"`
}

// MachineConfig extends the built-in machine.
type MachineConfig struct {
	Registers []string          `toml:"registers" json:"registers,omitempty"`
	Ports     map[string]string `toml:"ports" json:"ports,omitempty"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity,omitempty"`
	File      string `toml:"file" json:"file,omitempty"`
}

// Load parses an avm.toml file from the given directory and validates it
// against the manifest schema.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := Validate(&m); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Source.Files) == 0 && len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Output.Path == "" {
		m.Output.Path = "build"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find an avm.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// OutputDir returns the absolute path objects are written to.
func (m *Manifest) OutputDir() string {
	return m.abs(m.Output.Path)
}

// LibraryPath returns the absolute path of the object library, or "" if
// none is configured.
func (m *Manifest) LibraryPath() string {
	if m.Output.Library == "" {
		return ""
	}
	return m.abs(m.Output.Library)
}

// LogPath returns the absolute log file path, or nil to log to stderr.
func (m *Manifest) LogPath() *string {
	if m.Log.File == "" {
		return nil
	}
	p := m.abs(m.Log.File)
	return &p
}

func (m *Manifest) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// MachineOptions returns the options that add the configured registers and
// ports to a new machine. Extra registers are writable.
func (m *Manifest) MachineOptions() []machine.Option {
	var opts []machine.Option
	for _, r := range m.Machine.Registers {
		opts = append(opts, machine.WithRegister(r, machine.ReadWrite))
	}
	if len(m.Machine.Ports) > 0 {
		ports := make(map[string]string, len(m.Machine.Ports))
		for name, path := range m.Machine.Ports {
			ports[name] = m.abs(path)
		}
		opts = append(opts, machine.WithPorts(ports))
	}
	return opts
}
