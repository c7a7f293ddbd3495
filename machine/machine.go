// Package machine models the host context a program is compiled against:
// global registers and ports shared by every segment, and the segments
// themselves.
package machine

import (
	"fmt"
	"sort"

	"github.com/chazu/avm/entity"
	"github.com/chazu/avm/table"
)

// GeneralRegisters is the number of GRn read/write registers built into
// every machine.
const GeneralRegisters = 16

// Machine holds process-independent state shared across segments.
// Registers and ports are only ever added, never removed.
type Machine struct {
	registers *table.Table[*Register]
	ports     *table.Table[*Port]
	segments  *table.Table[*Segment]
	limit     int
}

type config struct {
	registers []Register
	ports     []Port
	limit     int
}

// Option configures a machine at construction time.
type Option func(*config)

// WithRegister adds a register beyond the built-in set.
func WithRegister(name string, mode Mode) Option {
	return func(c *config) {
		c.registers = append(c.registers, Register{Name: name, Mode: mode, Width: 64})
	}
}

// WithPort adds a port bound to a file path.
func WithPort(name, path string) Option {
	return func(c *config) {
		c.ports = append(c.ports, Port{Name: name, FD: -1, Path: path})
	}
}

// WithPorts adds one port per map entry, in name order.
func WithPorts(ports map[string]string) Option {
	return func(c *config) {
		names := make([]string, 0, len(ports))
		for n := range ports {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			c.ports = append(c.ports, Port{Name: n, FD: -1, Path: ports[n]})
		}
	}
}

// WithTableLimit caps the size of every table the machine and its segments
// create. Exceeding it is reported as an allocation failure.
func WithTableLimit(n int) Option {
	return func(c *config) { c.limit = n }
}

func builtinRegisters() []Register {
	regs := []Register{
		{Name: "CS", Mode: ReadOnly, Width: 64},
		{Name: "IP", Mode: ReadOnly, Width: 64},
	}
	for i := 0; i < GeneralRegisters; i++ {
		regs = append(regs, Register{Name: fmt.Sprintf("GR%d", i), Mode: ReadWrite, Width: 64})
	}
	return regs
}

func builtinPorts() []Port {
	return []Port{
		{Name: "@stdin", FD: 0},
		{Name: "@stdout", FD: 1},
		{Name: "@stderr", FD: 2},
	}
}

// New creates a machine loaded with the built-in registers and ports.
func New(opts ...Option) (*Machine, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Machine{
		registers: newClassTable[*Register](entity.ClassRegister, 0),
		ports:     newClassTable[*Port](entity.ClassPort, 0),
		segments:  newClassTable[*Segment](entity.ClassSegment, Unlinked),
		limit:     cfg.limit,
	}

	for _, r := range append(builtinRegisters(), cfg.registers...) {
		if _, _, ok := m.Register(r.Name); ok {
			return nil, fmt.Errorf("register %s defined twice", r.Name)
		}
		if _, err := m.registers.Add(&r); err != nil {
			return nil, fmt.Errorf("register %s: %w", r.Name, err)
		}
	}
	for _, p := range append(builtinPorts(), cfg.ports...) {
		if _, _, ok := m.Port(p.Name); ok {
			return nil, fmt.Errorf("port %s defined twice", p.Name)
		}
		if _, err := m.ports.Add(&p); err != nil {
			return nil, fmt.Errorf("port %s: %w", p.Name, err)
		}
	}
	return m, nil
}

// Registers returns the global register table.
func (m *Machine) Registers() *table.Table[*Register] { return m.registers }

// Ports returns the global port table.
func (m *Machine) Ports() *table.Table[*Port] { return m.ports }

// Segments returns the table of attached segments.
func (m *Machine) Segments() *table.Table[*Segment] { return m.segments }

// Register looks up a global register by name. The returned entity carries
// FlagGlobal.
func (m *Machine) Register(name string) (entity.Entity, *Register, bool) {
	idx := m.registers.Find(name)
	if idx == table.NotFound {
		return entity.Invalid, nil, false
	}
	r, _ := m.registers.Get(idx)
	return entity.New(entity.ClassRegister, idx).WithFlags(entity.FlagGlobal), r, true
}

// Port looks up a global port by name. The returned entity carries
// FlagGlobal.
func (m *Machine) Port(name string) (entity.Entity, *Port, bool) {
	idx := m.ports.Find(name)
	if idx == table.NotFound {
		return entity.Invalid, nil, false
	}
	p, _ := m.ports.Get(idx)
	return entity.New(entity.ClassPort, idx).WithFlags(entity.FlagGlobal), p, true
}

// IsRegister reports whether name is a global register.
func (m *Machine) IsRegister(name string) bool {
	return m.registers.Find(name) != table.NotFound
}

// Record returns the global record an entity refers to.
func (m *Machine) Record(e entity.Entity) (Record, bool) {
	if !e.Global() {
		return nil, false
	}
	switch e.Class() {
	case entity.ClassRegister:
		return get(m.registers, e.Index())
	case entity.ClassPort:
		return get(m.ports, e.Index())
	}
	return nil, false
}

// NewSegment creates a segment and attaches it to the machine, assigning
// its ID. Segment IDs share the single-byte space of the segment register,
// so at most Unlinked segments can be attached.
func (m *Machine) NewSegment(name string) (*Segment, error) {
	s := newSegment(name, m.limit)
	if err := m.Attach(s); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Attach assigns s an ID and adds it to the segment table.
func (m *Machine) Attach(s *Segment) error {
	if s.Linked() {
		return fmt.Errorf("segment %s already attached as %d", s.Name, s.ID)
	}
	idx, err := m.segments.Add(s)
	if err != nil {
		return fmt.Errorf("segment %s: %w", s.Name, err)
	}
	s.ID = idx
	return nil
}

// Close destroys every attached segment and the global tables.
func (m *Machine) Close() {
	for _, s := range m.segments.All() {
		s.Close()
	}
	m.segments.Destroy()
	m.registers.Destroy()
	m.ports.Destroy()
}
