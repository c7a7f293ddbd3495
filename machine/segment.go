package machine

import (
	"fmt"

	"github.com/chazu/avm/entity"
	"github.com/chazu/avm/table"
)

// Unlinked is the ID of a segment not yet attached to a machine.
const Unlinked = 0xFF

const (
	// CodeCapacity is the initial reservation and growth step of the
	// instruction table, which dominates a segment's size.
	CodeCapacity = 128

	// maxEntries bounds class tables to what an entity index can address.
	maxEntries = entity.MaxIndex + 1
)

// Segment is one compilation unit: a table per entity class, owned
// exclusively by the segment.
type Segment struct {
	Name string
	ID   int

	tables [entity.ClassCount]table.Store

	code       *table.Table[entity.Entity]
	groups     *table.Table[*Group]
	registers  *table.Table[*Register]
	buffers    *table.Table[*Buffer]
	ports      *table.Table[*Port]
	strings    *table.Table[*String]
	labels     *table.Table[*Label]
	numbers    *table.Table[*Number]
	unresolved *table.Table[*Unresolved]
}

func newClassTable[T Record](class entity.Class, limit int) *table.Table[T] {
	if limit <= 0 || limit > maxEntries {
		limit = maxEntries
	}
	return table.New[T](class.String(), table.DefaultCapacity,
		table.WithEqual(byName[T]),
		table.WithLimit[T](limit))
}

// newSegment creates a detached segment. A positive limit caps every class
// table, instructions included.
func newSegment(name string, limit int) *Segment {
	s := &Segment{Name: name, ID: Unlinked}

	codeOpts := []table.Option[entity.Entity]{table.WithIncrement[entity.Entity](CodeCapacity)}
	if limit > 0 {
		codeOpts = append(codeOpts, table.WithLimit[entity.Entity](limit))
	}
	s.code = table.New[entity.Entity](entity.ClassInstruction.String(), CodeCapacity, codeOpts...)
	s.groups = newClassTable[*Group](entity.ClassGroup, limit)
	s.registers = newClassTable[*Register](entity.ClassRegister, limit)
	s.buffers = newClassTable[*Buffer](entity.ClassBuffer, limit)
	s.ports = newClassTable[*Port](entity.ClassPort, limit)
	s.strings = newClassTable[*String](entity.ClassString, limit)
	s.labels = newClassTable[*Label](entity.ClassLabel, limit)
	s.numbers = newClassTable[*Number](entity.ClassNumber, limit)
	s.unresolved = newClassTable[*Unresolved](entity.ClassUnresolved, limit)

	s.tables[entity.ClassInstruction] = s.code
	s.tables[entity.ClassError] = newClassTable[*Opaque](entity.ClassError, limit)
	s.tables[entity.ClassGroup] = s.groups
	s.tables[entity.ClassRegister] = s.registers
	s.tables[entity.ClassBuffer] = s.buffers
	s.tables[entity.ClassPort] = s.ports
	s.tables[entity.ClassString] = s.strings
	s.tables[entity.ClassLabel] = s.labels
	s.tables[entity.ClassProcess] = newClassTable[*Opaque](entity.ClassProcess, limit)
	s.tables[entity.ClassNumber] = s.numbers
	s.tables[entity.ClassImmediate] = newClassTable[*Opaque](entity.ClassImmediate, limit)
	s.tables[entity.ClassSegment] = newClassTable[*Opaque](entity.ClassSegment, limit)
	s.tables[entity.ClassUnresolved] = s.unresolved
	return s
}

// Symbol returns the segment name, so segments can live in a class table.
func (s *Segment) Symbol() string { return s.Name }

// Linked reports whether the segment has been attached to a machine.
func (s *Segment) Linked() bool { return s.ID != Unlinked }

// Table returns the class table for c, or nil for an unknown class.
func (s *Segment) Table(c entity.Class) table.Store {
	if !c.Valid() {
		return nil
	}
	return s.tables[c]
}

// Typed views of the class tables the compiler populates.

func (s *Segment) Code() *table.Table[entity.Entity] { return s.code }
func (s *Segment) Groups() *table.Table[*Group] { return s.groups }
func (s *Segment) Registers() *table.Table[*Register] { return s.registers }
func (s *Segment) Buffers() *table.Table[*Buffer] { return s.buffers }
func (s *Segment) Ports() *table.Table[*Port] { return s.ports }
func (s *Segment) Strings() *table.Table[*String] { return s.strings }
func (s *Segment) Labels() *table.Table[*Label] { return s.labels }
func (s *Segment) Numbers() *table.Table[*Number] { return s.numbers }
func (s *Segment) Unresolved() *table.Table[*Unresolved] { return s.unresolved }

// Lookup finds a named record of class c and returns the entity that
// references it. Classes without named records never match.
func (s *Segment) Lookup(c entity.Class, name string) (entity.Entity, bool) {
	t := s.Table(c)
	if t == nil || name == "" {
		return entity.Invalid, false
	}
	idx := t.Find(name)
	if idx == table.NotFound {
		return entity.Invalid, false
	}
	return entity.New(c, idx), true
}

func insert[T Record](t *table.Table[T], c entity.Class, rec T) (entity.Entity, error) {
	idx, err := t.Add(rec)
	if err != nil {
		return entity.Invalid, err
	}
	return entity.New(c, idx), nil
}

// AddString stores a string. Anonymous literals are flagged constant.
func (s *Segment) AddString(name, text string) (entity.Entity, error) {
	e, err := insert(s.strings, entity.ClassString, &String{Name: name, Text: text})
	if err == nil && name == "" {
		e = e.WithFlags(entity.FlagConstant)
	}
	return e, err
}

// AddNumber stores a numeric variable or wide constant.
func (s *Segment) AddNumber(name string, value int64) (entity.Entity, error) {
	e, err := insert(s.numbers, entity.ClassNumber, &Number{Name: name, Width: 64, Value: value})
	if err == nil && name == "" {
		e = e.WithFlags(entity.FlagConstant)
	}
	return e, err
}

// AddLabel records a label at the given instruction-table offset.
func (s *Segment) AddLabel(name string, offset int) (entity.Entity, error) {
	return insert(s.labels, entity.ClassLabel, &Label{Name: name, Segment: s.ID, Offset: offset})
}

// AddRegister defines a segment-local register.
func (s *Segment) AddRegister(name string, mode Mode) (entity.Entity, error) {
	return insert(s.registers, entity.ClassRegister, &Register{Name: name, Mode: mode, Width: 64})
}

// AddPort defines a segment-local port. It is not bound to a descriptor
// until the program opens it.
func (s *Segment) AddPort(name string) (entity.Entity, error) {
	return insert(s.ports, entity.ClassPort, &Port{Name: name, FD: -1})
}

// AddBuffer defines an empty buffer.
func (s *Segment) AddBuffer(name string) (entity.Entity, error) {
	return insert(s.buffers, entity.ClassBuffer, &Buffer{Name: name})
}

// AddGroup defines an empty group.
func (s *Segment) AddGroup(name string) (entity.Entity, error) {
	return insert(s.groups, entity.ClassGroup, &Group{Name: name})
}

// AddUnresolved records a forward reference to name.
func (s *Segment) AddUnresolved(name, file string, line int) (entity.Entity, error) {
	return insert(s.unresolved, entity.ClassUnresolved, &Unresolved{Name: name, File: file, Line: line})
}

// Emit appends entities to the instruction table. Either all of them are
// appended or, when the table cannot hold them, none are.
func (s *Segment) Emit(ents ...entity.Entity) error {
	if room := s.code.Room(); room < len(ents) {
		return fmt.Errorf("%s: %d words needed, %d available: %w",
			s.Name, len(ents), room, table.ErrCapacity)
	}
	for _, e := range ents {
		if _, err := s.code.Add(e); err != nil {
			return err
		}
	}
	return nil
}

// Record returns the segment-local record an entity refers to. Global and
// non-indexed entities have no segment record.
func (s *Segment) Record(e entity.Entity) (Record, bool) {
	if !e.Indexed() || e.Global() {
		return nil, false
	}
	i := e.Index()
	switch e.Class() {
	case entity.ClassGroup:
		return get(s.groups, i)
	case entity.ClassRegister:
		return get(s.registers, i)
	case entity.ClassBuffer:
		return get(s.buffers, i)
	case entity.ClassPort:
		return get(s.ports, i)
	case entity.ClassString:
		return get(s.strings, i)
	case entity.ClassLabel:
		return get(s.labels, i)
	case entity.ClassNumber:
		return get(s.numbers, i)
	case entity.ClassUnresolved:
		return get(s.unresolved, i)
	}
	return nil, false
}

func get[T Record](t *table.Table[T], i int) (Record, bool) {
	v, ok := t.Get(i)
	if !ok {
		return nil, false
	}
	return v, true
}

// Close destroys every class table. The segment must not be used after.
func (s *Segment) Close() {
	for _, t := range s.tables {
		t.Destroy()
	}
}
